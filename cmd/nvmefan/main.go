package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nvmefan/internal/config"
	"nvmefan/internal/fancontrol"
	"nvmefan/internal/gpio"
	"nvmefan/internal/pwm"
	"nvmefan/internal/sensor"
	"nvmefan/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (empty uses built-in defaults)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(500)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, gpio.Request, logs)
	cancel()
	if err != nil {
		log.Fatalf("nvmefan: %v", err)
	}
	log.Printf("nvmefan stopped")
}

func gpioConfig(cfg config.Config) gpio.Config {
	return gpio.Config{
		Backend:  cfg.GPIO.Backend,
		Chip:     cfg.GPIO.Chip,
		Line:     *cfg.GPIO.Line,
		LineName: cfg.GPIO.LineName,
		Consumer: cfg.GPIO.Consumer,
	}
}

// run claims the fan line, drives it until ctx is canceled, and releases it
// on every return path.
func run(ctx context.Context, cfg config.Config, request func(gpio.Config) (gpio.Line, error), logs *web.LogBuffer) error {
	gc := gpioConfig(cfg)
	if gc.Backend == gpio.BackendCdev && gc.Chip == "" {
		gc.Chip = gpio.DefaultChip()
	}
	line, err := request(gc)
	if err != nil {
		return fmt.Errorf("gpio init failed: %w", err)
	}

	var opts []pwm.Option
	if cfg.PWM.ThreadNice != 0 {
		opts = append(opts, pwm.WithThreadNice(cfg.PWM.ThreadNice))
	}
	gen, err := pwm.New(line, cfg.PWM.FrequencyHz, opts...)
	if err != nil {
		_ = line.Close()
		return fmt.Errorf("pwm init failed: %w", err)
	}

	src := &sensor.File{Path: cfg.Sensor.Path, Timeout: cfg.Sensor.ReadTimeout}
	svc, err := fancontrol.New(fancontrol.Config{Interval: cfg.Control.Interval, Policy: cfg.Control.Policy()}, gen, src)
	if err != nil {
		_ = gen.Release()
		return err
	}

	log.Printf("nvmefan starting")
	log.Printf("gpio backend=%s chip=%s line=%d pwm=%.0fHz period=%s", gc.Backend, gc.Chip, gc.Line, gen.Frequency(), gen.Period())
	log.Printf("sensor path=%s interval=%s", src.Path, cfg.Control.Interval)

	if cfg.Web.Listen != "" {
		status := web.NewStatus(svc)
		status.SetSetup(web.Setup{
			Backend:     gc.Backend,
			Chip:        gc.Chip,
			Line:        gc.Line,
			FrequencyHz: gen.Frequency(),
			SensorPath:  src.Path,
			Interval:    cfg.Control.Interval.String(),
			LowerTempC:  *cfg.Control.LowerTempC,
			UpperTempC:  *cfg.Control.UpperTempC,
			MinSpeedPct: *cfg.Control.MinSpeedPct,
			MaxSpeedPct: *cfg.Control.MaxSpeedPct,
		})
		log.Printf("web listen=%s", cfg.Web.Listen)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, status, logs); err != nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	return svc.Run(ctx)
}
