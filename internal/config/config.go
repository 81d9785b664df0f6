package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nvmefan/internal/fancontrol"
)

type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	PWM     PWMConfig     `yaml:"pwm"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Control ControlConfig `yaml:"control"`
	Web     WebConfig     `yaml:"web"`
}

type GPIOConfig struct {
	// Backend is "gpiocdev" or "rpio".
	Backend string `yaml:"backend"`
	// Chip is left empty to auto-detect (gpiochip4 on a Pi 5).
	Chip     string `yaml:"chip"`
	Line     *int   `yaml:"line"`
	LineName string `yaml:"line_name"`
	Consumer string `yaml:"consumer"`
}

type PWMConfig struct {
	FrequencyHz float64 `yaml:"frequency_hz"`
	// ThreadNice is applied to the timing loop's OS thread; 0 leaves it alone.
	ThreadNice int `yaml:"thread_nice"`
}

type SensorConfig struct {
	Path        string        `yaml:"path"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type ControlConfig struct {
	Interval    time.Duration `yaml:"interval"`
	LowerTempC  *float64      `yaml:"lower_temp_c"`
	UpperTempC  *float64      `yaml:"upper_temp_c"`
	MinSpeedPct *int          `yaml:"min_speed_pct"`
	MaxSpeedPct *int          `yaml:"max_speed_pct"`
}

// Policy returns the fan curve. Only valid after DefaultAndValidate has run.
func (c ControlConfig) Policy() fancontrol.Policy {
	return fancontrol.Policy{
		LowerC:     *c.LowerTempC,
		UpperC:     *c.UpperTempC,
		MinPercent: *c.MinSpeedPct,
		MaxPercent: *c.MaxSpeedPct,
	}
}

type WebConfig struct {
	// Listen is the status endpoint address, e.g. ":8080". Empty disables it.
	Listen string `yaml:"listen"`
}

const (
	DefaultBackend     = "gpiocdev"
	DefaultLine        = 14
	DefaultConsumer    = "PWM"
	DefaultFrequencyHz = 25000
	DefaultSensorPath  = "/sys/block/nvme0n1/device/hwmon1/temp1_input"
	DefaultInterval    = 10 * time.Second
	DefaultLowerTempC  = 40.0
	DefaultUpperTempC  = 65.0
	DefaultMinSpeedPct = 20
	DefaultMaxSpeedPct = 100
)

// Default returns a config with every field set to its built-in default.
func Default() Config {
	var cfg Config
	_ = DefaultAndValidate(&cfg)
	return cfg
}

// Load reads a YAML config from path. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if secondsAsDurations(&root) {
		if b, err = yaml.Marshal(&root); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// durationKeys lists the time.Duration fields, by section.
var durationKeys = map[string]string{
	"sensor":  "read_timeout",
	"control": "interval",
}

// secondsAsDurations rewrites bare integers under durationKeys as seconds
// ("30" becomes "30s"), since time.Duration only decodes from strings. It
// reports whether anything changed.
func secondsAsDurations(root *yaml.Node) bool {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return false
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return false
	}
	changed := false
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, ok := durationKeys[top.Content[i].Value]
		section := top.Content[i+1]
		if !ok || section.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(section.Content); j += 2 {
			v := section.Content[j+1]
			if section.Content[j].Value == key && v.Kind == yaml.ScalarNode && v.ShortTag() == "!!int" {
				v.Value += "s"
				v.Tag = "!!str"
				v.Style = 0
				changed = true
			}
		}
	}
	return changed
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// DefaultAndValidate fills unset fields and checks the result.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	cfg.GPIO.Backend = strings.ToLower(strings.TrimSpace(cfg.GPIO.Backend))
	if cfg.GPIO.Backend == "" {
		cfg.GPIO.Backend = DefaultBackend
	}
	if cfg.GPIO.Backend != "gpiocdev" && cfg.GPIO.Backend != "rpio" {
		return fmt.Errorf("gpio.backend must be 'gpiocdev' or 'rpio'")
	}
	if cfg.GPIO.Line == nil {
		cfg.GPIO.Line = intPtr(DefaultLine)
	}
	if *cfg.GPIO.Line < 0 {
		return fmt.Errorf("gpio.line must be >= 0")
	}
	if cfg.GPIO.Backend == "rpio" && cfg.GPIO.LineName != "" {
		return fmt.Errorf("gpio.line_name is only supported with gpio.backend 'gpiocdev'")
	}
	if cfg.GPIO.Consumer == "" {
		cfg.GPIO.Consumer = DefaultConsumer
	}

	if cfg.PWM.FrequencyHz == 0 {
		cfg.PWM.FrequencyHz = DefaultFrequencyHz
	}
	if !(cfg.PWM.FrequencyHz > 0) {
		return fmt.Errorf("pwm.frequency_hz must be > 0")
	}
	if cfg.PWM.ThreadNice < -20 || cfg.PWM.ThreadNice > 19 {
		return fmt.Errorf("pwm.thread_nice must be within -20..19")
	}

	if cfg.Sensor.Path == "" {
		cfg.Sensor.Path = DefaultSensorPath
	}
	if cfg.Sensor.ReadTimeout < 0 {
		return fmt.Errorf("sensor.read_timeout must be >= 0")
	}

	if cfg.Control.Interval == 0 {
		cfg.Control.Interval = DefaultInterval
	}
	if cfg.Control.Interval < 0 {
		return fmt.Errorf("control.interval must be > 0")
	}
	if cfg.Control.LowerTempC == nil {
		cfg.Control.LowerTempC = floatPtr(DefaultLowerTempC)
	}
	if cfg.Control.UpperTempC == nil {
		cfg.Control.UpperTempC = floatPtr(DefaultUpperTempC)
	}
	if cfg.Control.MinSpeedPct == nil {
		cfg.Control.MinSpeedPct = intPtr(DefaultMinSpeedPct)
	}
	if cfg.Control.MaxSpeedPct == nil {
		cfg.Control.MaxSpeedPct = intPtr(DefaultMaxSpeedPct)
	}
	if err := cfg.Control.Policy().Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}

	cfg.Web.Listen = strings.TrimSpace(cfg.Web.Listen)
	return nil
}
