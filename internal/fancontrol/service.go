package fancontrol

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const DefaultInterval = 10 * time.Second

// Generator is the PWM output the service drives. *pwm.Generator satisfies it.
type Generator interface {
	Start(percent float64) error
	SetDutyCycle(percent float64)
	Release() error
}

// TempSource yields one temperature reading in degrees Celsius.
type TempSource interface {
	ReadCelsius(ctx context.Context) (float64, error)
}

// lineErrorReporter is optionally implemented by a Generator.
type lineErrorReporter interface {
	LineErrors() (uint64, error)
}

type Config struct {
	// Interval is the time between temperature samples.
	Interval time.Duration
	Policy   Policy
}

type Snapshot struct {
	Running bool `json:"running"`

	TempValid bool    `json:"temp_valid"`
	TempC     float64 `json:"temp_c"`

	DutyPercent int    `json:"duty_percent"`
	Cycles      uint64 `json:"cycles"`
	SensorFails uint64 `json:"sensor_failures"`
	LineErrors  uint64 `json:"line_errors"`

	LastUpdateAt time.Time `json:"last_update_utc,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config
	gen Generator
	src TempSource

	// seenLineErrs is only touched by the Run goroutine.
	seenLineErrs uint64

	mu   sync.RWMutex
	snap Snapshot
}

func New(cfg Config, gen Generator, src TempSource) (*Service, error) {
	if gen == nil {
		return nil, fmt.Errorf("fancontrol: generator is nil")
	}
	if src == nil {
		return nil, fmt.Errorf("fancontrol: temperature source is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("fancontrol: %w", err)
	}
	return &Service{cfg: cfg, gen: gen, src: src}, nil
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) setState(update func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.snap)
	s.snap.LastUpdateAt = time.Now().UTC()
}

// Run starts the generator at 0% and re-evaluates the duty cycle every
// Interval until ctx is canceled. The generator is released on every exit
// path, including panics. A canceled ctx is a normal stop and returns nil.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		rerr := s.gen.Release()
		s.setState(func(sn *Snapshot) { sn.Running = false })
		if rerr != nil {
			log.Printf("fancontrol: release failed: %v", rerr)
			if err == nil {
				err = rerr
			}
		}
	}()

	if err := s.gen.Start(0); err != nil {
		return fmt.Errorf("fancontrol: start pwm: %w", err)
	}
	s.setState(func(sn *Snapshot) { sn.Running = true })
	log.Printf("fancontrol: running interval=%s lower=%.1fC upper=%.1fC min=%d%% max=%d%%",
		s.cfg.Interval, s.cfg.Policy.LowerC, s.cfg.Policy.UpperC, s.cfg.Policy.MinPercent, s.cfg.Policy.MaxPercent)

	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("fancontrol: stopping")
			return nil
		case <-t.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	c, err := s.src.ReadCelsius(ctx)
	if err != nil && ctx.Err() != nil {
		// Shutdown interrupted the read; leave the output alone.
		return
	}
	sample := Sample{Celsius: c, Valid: err == nil}
	duty := s.cfg.Policy.DutyPercent(sample)
	s.gen.SetDutyCycle(float64(duty))

	lineErrs, lineErr := s.checkLineErrors()

	if err != nil {
		log.Printf("fancontrol: temp=unavailable duty=%d%% err=%v", duty, err)
		s.setState(func(sn *Snapshot) {
			sn.Cycles++
			sn.SensorFails++
			sn.TempValid = false
			sn.TempC = 0
			sn.DutyPercent = duty
			sn.LineErrors = lineErrs
			sn.LastError = err.Error()
		})
		return
	}

	log.Printf("fancontrol: temp=%.2fC duty=%d%%", c, duty)
	s.setState(func(sn *Snapshot) {
		sn.Cycles++
		sn.TempValid = true
		sn.TempC = c
		sn.DutyPercent = duty
		sn.LineErrors = lineErrs
		sn.LastError = ""
		if lineErr != nil {
			sn.LastError = lineErr.Error()
		}
	})
}

// checkLineErrors logs once per cycle in which the generator reported new
// line failures, and returns the error only in that case.
func (s *Service) checkLineErrors() (uint64, error) {
	r, ok := s.gen.(lineErrorReporter)
	if !ok {
		return 0, nil
	}
	n, last := r.LineErrors()
	if n <= s.seenLineErrs {
		return n, nil
	}
	log.Printf("fancontrol: pwm line errors=%d (+%d) last=%v", n, n-s.seenLineErrs, last)
	s.seenLineErrs = n
	if last == nil {
		last = fmt.Errorf("pwm: %d line errors", n)
	}
	return n, last
}
