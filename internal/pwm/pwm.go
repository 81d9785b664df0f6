// Package pwm generates a software PWM waveform on a single GPIO output line.
//
// The waveform is produced by a dedicated goroutine that toggles the line
// and sleeps between edges. Timing depends on the Go scheduler and the host
// kernel; there is no real-time guarantee, and jitter in the order of tens of
// microseconds is expected at fan frequencies (25 kHz).
package pwm

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"nvmefan/internal/gpio"
)

var (
	ErrAlreadyRunning   = errors.New("pwm: already running")
	ErrReleased         = errors.New("pwm: generator released")
	ErrInvalidFrequency = errors.New("pwm: frequency must be > 0")
)

// Line is the output the generator drives. gpio.Line satisfies it.
type Line interface {
	SetValue(value int) error
	Close() error
}

type Option func(*Generator)

// WithSleep overrides the sleep used between edges.
func WithSleep(fn func(time.Duration)) Option {
	return func(g *Generator) {
		if fn != nil {
			g.sleep = fn
		}
	}
}

// WithThreadNice pins the timing loop to one OS thread and applies the given
// nice value to it (Linux only; lower is higher priority). Zero leaves the
// thread priority unchanged.
func WithThreadNice(nice int) Option {
	return func(g *Generator) {
		g.nice = nice
	}
}

// Generator is a software PWM channel bound to one line.
//
// Start, Stop and Release may be called from any goroutine. SetDutyCycle is
// safe to call concurrently with the running timing loop.
type Generator struct {
	line   Line
	hz     float64
	period time.Duration
	sleep  func(time.Duration)
	nice   int

	// duty holds math.Float64bits of the fraction in [0,1].
	duty    atomic.Uint64
	running atomic.Bool

	lineErrs atomic.Uint64
	errMu    sync.Mutex
	lastErr  error

	// mu serializes lifecycle transitions; the timing loop never takes it.
	mu       sync.Mutex
	done     chan struct{}
	released bool
}

// New takes ownership of an already claimed output line and drives it low.
func New(line Line, frequencyHz float64, opts ...Option) (*Generator, error) {
	if line == nil {
		return nil, fmt.Errorf("%w: nil line", gpio.ErrLineUnavailable)
	}
	if !(frequencyHz > 0) || math.IsInf(frequencyHz, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFrequency, frequencyHz)
	}
	period := time.Duration(float64(time.Second) / frequencyHz)
	if period <= 0 {
		return nil, fmt.Errorf("%w: %v Hz is above timer resolution", ErrInvalidFrequency, frequencyHz)
	}

	g := &Generator{
		line:   line,
		hz:     frequencyHz,
		period: period,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	if err := line.SetValue(0); err != nil {
		return nil, fmt.Errorf("%w: initial low: %v", gpio.ErrLineUnavailable, err)
	}
	return g, nil
}

func (g *Generator) Frequency() float64    { return g.hz }
func (g *Generator) Period() time.Duration { return g.period }
func (g *Generator) Running() bool         { return g.running.Load() }

// DutyCycle returns the current duty cycle as a fraction in [0,1].
func (g *Generator) DutyCycle() float64 {
	return math.Float64frombits(g.duty.Load())
}

// SetDutyCycle stores percent (clamped to [0,100]) for the timing loop.
// The new value is used from the next waveform period onwards.
func (g *Generator) SetDutyCycle(percent float64) {
	g.duty.Store(math.Float64bits(clampPercent(percent) / 100))
}

func clampPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Start sets the initial duty cycle and launches the timing loop.
func (g *Generator) Start(percent float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return ErrReleased
	}
	if g.done != nil {
		return ErrAlreadyRunning
	}

	g.SetDutyCycle(percent)
	g.running.Store(true)
	done := make(chan struct{})
	g.done = done
	go g.loop(done)
	return nil
}

// Stop halts the timing loop, waits for it to exit, and drives the line low.
// The line stays low until the next Start. Safe to call repeatedly.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Generator) stopLocked() {
	if g.released {
		return
	}
	g.running.Store(false)
	if g.done != nil {
		<-g.done
		g.done = nil
	}
	g.setLevel(0)
}

// Release stops the generator and closes the line. The generator cannot be
// used afterwards; further calls return nil.
func (g *Generator) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.stopLocked()
	g.released = true
	if err := g.line.Close(); err != nil {
		return fmt.Errorf("pwm: release line: %w", err)
	}
	return nil
}

// LineErrors reports how many line operations failed and the most recent
// error. A failure to apply the thread nice counts as one.
func (g *Generator) LineErrors() (uint64, error) {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.lineErrs.Load(), g.lastErr
}

func (g *Generator) setLevel(v int) {
	if err := g.line.SetValue(v); err != nil {
		g.recordErr(err)
	}
}

func (g *Generator) recordErr(err error) {
	g.errMu.Lock()
	g.lineErrs.Add(1)
	g.lastErr = err
	g.errMu.Unlock()
}

var setNiceFn = setThreadNice

func (g *Generator) loop(done chan struct{}) {
	defer close(done)
	if g.nice != 0 {
		// Never unlocked: the thread is discarded when the loop exits, so its
		// priority does not leak to other goroutines.
		runtime.LockOSThread()
		if err := setNiceFn(g.nice); err != nil {
			g.recordErr(err)
		}
	}

	for g.running.Load() {
		d := g.DutyCycle()
		switch {
		case d <= 0:
			g.setLevel(0)
			g.sleep(g.period)
		case d >= 1:
			g.setLevel(1)
			g.sleep(g.period)
		default:
			high := time.Duration(float64(g.period) * d)
			g.setLevel(1)
			g.sleep(high)
			g.setLevel(0)
			g.sleep(g.period - high)
		}
	}
}
