//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio"
)

// rpio maps /dev/gpiomem once per process; track how many lines share it.
var (
	rpioMu   sync.Mutex
	rpioRefs int
)

// requestRpio drives a BCM GPIO through the memory-mapped register block.
// It is faster per toggle than the character device but offers no kernel
// arbitration, so "exclusive" ownership is only enforced within this process.
func requestRpio(cfg Config) (Line, error) {
	if cfg.Line > 53 {
		return nil, fmt.Errorf("%w: bcm gpio %d out of range", ErrLineUnavailable, cfg.Line)
	}

	rpioMu.Lock()
	defer rpioMu.Unlock()
	if rpioRefs == 0 {
		if err := rpio.Open(); err != nil {
			return nil, fmt.Errorf("%w: rpio open: %v", ErrLineUnavailable, err)
		}
	}
	rpioRefs++

	pin := rpio.Pin(cfg.Line)
	pin.Output()
	pin.Low()
	return &rpioLine{pin: pin, open: true}, nil
}

type rpioLine struct {
	pin  rpio.Pin
	open bool
}

func (l *rpioLine) SetValue(v int) error {
	if !l.open {
		return fmt.Errorf("gpio: line closed")
	}
	if v == 0 {
		l.pin.Low()
	} else {
		l.pin.High()
	}
	return nil
}

func (l *rpioLine) Close() error {
	if !l.open {
		return nil
	}
	l.pin.Low()
	l.pin.Input()
	l.open = false

	rpioMu.Lock()
	defer rpioMu.Unlock()
	rpioRefs--
	if rpioRefs == 0 {
		if err := rpio.Close(); err != nil {
			return fmt.Errorf("gpio: rpio close: %w", err)
		}
	}
	return nil
}
