//go:build !linux

package gpio

import "fmt"

// Stub implementation for non-Linux platforms.
func requestCdev(cfg Config) (Line, error) {
	return nil, fmt.Errorf("%w: gpiocdev unsupported on this platform", ErrLineUnavailable)
}

func requestRpio(cfg Config) (Line, error) {
	return nil, fmt.Errorf("%w: rpio unsupported on this platform", ErrLineUnavailable)
}

func DefaultChip() string { return "gpiochip0" }
