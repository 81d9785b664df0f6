//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// requestCdev claims the line through the Linux GPIO character device.
func requestCdev(cfg Config) (Line, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer(cfg.Consumer))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLineUnavailable, cfg.Chip, err)
	}

	offset := cfg.Line
	if cfg.LineName != "" {
		offset, err = chip.FindLine(cfg.LineName)
		if err != nil {
			_ = chip.Close()
			return nil, fmt.Errorf("%w: line %q not found on %s: %v", ErrLineUnavailable, cfg.LineName, cfg.Chip, err)
		}
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(cfg.Consumer))
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("%w: request %s line %d: %v", ErrLineUnavailable, cfg.Chip, offset, err)
	}
	return &cdevLine{chip: chip, line: line}, nil
}

type cdevLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (l *cdevLine) SetValue(v int) error {
	if l.line == nil {
		return fmt.Errorf("gpio: line closed")
	}
	return l.line.SetValue(v)
}

func (l *cdevLine) Close() error {
	if l.line == nil {
		return nil
	}
	// Leave the fan input low, then hand the line back as an input so the
	// pin is not left driven once we exit.
	err1 := l.line.SetValue(0)
	err2 := l.line.Reconfigure(gpiocdev.AsInput)
	err3 := l.line.Close()
	l.line = nil
	var err4 error
	if l.chip != nil {
		err4 = l.chip.Close()
		l.chip = nil
	}
	return errors.Join(err1, err2, err3, err4)
}
