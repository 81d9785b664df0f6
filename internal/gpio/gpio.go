package gpio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLineUnavailable is returned when the requested GPIO line cannot be
// claimed for output (missing chip, unknown line, or line busy).
var ErrLineUnavailable = errors.New("gpio: line unavailable")

const (
	BackendCdev = "gpiocdev"
	BackendRpio = "rpio"
)

// Line is an output line claimed exclusively by this process.
//
// SetValue drives the logical level (0 or 1). Close relinquishes the line
// and any chip handle opened to claim it.
type Line interface {
	SetValue(value int) error
	Close() error
}

// Config identifies one output line.
type Config struct {
	// Backend selects the driver: "gpiocdev" (default) or "rpio".
	Backend string
	// Chip is the character device name, e.g. "gpiochip4". Empty means
	// DefaultChip(). Ignored by the rpio backend.
	Chip string
	// Line is the line offset on Chip, which on a Raspberry Pi equals the
	// BCM GPIO number.
	Line int
	// LineName, when set, is looked up on the chip and takes precedence
	// over Line (e.g. "GPIO14").
	LineName string
	// Consumer is the label reported to the kernel for the claimed line.
	Consumer string
}

var (
	requestCdevFn = requestCdev
	requestRpioFn = requestRpio
)

// Request claims the configured line for output, initially driven low.
func Request(cfg Config) (Line, error) {
	if cfg.Line < 0 {
		return nil, fmt.Errorf("%w: invalid line %d", ErrLineUnavailable, cfg.Line)
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "PWM"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendCdev:
		if cfg.Chip == "" {
			cfg.Chip = DefaultChip()
		}
		return requestCdevFn(cfg)
	case BackendRpio:
		return requestRpioFn(cfg)
	default:
		return nil, fmt.Errorf("gpio: unknown backend %q", cfg.Backend)
	}
}
