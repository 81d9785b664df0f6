package fancontrol

import "fmt"

// Default thresholds. The fan is off below 40 C, starts at 20% at 40 C and
// reaches full speed at 65 C.
const (
	DefaultLowerC     = 40.0
	DefaultUpperC     = 65.0
	DefaultMinPercent = 20
	DefaultMaxPercent = 100
)

// Sample is one temperature reading. Valid is false when the sensor could
// not be read or parsed.
type Sample struct {
	Celsius float64
	Valid   bool
}

// Policy maps a temperature to a fan duty cycle in percent.
type Policy struct {
	LowerC     float64
	UpperC     float64
	MinPercent int
	MaxPercent int
}

func DefaultPolicy() Policy {
	return Policy{
		LowerC:     DefaultLowerC,
		UpperC:     DefaultUpperC,
		MinPercent: DefaultMinPercent,
		MaxPercent: DefaultMaxPercent,
	}
}

// Validate reports the first inconsistency in p. Callers add their own
// context (a package or config section prefix).
func (p Policy) Validate() error {
	if !(p.LowerC < p.UpperC) {
		return fmt.Errorf("lower temp %.1fC must be below upper temp %.1fC", p.LowerC, p.UpperC)
	}
	if p.MinPercent < 0 || p.MinPercent > 100 {
		return fmt.Errorf("min speed %d%% must be within 0..100", p.MinPercent)
	}
	if p.MaxPercent < 0 || p.MaxPercent > 100 {
		return fmt.Errorf("max speed %d%% must be within 0..100", p.MaxPercent)
	}
	if p.MinPercent > p.MaxPercent {
		return fmt.Errorf("min speed %d%% exceeds max speed %d%%", p.MinPercent, p.MaxPercent)
	}
	return nil
}

// DutyPercent returns the duty cycle for s.
//
// An invalid sample turns the fan off. This keeps a disconnected or broken
// sensor from holding the fan at an arbitrary speed, at the cost of no
// cooling while the sensor is down.
func (p Policy) DutyPercent(s Sample) int {
	if !s.Valid {
		return 0
	}
	t := s.Celsius
	switch {
	case t < p.LowerC:
		return 0
	case t >= p.UpperC:
		return p.MaxPercent
	}
	frac := (t - p.LowerC) / (p.UpperC - p.LowerC)
	return int(float64(p.MinPercent) + frac*float64(p.MaxPercent-p.MinPercent))
}
