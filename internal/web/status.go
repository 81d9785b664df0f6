package web

import (
	"sync/atomic"
	"time"

	"nvmefan/internal/fancontrol"
)

// FanSource yields the latest control loop state. *fancontrol.Service
// satisfies it.
type FanSource interface {
	Snapshot() fancontrol.Snapshot
}

// Setup describes the fixed hardware and policy configuration.
type Setup struct {
	Backend     string  `json:"gpio_backend"`
	Chip        string  `json:"gpio_chip,omitempty"`
	Line        int     `json:"gpio_line"`
	FrequencyHz float64 `json:"pwm_frequency_hz"`
	SensorPath  string  `json:"sensor_path"`
	Interval    string  `json:"interval"`
	LowerTempC  float64 `json:"lower_temp_c"`
	UpperTempC  float64 `json:"upper_temp_c"`
	MinSpeedPct int     `json:"min_speed_pct"`
	MaxSpeedPct int     `json:"max_speed_pct"`
}

type Status struct {
	startUnixNano int64
	setup         atomic.Value // Setup
	fan           FanSource
}

func NewStatus(fan FanSource) *Status {
	s := &Status{fan: fan}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.setup.Store(Setup{})
	return s
}

func (s *Status) SetSetup(setup Setup) {
	s.setup.Store(setup)
}

type StatusSnapshot struct {
	Service   string              `json:"service"`
	NowUTC    string              `json:"now_utc"`
	UptimeSec int64               `json:"uptime_sec"`
	Setup     Setup               `json:"setup"`
	Fan       fancontrol.Snapshot `json:"fan"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "nvmefan",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Setup:     s.setup.Load().(Setup),
	}
	if s.fan != nil {
		snap.Fan = s.fan.Snapshot()
	}
	return snap
}
