package fancontrol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicy_DutyPercent(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name string
		in   Sample
		want int
	}{
		{name: "Unavailable", in: Sample{}, want: 0},
		{name: "UnavailableIgnoresValue", in: Sample{Celsius: 90}, want: 0},
		{name: "Cold", in: Sample{Celsius: 20, Valid: true}, want: 0},
		{name: "JustBelowLower", in: Sample{Celsius: 39.9, Valid: true}, want: 0},
		{name: "AtLower", in: Sample{Celsius: 40.0, Valid: true}, want: 20},
		{name: "Midpoint", in: Sample{Celsius: 52.5, Valid: true}, want: 60},
		{name: "Truncates", in: Sample{Celsius: 41.0, Valid: true}, want: 23},
		{name: "JustBelowUpper", in: Sample{Celsius: 64.99, Valid: true}, want: 99},
		{name: "AtUpper", in: Sample{Celsius: 65.0, Valid: true}, want: 100},
		{name: "Hot", in: Sample{Celsius: 85, Valid: true}, want: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, p.DutyPercent(tc.in))
		})
	}
}

func TestPolicy_Monotonic(t *testing.T) {
	p := DefaultPolicy()
	prev := -1
	for c := 0.0; c <= 80; c += 0.25 {
		got := p.DutyPercent(Sample{Celsius: c, Valid: true})
		require.GreaterOrEqual(t, got, prev, "temp=%v", c)
		prev = got
	}
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	bad := []struct {
		p    Policy
		want string
	}{
		{Policy{LowerC: 65, UpperC: 40, MinPercent: 20, MaxPercent: 100}, "lower temp 65.0C must be below upper temp 40.0C"},
		{Policy{LowerC: 40, UpperC: 40, MinPercent: 20, MaxPercent: 100}, "lower temp 40.0C must be below upper temp 40.0C"},
		{Policy{LowerC: 40, UpperC: 65, MinPercent: -1, MaxPercent: 100}, "min speed -1% must be within 0..100"},
		{Policy{LowerC: 40, UpperC: 65, MinPercent: 20, MaxPercent: 101}, "max speed 101% must be within 0..100"},
		{Policy{LowerC: 40, UpperC: 65, MinPercent: 80, MaxPercent: 50}, "min speed 80% exceeds max speed 50%"},
	}
	for _, tc := range bad {
		require.EqualError(t, tc.p.Validate(), tc.want, "%+v", tc.p)
	}
}
