package cost

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
)

// Pulse is one half-sine force kick on the cart.
type Pulse struct {
	Start    float64 `yaml:"start" json:"start"`
	Duration float64 `yaml:"duration" json:"duration"`
	Peak     float64 `yaml:"peak" json:"peak"`
}

func (p Pulse) force(t float64) float64 {
	if p.Duration <= 0 || t < p.Start || t > p.Start+p.Duration {
		return 0
	}
	return p.Peak * math.Sin(math.Pi*(t-p.Start)/p.Duration)
}

// Scenario is one trial a candidate is scored on: an initial condition plus
// an optional disturbance schedule.
type Scenario struct {
	Name   string
	Init   dynamics.State
	Pulses []Pulse
}

// Disturbance sums the active pulses at time t; it plugs directly into the
// runner's disturbance input.
func (s Scenario) Disturbance(t float64) float64 {
	var f float64
	for _, p := range s.Pulses {
		f += p.force(t)
	}
	return f
}

// DefaultScenarios covers a small tilt, a larger tilt, and disturbance
// rejection from near-upright.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "nudge", Init: dynamics.State{0, 0.05, -0.03, 0, 0, 0}},
		{Name: "tilt", Init: dynamics.State{0, 0.15, 0.1, 0, 0, 0}},
		{
			Name:   "push",
			Init:   dynamics.State{0, 0.02, -0.02, 0, 0, 0},
			Pulses: []Pulse{{Start: 2, Duration: 0.5, Peak: 10}},
		},
	}
}
