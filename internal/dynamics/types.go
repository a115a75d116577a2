package dynamics

import (
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type System interface {
	Derive(x State, u float64, t float64) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Name() string
	Step(sys System, x State, u float64, t float64, dt float64) State
}

// AdaptiveIntegrator steps with local error control. StepAdaptive may
// shrink the attempted step on rejection; used is the time actually
// advanced and next is the suggested size for the following step.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, u float64, t, dt, tol float64) (x2 State, used, next float64, err error)
}

// Controller computes a scalar actuator command each step. Implementations
// carry their own internal state; Reset restores the freshly-constructed
// state. Compute must reject dt <= 0 and non-finite inputs with a
// *NumericalError instead of propagating NaN.
type Controller interface {
	Compute(x State, t float64, dt float64) (float64, error)
	Reset()
}

type Metric interface {
	Name() string
	Observe(x State, u float64, t float64)
	Value() float64
	Reset()
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-6,
		MaxDt:         0.1,
		MinDt:         1e-8,
		Adaptive:      false,
		ValidateState: true,
	}
}

// Result holds one trajectory. Success is false when the run aborted on a
// numerical failure; Failure then carries the diagnostic and the slices hold
// the partial trajectory up to the abort.
type Result struct {
	Times       []float64
	States      []State
	Controls    []float64
	Metrics     map[string]float64
	Integrator  string
	Dt          float64
	Steps       int
	Elapsed     time.Duration
	EnergyDrift float64
	Success     bool
	Failure     error
}

