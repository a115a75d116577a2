package dynamics

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamics: invalid state (NaN or Inf detected)")

	// ErrBadTimestep indicates a non-positive integration step.
	ErrBadTimestep = errors.New("dynamics: time step must be positive")

	// ErrUnstable indicates the trajectory diverged.
	ErrUnstable = errors.New("dynamics: simulation unstable (state diverged)")

	// ErrStepTooSmall indicates the adaptive timestep fell below minimum.
	ErrStepTooSmall = errors.New("dynamics: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamics: dimension mismatch between state and system")
)

// NumericalError wraps a numerical failure with trajectory context. It is
// the error controllers and the integration driver report for dt <= 0,
// non-finite inputs, and diverged states.
type NumericalError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *NumericalError) Error() string {
	if e.Step > 0 || e.Time > 0 {
		return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
	}
	return e.Wrapped.Error()
}

func (e *NumericalError) Unwrap() error {
	return e.Wrapped
}
