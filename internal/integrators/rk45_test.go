package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/mkrv/smctune/internal/dynamics"
)

type growth struct{ rate float64 }

func (g growth) Derive(x dynamics.State, u float64, t float64) dynamics.State {
	return dynamics.State{g.rate * x[0]}
}

func (g growth) StateDim() int { return 1 }

func TestRK45StepAccuracy(t *testing.T) {
	integ := NewRK45()
	x := dynamics.State{1, 0}
	dt := 0.05
	steps := 200

	for i := 0; i < steps; i++ {
		x = integ.Step(oscillator{}, x, 0, float64(i)*dt, dt)
	}

	horizon := float64(steps) * dt
	if math.Abs(x[0]-math.Cos(horizon)) > 1e-5 {
		t.Errorf("position drifted: got %.8f, want %.8f", x[0], math.Cos(horizon))
	}
}

func TestRK45EnergyConservation(t *testing.T) {
	integ := NewRK45()
	x := dynamics.State{1, 0}
	energy := func(x dynamics.State) float64 { return 0.5 * (x[0]*x[0] + x[1]*x[1]) }

	e0 := energy(x)
	for i := 0; i < 10000; i++ {
		x = integ.Step(oscillator{}, x, 0, float64(i)*0.01, 0.01)
	}

	if drift := math.Abs(energy(x)-e0) / e0; drift > 1e-6 {
		t.Errorf("energy drift too high: %e", drift)
	}
}

func TestRK45AcceptsEasyStep(t *testing.T) {
	integ := NewRK45()
	xNew, used, next, err := integ.StepAdaptive(oscillator{}, dynamics.State{1, 0}, 0, 0, 0.01, 1e-6)
	if err != nil {
		t.Fatalf("StepAdaptive: %v", err)
	}
	if !xNew.IsValid() {
		t.Error("invalid state from an accepted step")
	}
	if used != 0.01 {
		t.Errorf("an easy step should be accepted as attempted, used %g", used)
	}
	if next <= 0 {
		t.Errorf("next step suggestion must be positive, got %g", next)
	}
}

func TestRK45ShrinksRejectedSteps(t *testing.T) {
	integ := NewRK45()
	xNew, used, _, err := integ.StepAdaptive(oscillator{}, dynamics.State{1, 0}, 0, 0, 0.5, 1e-12)
	if err != nil {
		t.Fatalf("StepAdaptive: %v", err)
	}
	if used >= 0.5 {
		t.Errorf("a 0.5s step at tol 1e-12 should be rejected and shrunk, used %g", used)
	}
	if used <= 0 {
		t.Errorf("used step must be positive, got %g", used)
	}
	if !xNew.IsValid() {
		t.Error("invalid state after shrinking")
	}
}

func TestRK45GivesUpOnExplosiveDynamics(t *testing.T) {
	integ := NewRK45()
	_, _, _, err := integ.StepAdaptive(growth{rate: 1e30}, dynamics.State{1}, 0, 0, 0.1, 1e-9)
	if !errors.Is(err, dynamics.ErrStepTooSmall) {
		t.Fatalf("err = %v, want ErrStepTooSmall", err)
	}
}
