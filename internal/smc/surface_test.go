package smc

import (
	"errors"
	"math"
	"testing"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/plant"
)

func testPlant() *plant.DoublePendulum {
	return plant.NewDoublePendulum(plant.DefaultParams())
}

func TestSigmaAtTargetIsZero(t *testing.T) {
	surf := Surface{K1: 5, K2: 5, Lam1: 4, Lam2: 3}
	target := dynamics.State{0.3, 0.1, -0.2, 0, 0.05, -0.04}
	if got := surf.Sigma(target.Clone(), target); got != 0 {
		t.Errorf("sigma at target = %v, want 0", got)
	}
}

func TestSigmaKnownValue(t *testing.T) {
	surf := Surface{K1: 2, K2: 3, Lam1: 4, Lam2: 5}
	x := dynamics.State{0, 0.1, 0.2, 0, 0.3, 0.4}
	// 2*(0.3 + 4*0.1) + 3*(0.4 + 5*0.2) = 1.4 + 4.2
	want := 5.6
	if got := surf.Sigma(x, nil); math.Abs(got-want) > 1e-12 {
		t.Errorf("sigma = %v, want %v", got, want)
	}
}

func TestSigmaDotMatchesDifference(t *testing.T) {
	// The surface is linear in the state, so SigmaDot must equal the exact
	// directional difference along the derivative.
	surf := Surface{K1: 5, K2: 4, Lam1: 3, Lam2: 2}
	sys := testPlant()
	x := dynamics.State{0.1, 0.2, -0.15, 0.3, -0.4, 0.25}
	d := sys.Derive(x, 2.5, 0)

	const eps = 1e-6
	moved := x.Add(d.Scale(eps))
	want := (surf.Sigma(moved, nil) - surf.Sigma(x, nil)) / eps
	got := surf.SigmaDot(x, d)
	if math.Abs(got-want) > 1e-6*math.Max(1, math.Abs(want)) {
		t.Errorf("SigmaDot = %v, directional difference = %v", got, want)
	}
}

func TestAuthorityMatchesProbes(t *testing.T) {
	surf := Surface{K1: 5, K2: 5, Lam1: 4, Lam2: 3}
	sys := testPlant()
	x := dynamics.State{0, 0.1, -0.08, 0, 0.2, -0.1}

	a, b, ok := authority(surf, sys, x, 0)
	if !ok {
		t.Fatal("authority not recovered")
	}
	// sigmadot at an arbitrary input must match a*u + b.
	for _, u := range []float64{-3, 0, 1, 7.5} {
		want := surf.SigmaDot(x, sys.Derive(x, u, 0))
		got := a*u + b
		if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Errorf("u=%v: a*u+b = %v, sigmadot = %v", u, got, want)
		}
	}

	if _, _, ok := authority(surf, nil, x, 0); ok {
		t.Error("authority reported ok without a plant")
	}
}

func TestSwitchTanh(t *testing.T) {
	if got := SwitchTanh(0.05, 0.05); math.Abs(got-math.Tanh(1)) > 1e-12 {
		t.Errorf("tanh switch = %v", got)
	}
	if got := SwitchTanh(-2, 0); got != -1 {
		t.Errorf("degenerate switch = %v, want -1", got)
	}
	if got := SwitchTanh(0, 0); got != 0 {
		t.Errorf("sign(0) = %v, want 0", got)
	}
}

func TestSwitchLinear(t *testing.T) {
	cases := []struct{ sigma, phi, want float64 }{
		{0.02, 0.05, 0.4},
		{0.2, 0.05, 1},
		{-0.2, 0.05, -1},
		{0.3, 0, 1},
	}
	for _, c := range cases {
		if got := SwitchLinear(c.sigma, c.phi); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("SwitchLinear(%v, %v) = %v, want %v", c.sigma, c.phi, got, c.want)
		}
	}
}

func TestCheckStep(t *testing.T) {
	good := dynamics.State{0, 0, 0, 0, 0, 0}
	if err := checkStep(good, 0.01); err != nil {
		t.Fatalf("valid step rejected: %v", err)
	}
	if err := checkStep(good, 0); err == nil {
		t.Error("dt=0 accepted")
	}
	if err := checkStep(good, math.NaN()); err == nil {
		t.Error("dt=NaN accepted")
	}
	bad := dynamics.State{0, math.NaN(), 0, 0, 0, 0}
	err := checkStep(bad, 0.01)
	var nerr *dynamics.NumericalError
	if !errors.As(err, &nerr) {
		t.Errorf("want *dynamics.NumericalError, got %v", err)
	}
	if !errors.Is(err, dynamics.ErrInvalidState) {
		t.Error("error does not unwrap to ErrInvalidState")
	}
}
