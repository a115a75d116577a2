package smc

import (
	"math"
	"testing"

	"github.com/mkrv/smctune/internal/dynamics"
)

func TestAdaptiveGainGrowsOffSurface(t *testing.T) {
	ctrl, err := NewAdaptive(Config{KInit: 5}, []float64{10, 8, 4, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	x := dynamics.State{0, 0.3, 0.2, 0, 0.5, 0.4} // well outside the dead zone
	for i := 0; i < 100; i++ {
		if _, err := ctrl.Compute(x, float64(i)*0.01, 0.01); err != nil {
			t.Fatal(err)
		}
	}
	if k := ctrl.Gain(); k <= 5 {
		t.Errorf("gain = %v, want growth above KInit=5", k)
	}
}

func TestAdaptiveGainLeaksInDeadZone(t *testing.T) {
	cfg := Config{KInit: 5, KMin: 1, LeakRate: 2, DeadZone: 0.05}
	ctrl, err := NewAdaptive(cfg, []float64{10, 8, 4, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	ctrl.k = 50

	zero := make(dynamics.State, 6) // sigma = 0, inside the dead zone
	for i := 0; i < 200; i++ {
		if _, err := ctrl.Compute(zero, float64(i)*0.01, 0.01); err != nil {
			t.Fatal(err)
		}
	}
	k := ctrl.Gain()
	if k >= 50 {
		t.Errorf("gain = %v, want decay from 50", k)
	}
	if k < 1 {
		t.Errorf("gain = %v leaked below KMin=1", k)
	}
}

func TestAdaptiveGainClampedAtKMax(t *testing.T) {
	cfg := Config{KInit: 5, KMax: 12}
	ctrl, err := NewAdaptive(cfg, []float64{10, 8, 4, 3, 20}) // gamma at the top of its box
	if err != nil {
		t.Fatal(err)
	}
	x := dynamics.State{0, 0.5, 0.5, 0, 1, 1}
	for i := 0; i < 2000; i++ {
		if _, err := ctrl.Compute(x, float64(i)*0.01, 0.01); err != nil {
			t.Fatal(err)
		}
	}
	if k := ctrl.Gain(); k != 12 {
		t.Errorf("gain = %v, want the KMax clamp at 12", k)
	}
}

func TestAdaptiveDeadZoneBlocksGrowth(t *testing.T) {
	cfg := Config{KInit: 5, DeadZone: 0.5, LeakRate: 0.1}
	ctrl, err := NewAdaptive(cfg, []float64{1, 1, 1, 1, 10})
	if err != nil {
		t.Fatal(err)
	}
	// sigma = 1*(0 + 1*0.1) + 1*(0 + 1*0.1) = 0.2, inside the 0.5 dead zone.
	x := dynamics.State{0, 0.1, 0.1, 0, 0, 0}
	for i := 0; i < 100; i++ {
		if _, err := ctrl.Compute(x, float64(i)*0.01, 0.01); err != nil {
			t.Fatal(err)
		}
	}
	if k := ctrl.Gain(); k > 5 {
		t.Errorf("gain = %v grew inside the dead zone", k)
	}
}

func TestAdaptiveReset(t *testing.T) {
	ctrl, err := NewAdaptive(Config{KInit: 7}, []float64{10, 8, 4, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	x := dynamics.State{0, 0.3, 0.2, 0, 0.5, 0.4}
	for i := 0; i < 50; i++ {
		ctrl.Compute(x, float64(i)*0.01, 0.01)
	}
	ctrl.Reset()
	if k := ctrl.Gain(); k != 7 {
		t.Errorf("gain = %v after Reset, want KInit=7", k)
	}
}

func TestAdaptiveOutputUsesPreUpdateGain(t *testing.T) {
	// With no plant, u = -K*sat(sigma/phi); the K in that expression must be
	// the gain before this step's adaptation.
	cfg := Config{KInit: 5, BoundaryLayer: 0.05}
	ctrl, err := NewAdaptive(cfg, []float64{1, 1, 1, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	x := dynamics.State{0, 0.5, 0.5, 0, 0, 0} // sigma = 1, saturated switch
	u, err := ctrl.Compute(x, 0, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(u-(-5)) > 1e-12 {
		t.Errorf("u = %v, want -KInit = -5", u)
	}
	if ctrl.Gain() <= 5 {
		t.Error("gain did not adapt after the step")
	}
}
