package analysis

import (
	"math"
	"testing"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/integrators"
	"github.com/mkrv/smctune/internal/plant"
	"github.com/mkrv/smctune/internal/smc"
)

type dampedOscillator struct{}

func (dampedOscillator) Derive(x dynamics.State, u, t float64) dynamics.State {
	return dynamics.State{x[1], -x[0] - 0.5*x[1]}
}

func (dampedOscillator) StateDim() int { return 2 }

func TestSpectrumFindsSineFrequency(t *testing.T) {
	const (
		dt = 0.01
		n  = 512
		f  = 2.0
	)
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = 3.0 + math.Sin(2*math.Pi*f*float64(i)*dt)
	}

	power, freqs := Spectrum(signal, dt)
	if power == nil {
		t.Fatal("expected a spectrum for a 512-sample signal")
	}
	if len(power) != len(freqs) {
		t.Fatalf("power and freqs lengths differ: %d vs %d", len(power), len(freqs))
	}

	peak := 0
	for i := 1; i < len(power); i++ {
		if power[i] > power[peak] {
			peak = i
		}
	}
	resolution := 1.0 / (float64(n) * dt)
	if math.Abs(freqs[peak]-f) > resolution {
		t.Errorf("peak at %.3f Hz, want %.1f Hz within %.3f", freqs[peak], f, resolution)
	}
}

func TestSpectrumRejectsDegenerateInput(t *testing.T) {
	if p, fr := Spectrum([]float64{1, 2, 3}, 0.01); p != nil || fr != nil {
		t.Error("expected nil spectrum for a 3-sample signal")
	}
	if p, _ := Spectrum(make([]float64, 16), 0); p != nil {
		t.Error("expected nil spectrum for dt = 0")
	}
}

func TestChatterIndexSeparatesRelayFromSmooth(t *testing.T) {
	const (
		dt = 0.01
		n  = 1000
	)
	relay := make([]float64, n)
	smooth := make([]float64, n)
	for i := range relay {
		if i%2 == 0 {
			relay[i] = 1
		} else {
			relay[i] = -1
		}
		smooth[i] = math.Sin(2 * math.Pi * 0.5 * float64(i) * dt)
	}

	hi := ChatterIndex(relay, dt, 10)
	lo := ChatterIndex(smooth, dt, 10)
	if hi < 0.9 {
		t.Errorf("relay index = %.3f, want > 0.9", hi)
	}
	if lo > 0.05 {
		t.Errorf("smooth index = %.3f, want < 0.05", lo)
	}
}

func TestChatterIndexFlatOrShortSignal(t *testing.T) {
	flat := make([]float64, 128)
	for i := range flat {
		flat[i] = 7.5
	}
	if idx := ChatterIndex(flat, 0.01, 10); idx != 0 {
		t.Errorf("flat signal index = %v, want 0", idx)
	}
	if idx := ChatterIndex([]float64{1, -1}, 0.01, 10); idx != 0 {
		t.Errorf("short signal index = %v, want 0", idx)
	}
}

func TestSurfaceSeries(t *testing.T) {
	surf := smc.Surface{K1: 2, K2: 3, Lam1: 1, Lam2: 1}
	states := []dynamics.State{
		{0, 0.1, 0.2, 0, 0, 0},
		{0, 0, 0, 0, 0.5, -0.5},
	}

	sigma := SurfaceSeries(states, surf, nil)
	if len(sigma) != 2 {
		t.Fatalf("len = %d, want 2", len(sigma))
	}
	want0 := 2*0.1 + 3*0.2
	want1 := 2*0.5 + 3*(-0.5)
	if math.Abs(sigma[0]-want0) > 1e-12 || math.Abs(sigma[1]-want1) > 1e-12 {
		t.Errorf("sigma = %v, want [%v %v]", sigma, want0, want1)
	}
}

func TestReachingFraction(t *testing.T) {
	decay := make([]float64, 100)
	grow := make([]float64, 100)
	for i := range decay {
		decay[i] = 2 * math.Pow(0.9, float64(i))
		grow[i] = 0.5 * math.Pow(1.05, float64(i))
	}

	if got := ReachingFraction(decay, 0.01, 1e-9); got != 1 {
		t.Errorf("decaying surface fraction = %v, want 1", got)
	}
	if got := ReachingFraction(grow, 0.01, 1e-9); got != 0 {
		t.Errorf("growing surface fraction = %v, want 0", got)
	}
}

func TestReachingFractionSkipsSamplesInsideBand(t *testing.T) {
	inside := []float64{1e-4, -1e-4, 5e-5, -5e-5}
	if got := ReachingFraction(inside, 0.01, 1e-3); got != 1 {
		t.Errorf("all-inside fraction = %v, want 1", got)
	}
	if got := ReachingFraction([]float64{1}, 0.01, 0); got != 0 {
		t.Errorf("single sample fraction = %v, want 0", got)
	}
}

func TestLargestExponentSignMatchesStability(t *testing.T) {
	dip := plant.NewDoublePendulum(plant.DefaultParams())
	integ := integrators.NewRK4()

	near := dynamics.State{0, 0.01, -0.01, 0, 0, 0}
	lam := LargestExponent(dip, integ, near, 1e-3, 2.0, 1e-8)
	if lam <= 0 {
		t.Errorf("unforced pendulum near upright: exponent = %v, want > 0", lam)
	}

	stable := LargestExponent(dampedOscillator{}, integ, dynamics.State{1, 0}, 1e-2, 10.0, 1e-8)
	if stable >= 0 {
		t.Errorf("damped oscillator exponent = %v, want < 0", stable)
	}
}

func TestLargestExponentDegenerateArgs(t *testing.T) {
	if lam := LargestExponent(dampedOscillator{}, integrators.NewEuler(), nil, 0.01, 1, 1e-6); lam != 0 {
		t.Errorf("nil state exponent = %v, want 0", lam)
	}
	if lam := LargestExponent(dampedOscillator{}, integrators.NewEuler(), dynamics.State{1, 0}, 0, 1, 1e-6); lam != 0 {
		t.Errorf("zero dt exponent = %v, want 0", lam)
	}
}
