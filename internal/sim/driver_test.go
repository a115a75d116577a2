package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/integrators"
	"github.com/mkrv/smctune/internal/plant"
	"github.com/mkrv/smctune/internal/smc"
)

type decay struct{}

func (decay) Derive(x dynamics.State, u float64, t float64) dynamics.State {
	return dynamics.State{-x[0]}
}

func (decay) StateDim() int { return 1 }

type spring struct{}

func (spring) Derive(x dynamics.State, u float64, t float64) dynamics.State {
	return dynamics.State{x[1], -x[0]}
}

func (spring) StateDim() int { return 2 }

type pump struct{}

func (pump) Derive(x dynamics.State, u float64, t float64) dynamics.State {
	return dynamics.State{u}
}

func (pump) StateDim() int { return 1 }

type flakyController struct {
	failAt int
	calls  int
}

func (c *flakyController) Compute(x dynamics.State, t, dt float64) (float64, error) {
	if c.calls == c.failAt {
		return 0, errors.New("controller gave up")
	}
	c.calls++
	return 0.5, nil
}

func (c *flakyController) Reset() { c.calls = 0 }

type nanController struct{}

func (nanController) Compute(x dynamics.State, t, dt float64) (float64, error) {
	return math.NaN(), nil
}

func (nanController) Reset() {}

type meanMetric struct {
	count int
	sum   float64
}

func (m *meanMetric) Name() string { return "mean_x" }
func (m *meanMetric) Observe(x dynamics.State, u float64, t float64) {
	m.count++
	m.sum += x[0]
}
func (m *meanMetric) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
func (m *meanMetric) Reset() {
	m.count = 0
	m.sum = 0
}

func fixedCfg(dt, duration float64) dynamics.Config {
	cfg := dynamics.DefaultConfig()
	cfg.Dt = dt
	cfg.Duration = duration
	return cfg
}

func TestRunnerFixedStep(t *testing.T) {
	runner := New(decay{}, integrators.NewEuler(), nil)
	res, err := runner.Run(context.Background(), dynamics.State{1}, fixedCfg(0.1, 1.0))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	if len(res.States) != 11 || len(res.Times) != 11 {
		t.Fatalf("got %d states, %d times, want 11 each", len(res.States), len(res.Times))
	}
	if len(res.Controls) != 10 {
		t.Fatalf("got %d controls, want 10", len(res.Controls))
	}
	if got, want := res.States[10][0], math.Exp(-1.0); math.Abs(got-want) > 0.2 {
		t.Errorf("final state %.4f, want about %.4f", got, want)
	}
	if math.Abs(res.Times[10]-1.0) > 1e-9 {
		t.Errorf("final time %.12f, want 1.0", res.Times[10])
	}
}

func TestRunnerRejectsBadSetup(t *testing.T) {
	tests := []struct {
		name string
		x0   dynamics.State
		cfg  dynamics.Config
	}{
		{"zero dt", dynamics.State{1}, dynamics.Config{Dt: 0, Duration: 1}},
		{"negative dt", dynamics.State{1}, dynamics.Config{Dt: -0.1, Duration: 1}},
		{"zero duration", dynamics.State{1}, dynamics.Config{Dt: 0.1, Duration: 0}},
		{"adaptive without tolerance", dynamics.State{1}, dynamics.Config{Dt: 0.1, Duration: 1, Adaptive: true}},
		{"dimension mismatch", dynamics.State{1, 0}, fixedCfg(0.1, 1.0)},
		{"invalid start", dynamics.State{math.NaN()}, fixedCfg(0.1, 1.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := New(decay{}, integrators.NewEuler(), nil)
			if _, err := runner.Run(context.Background(), tt.x0, tt.cfg); err == nil {
				t.Error("expected a setup error, got nil")
			}
		})
	}
}

func TestControllerErrorAbortsRun(t *testing.T) {
	runner := New(pump{}, integrators.NewEuler(), &flakyController{failAt: 3})
	res, err := runner.Run(context.Background(), dynamics.State{0}, fixedCfg(0.1, 1.0))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected a flagged result")
	}
	var numErr *dynamics.NumericalError
	if !errors.As(res.Failure, &numErr) {
		t.Fatalf("failure = %T, want *NumericalError", res.Failure)
	}
	if numErr.Step != 3 {
		t.Errorf("failed at step %d, want 3", numErr.Step)
	}
	if len(res.States) != 4 {
		t.Errorf("kept %d states, want the initial sample plus 3 steps", len(res.States))
	}
}

func TestNaNControlFlagsRun(t *testing.T) {
	runner := New(pump{}, integrators.NewEuler(), nanController{})
	res, err := runner.Run(context.Background(), dynamics.State{0}, fixedCfg(0.1, 1.0))
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected a flagged result")
	}
	if !errors.Is(res.Failure, dynamics.ErrInvalidState) {
		t.Errorf("failure = %v, want ErrInvalidState", res.Failure)
	}
}

func TestCancellationKeepsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := New(decay{}, integrators.NewEuler(), nil)
	res, err := runner.Run(ctx, dynamics.State{1}, fixedCfg(0.1, 1.0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil {
		t.Fatal("cancelled run must keep its partial result")
	}
	if !res.Success {
		t.Error("cancellation is not a numerical failure")
	}
	if len(res.States) == 0 {
		t.Error("partial result lost the initial state")
	}
}

func TestDisturbanceExcludedFromControls(t *testing.T) {
	runner := New(pump{}, integrators.NewEuler(), nil)
	runner.SetDisturbance(func(t float64) float64 { return 2.0 })

	res, err := runner.Run(context.Background(), dynamics.State{0}, fixedCfg(0.1, 1.0))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i, u := range res.Controls {
		if u != 0 {
			t.Fatalf("control %d = %v, want 0 (disturbance must not be recorded)", i, u)
		}
	}
	if got := res.States[len(res.States)-1][0]; math.Abs(got-2.0) > 1e-9 {
		t.Errorf("final state %.6f, want 2.0 from the disturbance alone", got)
	}
}

func TestAdaptiveNeedsAdaptiveIntegrator(t *testing.T) {
	cfg := fixedCfg(0.01, 1.0)
	cfg.Adaptive = true

	runner := New(spring{}, integrators.NewEuler(), nil)
	res, err := runner.Run(context.Background(), dynamics.State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if res.Success || res.Failure == nil {
		t.Error("expected a flagged result for a fixed-step integrator")
	}
}

func TestAdaptiveRunReachesHorizon(t *testing.T) {
	cfg := fixedCfg(0.01, 1.0)
	cfg.Adaptive = true

	runner := New(spring{}, integrators.NewRK45(), nil)
	res, err := runner.Run(context.Background(), dynamics.State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Failure)
	}
	if last := res.Times[len(res.Times)-1]; math.Abs(last-1.0) > 1e-9 {
		t.Errorf("stopped at t=%.12f, want 1.0", last)
	}
	if got, want := res.States[len(res.States)-1][0], math.Cos(1.0); math.Abs(got-want) > 1e-4 {
		t.Errorf("final position %.6f, want %.6f", got, want)
	}
}

func TestMetricsObservedEveryStep(t *testing.T) {
	runner := New(decay{}, integrators.NewEuler(), nil)
	m := &meanMetric{}
	runner.AddMetric(m)

	res, err := runner.Run(context.Background(), dynamics.State{1}, fixedCfg(0.1, 1.0))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if m.count != 10 {
		t.Errorf("observed %d samples, want 10", m.count)
	}
	if _, ok := res.Metrics["mean_x"]; !ok {
		t.Error("metric missing from the result")
	}
}

func TestClosedLoopKeepsPendulumUp(t *testing.T) {
	sys := plant.NewDoublePendulum(plant.DefaultParams())
	factory := smc.NewFactory(smc.Config{Plant: sys})
	spec, err := smc.Spec(smc.VariantClassical)
	if err != nil {
		t.Fatal(err)
	}
	ctrl, err := factory.Create(smc.VariantClassical, spec.Defaults)
	if err != nil {
		t.Fatal(err)
	}

	runner := New(sys, integrators.NewRK4(), ctrl)
	res, err := runner.Run(context.Background(), dynamics.State{0, 0.1, -0.05, 0, 0, 0}, fixedCfg(0.01, 5.0))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("closed loop diverged: %v", res.Failure)
	}

	final := res.States[len(res.States)-1]
	if math.Abs(final[plant.IdxTheta1]) > 0.2 || math.Abs(final[plant.IdxTheta2]) > 0.2 {
		t.Errorf("pendulum fell: th1=%.4f th2=%.4f", final[plant.IdxTheta1], final[plant.IdxTheta2])
	}
	for i, u := range res.Controls {
		if math.Abs(u) > smc.DefaultMaxForce+1e-9 {
			t.Fatalf("control %d = %.2f exceeds the actuator limit", i, u)
		}
	}
}

func TestLongHorizonRunStaysBounded(t *testing.T) {
	sys := plant.NewDoublePendulum(plant.DefaultParams())
	factory := smc.NewFactory(smc.Config{Plant: sys})
	ctrl, err := factory.Create(smc.VariantClassical, []float64{5, 5, 5, 5, 0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}

	runner := New(sys, integrators.NewRK4(), ctrl)
	x0 := dynamics.State{0, 0, 0.2, 0.1, 0, 0}
	res, err := runner.Run(context.Background(), x0, fixedCfg(0.01, 10.0))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("trajectory went non-finite: %v", res.Failure)
	}
	for i, x := range res.States {
		if !x.IsValid() {
			t.Fatalf("state %d is non-finite: %v", i, x)
		}
	}
	for i, u := range res.Controls {
		if math.Abs(u) > smc.DefaultMaxForce+1e-9 {
			t.Fatalf("control %d = %.2f exceeds the actuator limit", i, u)
		}
	}
}
