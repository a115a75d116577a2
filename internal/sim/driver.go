package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mkrv/smctune/internal/dynamics"
)

// ctxPollInterval bounds how often the step loop checks for cancellation.
const ctxPollInterval = 64

// Runner drives one plant + integrator + optional controller through a
// trajectory. A nil controller means an unforced run. Runners are not
// thread-safe; concurrent evaluations construct their own.
type Runner struct {
	sys     dynamics.System
	integ   dynamics.Integrator
	ctrl    dynamics.Controller
	metrics []dynamics.Metric
	disturb func(t float64) float64
}

func New(sys dynamics.System, integ dynamics.Integrator, ctrl dynamics.Controller) *Runner {
	return &Runner{
		sys:     sys,
		integ:   integ,
		ctrl:    ctrl,
		metrics: make([]dynamics.Metric, 0),
	}
}

func (r *Runner) AddMetric(m dynamics.Metric) { r.metrics = append(r.metrics, m) }

// SetDisturbance installs an additive force applied to the plant input but
// excluded from the recorded (commanded) control sequence.
func (r *Runner) SetDisturbance(f func(t float64) float64) { r.disturb = f }

// Run integrates from x0 over cfg.Duration. Configuration problems are
// returned as errors; numerical failures mid-trajectory are reported in the
// result (Success=false plus diagnostic) with the partial trajectory kept.
// Cancellation returns the partial result together with the context error.
func (r *Runner) Run(ctx context.Context, x0 dynamics.State, cfg dynamics.Config) (*dynamics.Result, error) {
	if err := r.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &dynamics.Result{
		Times:      make([]float64, 0, steps+1),
		States:     make([]dynamics.State, 0, steps+1),
		Controls:   make([]float64, 0, steps),
		Metrics:    make(map[string]float64),
		Integrator: r.integ.Name(),
		Dt:         cfg.Dt,
		Success:    true,
	}

	for _, m := range r.metrics {
		m.Reset()
	}
	if r.ctrl != nil {
		r.ctrl.Reset()
	}

	start := time.Now()
	x := x0.Clone()
	result.Times = append(result.Times, 0)
	result.States = append(result.States, x.Clone())

	initialEnergy := r.energy(x)

	if cfg.Adaptive {
		r.runAdaptive(ctx, x, cfg, result)
	} else {
		r.runFixed(ctx, x, cfg, steps, result)
	}

	result.Elapsed = time.Since(start)

	final := result.States[len(result.States)-1]
	finalEnergy := r.energy(final)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) runFixed(ctx context.Context, x dynamics.State, cfg dynamics.Config, steps int, result *dynamics.Result) {
	t := 0.0
	for i := 0; i < steps; i++ {
		if i%ctxPollInterval == 0 && ctx.Err() != nil {
			return
		}

		u, ok := r.command(x, t, cfg.Dt, i, result)
		if !ok {
			return
		}

		for _, m := range r.metrics {
			m.Observe(x, u, t)
		}

		newX := r.integ.Step(r.sys, x, r.applied(u, t), t, cfg.Dt)
		if cfg.ValidateState && !newX.IsValid() {
			r.fail(result, i, t, newX, dynamics.ErrInvalidState)
			return
		}

		x = newX
		t += cfg.Dt
		result.Steps++
		result.Times = append(result.Times, t)
		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
	}
}

func (r *Runner) runAdaptive(ctx context.Context, x dynamics.State, cfg dynamics.Config, result *dynamics.Result) {
	adaptive, ok := r.integ.(dynamics.AdaptiveIntegrator)
	if !ok {
		result.Success = false
		result.Failure = fmt.Errorf("integrator %s does not support adaptive stepping", r.integ.Name())
		return
	}

	t := 0.0
	h := cfg.Dt
	for i := 0; t < cfg.Duration; i++ {
		if i%ctxPollInterval == 0 && ctx.Err() != nil {
			return
		}
		if h > cfg.Duration-t {
			h = cfg.Duration - t
		}

		u, ok := r.command(x, t, h, i, result)
		if !ok {
			return
		}

		for _, m := range r.metrics {
			m.Observe(x, u, t)
		}

		newX, used, next, err := adaptive.StepAdaptive(r.sys, x, r.applied(u, t), t, h, cfg.Tolerance)
		if err != nil {
			r.fail(result, i, t, x, err)
			return
		}
		if cfg.ValidateState && !newX.IsValid() {
			r.fail(result, i, t, newX, dynamics.ErrInvalidState)
			return
		}

		x = newX
		t += used
		h = math.Min(math.Max(next, cfg.MinDt), cfg.MaxDt)
		result.Steps++
		result.Times = append(result.Times, t)
		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
	}
}

// command asks the controller for the step input; a controller error aborts
// the run with a flagged result.
func (r *Runner) command(x dynamics.State, t, dt float64, step int, result *dynamics.Result) (float64, bool) {
	if r.ctrl == nil {
		return 0, true
	}
	u, err := r.ctrl.Compute(x, t, dt)
	if err != nil {
		r.fail(result, step, t, x, err)
		return 0, false
	}
	if math.IsNaN(u) || math.IsInf(u, 0) {
		r.fail(result, step, t, x, dynamics.ErrInvalidState)
		return 0, false
	}
	return u, true
}

func (r *Runner) applied(u, t float64) float64 {
	if r.disturb == nil {
		return u
	}
	return u + r.disturb(t)
}

func (r *Runner) fail(result *dynamics.Result, step int, t float64, x dynamics.State, err error) {
	result.Success = false
	result.Failure = &dynamics.NumericalError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
}

func (r *Runner) validate(x0 dynamics.State, cfg dynamics.Config) error {
	if cfg.Dt <= 0 {
		return &dynamics.NumericalError{Wrapped: dynamics.ErrBadTimestep}
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if len(x0) != r.sys.StateDim() {
		return dynamics.ErrDimensionMismatch
	}
	if !x0.IsValid() {
		return &dynamics.NumericalError{State: x0.Clone(), Wrapped: dynamics.ErrInvalidState}
	}
	return nil
}

func (r *Runner) energy(x dynamics.State) float64 {
	if h, ok := r.sys.(dynamics.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}
