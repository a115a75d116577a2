package cost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/integrators"
	"github.com/mkrv/smctune/internal/sim"
	"github.com/mkrv/smctune/internal/smc"
)

const (
	// DefaultPenalty is the fixed cost of a failed candidate, far above any
	// feasible trajectory so optimizers route around it.
	DefaultPenalty = 1e6

	// DefaultEvalTimeout bounds one full evaluation across all scenarios.
	DefaultEvalTimeout = 10 * time.Second

	// DefaultSettleBand is the angle-error band (rad) the settling metric
	// requires the trajectory to stay inside.
	DefaultSettleBand = 0.02

	// saturationShare flags candidates that ride the actuator limit for
	// nearly the whole run; they stabilize nothing and score the penalty.
	saturationShare = 0.95
)

// Weights scale the raw metric values into comparable cost terms.
type Weights struct {
	Tracking   float64 `yaml:"tracking" json:"tracking"`
	Effort     float64 `yaml:"effort" json:"effort"`
	Settling   float64 `yaml:"settling" json:"settling"`
	Chattering float64 `yaml:"chattering" json:"chattering"`
	Overshoot  float64 `yaml:"overshoot" json:"overshoot"`
}

func DefaultWeights() Weights {
	return Weights{
		Tracking:   1.0,
		Effort:     0.01,
		Settling:   0.1,
		Chattering: 0.005,
		Overshoot:  0.05,
	}
}

// Breakdown is one candidate's scored cost: the weighted contributions and
// their total. Penalty marks a candidate that failed (validation, numeric
// blowup, timeout, persistent saturation); Total then carries the fixed
// penalty value and Reason says why.
type Breakdown struct {
	Tracking   float64 `json:"tracking"`
	Effort     float64 `json:"effort"`
	Settling   float64 `json:"settling"`
	Chattering float64 `json:"chattering"`
	Overshoot  float64 `json:"overshoot"`
	Total      float64 `json:"total"`
	Penalty    bool    `json:"penalty"`
	Reason     string  `json:"reason,omitempty"`
}

// Evaluator scores gain vectors by closed-loop simulation over a scenario
// set, averaging the weighted terms across scenarios. Every per-candidate
// failure folds into the fixed penalty so an optimizer always receives a
// finite, comparable scalar. Fields may be adjusted before the first
// Evaluate; concurrent Evaluate calls are safe because each one builds its
// own controller, integrator, and runner.
type Evaluator struct {
	Factory    *smc.Factory
	Scenarios  []Scenario
	Weights    Weights
	Sim        dynamics.Config
	Integrator string
	Penalty    float64
	Timeout    time.Duration // zero disables the per-evaluation deadline
}

// NewEvaluator wires an evaluator with the package defaults: RK4 stepping,
// a 5 second horizon per scenario, and the default weights.
func NewEvaluator(f *smc.Factory, scenarios []Scenario) (*Evaluator, error) {
	if f == nil || f.Config().Plant == nil {
		return nil, errors.New("cost: evaluator needs a factory with a plant")
	}
	if len(scenarios) == 0 {
		return nil, errors.New("cost: at least one scenario required")
	}
	simCfg := dynamics.DefaultConfig()
	simCfg.Duration = 5.0
	return &Evaluator{
		Factory:    f,
		Scenarios:  scenarios,
		Weights:    DefaultWeights(),
		Sim:        simCfg,
		Integrator: "rk4",
		Penalty:    DefaultPenalty,
		Timeout:    DefaultEvalTimeout,
	}, nil
}

// Evaluate scores one candidate. The returned error is reserved for an
// unusable evaluator (unknown variant or integrator, broken sim settings);
// anything wrong with the candidate itself comes back as a penalty
// breakdown with a nil error.
func (e *Evaluator) Evaluate(ctx context.Context, v smc.Variant, gains []float64) (Breakdown, error) {
	if _, err := smc.Spec(v); err != nil {
		return Breakdown{}, err
	}
	if err := smc.Validate(v, gains); err != nil {
		return e.penalized(err.Error()), nil
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var sum Breakdown
	for _, sc := range e.Scenarios {
		b, err := e.runScenario(ctx, v, gains, sc)
		if err != nil {
			return Breakdown{}, err
		}
		if b.Penalty {
			return b, nil
		}
		sum.Tracking += b.Tracking
		sum.Effort += b.Effort
		sum.Settling += b.Settling
		sum.Chattering += b.Chattering
		sum.Overshoot += b.Overshoot
	}

	n := float64(len(e.Scenarios))
	out := Breakdown{
		Tracking:   sum.Tracking / n,
		Effort:     sum.Effort / n,
		Settling:   sum.Settling / n,
		Chattering: sum.Chattering / n,
		Overshoot:  sum.Overshoot / n,
	}
	out.Total = out.Tracking + out.Effort + out.Settling + out.Chattering + out.Overshoot
	return out, nil
}

func (e *Evaluator) runScenario(ctx context.Context, v smc.Variant, gains []float64, sc Scenario) (Breakdown, error) {
	ctrl, err := e.Factory.Create(v, gains)
	if err != nil {
		var lockErr *smc.LockTimeoutError
		if errors.As(err, &lockErr) {
			// The registry lock is held only for counter updates; one
			// retry clears transient contention.
			ctrl, err = e.Factory.Create(v, gains)
		}
		if err != nil {
			return e.penalized(err.Error()), nil
		}
	}

	integ, err := integrators.New(e.Integrator)
	if err != nil {
		return Breakdown{}, err
	}

	target := e.Factory.Config().Target
	track := NewTrackingISE(target)
	rms := NewControlRMS()
	chat := NewChattering()
	over := NewOvershoot(target)
	settle := NewSettling(target, DefaultSettleBand)

	runner := sim.New(e.Factory.Config().Plant, integ, ctrl)
	runner.AddMetric(track)
	runner.AddMetric(rms)
	runner.AddMetric(chat)
	runner.AddMetric(over)
	runner.AddMetric(settle)
	if len(sc.Pulses) > 0 {
		runner.SetDisturbance(sc.Disturbance)
	}

	res, err := runner.Run(ctx, sc.Init, e.Sim)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return e.penalized(fmt.Sprintf("scenario %s: evaluation timed out", sc.Name)), nil
		case errors.Is(err, context.Canceled):
			return e.penalized(fmt.Sprintf("scenario %s: evaluation cancelled", sc.Name)), nil
		default:
			return Breakdown{}, err
		}
	}
	if !res.Success {
		return e.penalized(fmt.Sprintf("scenario %s: %v", sc.Name, res.Failure)), nil
	}
	if saturatedShare(res.Controls, e.Factory.Config().MaxForce) > saturationShare {
		return e.penalized(fmt.Sprintf("scenario %s: persistent saturation", sc.Name)), nil
	}

	w := e.Weights
	return Breakdown{
		Tracking:   w.Tracking * track.Value(),
		Effort:     w.Effort * rms.Value(),
		Settling:   w.Settling * settle.Value(),
		Chattering: w.Chattering * chat.Value(),
		Overshoot:  w.Overshoot * over.Value(),
	}, nil
}

func (e *Evaluator) penalized(reason string) Breakdown {
	return Breakdown{Total: e.Penalty, Penalty: true, Reason: reason}
}

func saturatedShare(us []float64, maxForce float64) float64 {
	if len(us) == 0 || maxForce <= 0 {
		return 0
	}
	limit := 0.999 * maxForce
	n := 0
	for _, u := range us {
		if math.Abs(u) >= limit {
			n++
		}
	}
	return float64(n) / float64(len(us))
}

// Func adapts the evaluator to an optimizer objective: a finite scalar for
// any position, the penalty on any internal error.
func (e *Evaluator) Func(v smc.Variant) func(ctx context.Context, pos []float64) float64 {
	return func(ctx context.Context, pos []float64) float64 {
		b, err := e.Evaluate(ctx, v, pos)
		if err != nil {
			return e.Penalty
		}
		return b.Total
	}
}
