package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Objective scores a candidate position; lower is better. Implementations
// must be safe for concurrent calls and must return a finite value for any
// in-bounds position (fold failures into a penalty).
type Objective func(ctx context.Context, pos []float64) float64

// ErrBadConfig is the sentinel for unusable optimizer setups: empty or
// inverted bounds, non-positive swarm sizes, a nil objective.
var ErrBadConfig = errors.New("optim: invalid configuration")

// BoundsPolicy says what happens to a particle that steps outside the box.
type BoundsPolicy string

const (
	// BoundsReflect bounces the position off the wall and reverses half the
	// velocity, keeping the swarm exploring the interior.
	BoundsReflect BoundsPolicy = "reflect"
	// BoundsClip pins the position to the wall.
	BoundsClip BoundsPolicy = "clip"
)

// Config holds the swarm hyperparameters. Zero fields take the defaults.
type Config struct {
	Particles  int
	Iterations int
	Inertia    float64
	Cognitive  float64 // c1, pull toward the particle's own best
	Social     float64 // c2, pull toward the swarm best
	VMax       float64 // per-dimension velocity cap as a fraction of the bound span
	Seed       int64
	Patience   int     // iterations without improvement before stopping
	Tolerance  float64 // improvement below this counts as stagnation
	Workers    int     // parallel evaluations; <= 0 means GOMAXPROCS
	Bounds     BoundsPolicy
}

// DefaultConfig returns the standard constriction-style setup. Cognitive
// and social sum above 4, the classic stability condition.
func DefaultConfig() Config {
	return Config{
		Particles:  30,
		Iterations: 100,
		Inertia:    0.72,
		Cognitive:  2.05,
		Social:     2.05,
		VMax:       0.25,
		Seed:       1,
		Patience:   20,
		Tolerance:  1e-6,
		Bounds:     BoundsReflect,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Particles == 0 {
		c.Particles = d.Particles
	}
	if c.Iterations == 0 {
		c.Iterations = d.Iterations
	}
	if c.Inertia == 0 {
		c.Inertia = d.Inertia
	}
	if c.Cognitive == 0 {
		c.Cognitive = d.Cognitive
	}
	if c.Social == 0 {
		c.Social = d.Social
	}
	if c.VMax == 0 {
		c.VMax = d.VMax
	}
	if c.Patience == 0 {
		c.Patience = d.Patience
	}
	if c.Tolerance == 0 {
		c.Tolerance = d.Tolerance
	}
	if c.Bounds == "" {
		c.Bounds = d.Bounds
	}
	return c
}

func (c Config) validate() error {
	if c.Particles < 1 {
		return fmt.Errorf("%w: particles must be positive, got %d", ErrBadConfig, c.Particles)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrBadConfig, c.Iterations)
	}
	if c.VMax <= 0 {
		return fmt.Errorf("%w: vmax must be positive, got %v", ErrBadConfig, c.VMax)
	}
	if c.Bounds != BoundsReflect && c.Bounds != BoundsClip {
		return fmt.Errorf("%w: unknown bounds policy %q", ErrBadConfig, c.Bounds)
	}
	return nil
}

// IterationStats is the per-barrier progress snapshot handed to the
// OnIteration hook.
type IterationStats struct {
	Iteration   int
	BestCost    float64
	MeanCost    float64
	BestPos     []float64
	Evaluations int
}

// Result is the outcome of one optimization run.
type Result struct {
	BestPos     []float64
	BestCost    float64
	History     []float64 // best cost after each iteration (grid: each improvement)
	Iterations  int
	Evaluations int
	Converged   bool
	StopReason  string
	Seed        int64
}

type particle struct {
	pos      []float64
	vel      []float64
	best     []float64
	bestCost float64
	cost     float64
}

// Swarm is a global-best particle swarm over a box. Evaluation fans out to
// a bounded worker pool; everything touching the random stream or the
// shared bests happens serially in particle-index order, so a fixed seed
// reproduces the run bit for bit at any worker count.
type Swarm struct {
	cfg   Config
	lower []float64
	upper []float64
	vmax  []float64
	obj   Objective
	rng   *rand.Rand

	parts     []particle
	gbest     []float64
	gbestCost float64
	evals     int

	// OnIteration, when set, is called synchronously at every iteration
	// barrier with the committed snapshot.
	OnIteration func(IterationStats)
}

// NewSwarm validates the setup and seeds the random stream. A cognitive +
// social sum at or below 4 is accepted but logged, since such swarms tend
// to collapse early.
func NewSwarm(cfg Config, lower, upper []float64, obj Objective) (*Swarm, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: nil objective", ErrBadConfig)
	}
	if len(lower) == 0 || len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: bounds must be non-empty and equal length", ErrBadConfig)
	}
	vmax := make([]float64, len(lower))
	for d := range lower {
		if !(lower[d] < upper[d]) {
			return nil, fmt.Errorf("%w: lower bound %v not below upper %v at dim %d",
				ErrBadConfig, lower[d], upper[d], d)
		}
		vmax[d] = cfg.VMax * (upper[d] - lower[d])
	}

	if cfg.Cognitive+cfg.Social <= 4 {
		slog.Warn("swarm attraction weights sum to 4 or less; expect premature convergence",
			"cognitive", cfg.Cognitive, "social", cfg.Social)
	}

	return &Swarm{
		cfg:   cfg,
		lower: append([]float64(nil), lower...),
		upper: append([]float64(nil), upper...),
		vmax:  vmax,
		obj:   obj,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run iterates until the budget, stagnation, or cancellation. Cancellation
// is honored between iterations: the best result found so far is returned
// together with the context error.
func (s *Swarm) Run(ctx context.Context) (*Result, error) {
	s.init()
	s.evaluate(ctx)
	s.commit()

	history := []float64{s.gbestCost}
	s.emit(0)

	best := s.gbestCost
	stale := 0
	converged := false
	stop := "iteration budget exhausted"

	iters := 0
	for i := 1; i <= s.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return s.result(history, iters, false, "cancelled"), err
		}

		s.update()
		s.evaluate(ctx)
		s.commit()
		iters = i

		history = append(history, s.gbestCost)
		s.emit(i)

		if best-s.gbestCost > s.cfg.Tolerance {
			best = s.gbestCost
			stale = 0
		} else {
			stale++
		}
		if stale >= s.cfg.Patience {
			converged = true
			stop = fmt.Sprintf("no improvement beyond %v for %d iterations", s.cfg.Tolerance, s.cfg.Patience)
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return s.result(history, iters, converged, "cancelled"), err
	}
	return s.result(history, iters, converged, stop), nil
}

// init places the swarm uniformly in the box with small random velocities.
// All draws happen on the single stream in index order.
func (s *Swarm) init() {
	dim := len(s.lower)
	s.parts = make([]particle, s.cfg.Particles)
	for i := range s.parts {
		p := &s.parts[i]
		p.pos = make([]float64, dim)
		p.vel = make([]float64, dim)
		p.best = make([]float64, dim)
		for d := 0; d < dim; d++ {
			p.pos[d] = s.lower[d] + s.rng.Float64()*(s.upper[d]-s.lower[d])
			p.vel[d] = (s.rng.Float64()*2 - 1) * 0.1 * s.vmax[d]
		}
		copy(p.best, p.pos)
		p.bestCost = math.Inf(1)
		p.cost = math.Inf(1)
	}
	s.gbest = make([]float64, dim)
	s.gbestCost = math.Inf(1)
	s.evals = 0
}

// evaluate scores the whole swarm, fanning out to the worker pool. Costs
// land in per-particle slots by index; the Wait is the iteration barrier.
func (s *Swarm) evaluate(ctx context.Context) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range s.parts {
		p := &s.parts[i]
		pos := append([]float64(nil), p.pos...)
		g.Go(func() error {
			p.cost = s.obj(ctx, pos)
			return nil
		})
	}
	_ = g.Wait() // workers never error; Wait is purely the barrier
	s.evals += len(s.parts)
}

// commit folds the fresh costs into the personal and global bests, serially
// and in index order. The global best is rewritten only here, after the
// whole swarm is scored, so velocity updates always read the previous
// iteration's snapshot.
func (s *Swarm) commit() {
	for i := range s.parts {
		p := &s.parts[i]
		if p.cost < p.bestCost {
			p.bestCost = p.cost
			copy(p.best, p.pos)
		}
	}
	for i := range s.parts {
		if s.parts[i].bestCost < s.gbestCost {
			s.gbestCost = s.parts[i].bestCost
			copy(s.gbest, s.parts[i].best)
		}
	}
}

// update moves every particle: inertia plus the two random attractions,
// velocity clamped per dimension, position folded back by the bounds
// policy. Random draws stay on the single stream in index order.
func (s *Swarm) update() {
	for i := range s.parts {
		p := &s.parts[i]
		for d := range p.pos {
			r1 := s.rng.Float64()
			r2 := s.rng.Float64()
			v := s.cfg.Inertia*p.vel[d] +
				s.cfg.Cognitive*r1*(p.best[d]-p.pos[d]) +
				s.cfg.Social*r2*(s.gbest[d]-p.pos[d])
			v = clampf(v, -s.vmax[d], s.vmax[d])
			x := p.pos[d] + v
			x, v = s.confine(x, v, d)
			p.pos[d], p.vel[d] = x, v
		}
	}
}

func (s *Swarm) confine(x, v float64, d int) (float64, float64) {
	lo, hi := s.lower[d], s.upper[d]
	if x >= lo && x <= hi {
		return x, v
	}
	if s.cfg.Bounds == BoundsClip {
		return clampf(x, lo, hi), v
	}
	if x < lo {
		x = lo + (lo - x)
	} else {
		x = hi - (x - hi)
	}
	// A double overshoot can reflect past the far wall; pin it.
	return clampf(x, lo, hi), -0.5 * v
}

func (s *Swarm) emit(iter int) {
	if s.OnIteration == nil {
		return
	}
	mean := 0.0
	for i := range s.parts {
		mean += s.parts[i].cost
	}
	mean /= float64(len(s.parts))
	s.OnIteration(IterationStats{
		Iteration:   iter,
		BestCost:    s.gbestCost,
		MeanCost:    mean,
		BestPos:     append([]float64(nil), s.gbest...),
		Evaluations: s.evals,
	})
}

func (s *Swarm) result(history []float64, iters int, converged bool, reason string) *Result {
	return &Result{
		BestPos:     append([]float64(nil), s.gbest...),
		BestCost:    s.gbestCost,
		History:     history,
		Iterations:  iters,
		Evaluations: s.evals,
		Converged:   converged,
		StopReason:  reason,
		Seed:        s.cfg.Seed,
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
