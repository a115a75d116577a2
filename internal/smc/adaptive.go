package smc

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
)

// Adaptive raises its switching gain while the state sits off the surface
// and leaks it back down otherwise, meeting persistent disturbances with
// only as much authority as they demand:
//
//	sigmadot = -K*sat(sigma/phi)
//	K <- clip(K + dt*(gamma*|sigma| - leak*K), Kmin, Kmax)   outside the dead zone
//	K <- clip(K - dt*leak*K,                   Kmin, Kmax)   inside it
//
// sat is the clipped-linear switch. Gains: [k1, k2, lam1, lam2, gamma]; the
// gain bounds, leak rate, and dead zone are configuration, not tuned.
type Adaptive struct {
	cfg   Config
	surf  Surface
	gamma float64
	k     float64
}

// NewAdaptive validates gains against the adaptive spec and builds the
// controller with K at its configured initial value.
func NewAdaptive(cfg Config, gains []float64) (*Adaptive, error) {
	if err := Validate(VariantAdaptive, gains); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Adaptive{
		cfg:   cfg,
		surf:  Surface{K1: gains[0], K2: gains[1], Lam1: gains[2], Lam2: gains[3]},
		gamma: gains[4],
		k:     cfg.KInit,
	}, nil
}

// newAdaptiveBranch builds the hybrid's reaching branch over a shared
// surface. cfg must already carry defaults.
func newAdaptiveBranch(cfg Config, surf Surface, gamma float64) *Adaptive {
	return &Adaptive{cfg: cfg, surf: surf, gamma: gamma, k: cfg.KInit}
}

func (a *Adaptive) Compute(x dynamics.State, t, dt float64) (float64, error) {
	if err := checkStep(x, dt); err != nil {
		return 0, err
	}

	sigma := a.surf.Sigma(x, a.cfg.Target)
	demand := -a.k * SwitchLinear(sigma, a.cfg.BoundaryLayer)

	u := demand
	if au, b, ok := authority(a.surf, a.cfg.Plant, x, t); ok {
		u = (demand - b) / au
	}

	// The control uses the pre-update gain, so a hand-over that rewrites k
	// between steps lands on the next output unchanged.
	growth := 0.0
	if math.Abs(sigma) > a.cfg.DeadZone {
		growth = a.gamma * math.Abs(sigma)
	}
	a.k = clamp(a.k+dt*(growth-a.cfg.LeakRate*a.k), a.cfg.KMin, a.cfg.KMax)

	return clamp(u, -a.cfg.MaxForce, a.cfg.MaxForce), nil
}

// Reset restores K to its configured initial value.
func (a *Adaptive) Reset() { a.k = a.cfg.KInit }

// Gain exposes K(t) for diagnostics.
func (a *Adaptive) Gain() float64 { return a.k }

func (a *Adaptive) Surface() Surface { return a.surf }
