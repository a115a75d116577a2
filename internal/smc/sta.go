package smc

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
)

// SuperTwisting is the second-order sliding law. It carries one integral
// state z and demands the surface motion
//
//	sigmadot = -K1*sqrt(|sigma|)*sw(sigma) + z
//	    zdot = -K2*sw(sigma)
//
// where sw is the boundary-layer-smoothed sign. The integral is clamped to
// the force range each step so a long saturation stretch cannot wind it up.
// Gains: [K1, K2, k1, k2, lam1, lam2] with K1 > K2 > 0 as the convergence
// condition, enforced at validation.
type SuperTwisting struct {
	cfg  Config
	surf Surface
	k1   float64
	k2   float64
	z    float64
}

// NewSuperTwisting validates gains against the super-twisting spec and
// builds the controller with a zero integral state.
func NewSuperTwisting(cfg Config, gains []float64) (*SuperTwisting, error) {
	if err := Validate(VariantSTA, gains); err != nil {
		return nil, err
	}
	return &SuperTwisting{
		cfg:  cfg.withDefaults(),
		surf: Surface{K1: gains[2], K2: gains[3], Lam1: gains[4], Lam2: gains[5]},
		k1:   gains[0],
		k2:   gains[1],
	}, nil
}

// newSTABranch builds the hybrid's sliding branch over a shared surface.
// cfg must already carry defaults.
func newSTABranch(cfg Config, surf Surface, k1, k2 float64) *SuperTwisting {
	return &SuperTwisting{cfg: cfg, surf: surf, k1: k1, k2: k2}
}

func (s *SuperTwisting) Compute(x dynamics.State, t, dt float64) (float64, error) {
	if err := checkStep(x, dt); err != nil {
		return 0, err
	}

	sigma := s.surf.Sigma(x, s.cfg.Target)
	sw := SwitchTanh(sigma, s.cfg.BoundaryLayer)
	demand := -s.k1*math.Sqrt(math.Abs(sigma))*sw + s.z

	u := demand
	if a, b, ok := authority(s.surf, s.cfg.Plant, x, t); ok {
		u = (demand - b) / a
	}

	s.z = clamp(s.z+dt*(-s.k2*sw), -s.cfg.MaxForce, s.cfg.MaxForce)
	return clamp(u, -s.cfg.MaxForce, s.cfg.MaxForce), nil
}

// Reset clears the integral state.
func (s *SuperTwisting) Reset() { s.z = 0 }

// Integral exposes z for diagnostics.
func (s *SuperTwisting) Integral() float64 { return s.z }

func (s *SuperTwisting) Surface() Surface { return s.surf }
