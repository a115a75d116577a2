package smc

import (
	"github.com/mkrv/smctune/internal/dynamics"
)

// Classical is boundary-layer sliding-mode control. Each step it demands
// the reaching motion
//
//	sigmadot = -K*tanh(sigma/phi) - kd*sigma
//
// and solves the affine surface dynamics for the force that produces it,
// which folds the model-based equivalent term and the smoothed switching
// term into one expression with the correct authority sign. Gains:
// [k1, k2, lam1, lam2, K, kd]. The law is stateless; chattering trades
// against tracking precision entirely through the boundary-layer width.
type Classical struct {
	cfg  Config
	surf Surface
	k    float64
	kd   float64
}

// NewClassical validates gains against the classical spec and builds the
// controller.
func NewClassical(cfg Config, gains []float64) (*Classical, error) {
	if err := Validate(VariantClassical, gains); err != nil {
		return nil, err
	}
	return &Classical{
		cfg:  cfg.withDefaults(),
		surf: Surface{K1: gains[0], K2: gains[1], Lam1: gains[2], Lam2: gains[3]},
		k:    gains[4],
		kd:   gains[5],
	}, nil
}

func (c *Classical) Compute(x dynamics.State, t, dt float64) (float64, error) {
	if err := checkStep(x, dt); err != nil {
		return 0, err
	}

	sigma := c.surf.Sigma(x, c.cfg.Target)
	demand := -c.k*SwitchTanh(sigma, c.cfg.BoundaryLayer) - c.kd*sigma

	u := demand
	if a, b, ok := authority(c.surf, c.cfg.Plant, x, t); ok {
		u = (demand - b) / a
	}
	return clamp(u, -c.cfg.MaxForce, c.cfg.MaxForce), nil
}

func (c *Classical) Reset() {}

func (c *Classical) Surface() Surface { return c.surf }
