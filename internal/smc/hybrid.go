package smc

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
)

// Mode tags the hybrid controller's active branch.
type Mode uint8

const (
	// ModeSTA is the sliding branch, active near the surface.
	ModeSTA Mode = iota
	// ModeAdaptive is the reaching branch, active far from it.
	ModeAdaptive
)

func (m Mode) String() string {
	if m == ModeSTA {
		return "sta"
	}
	return "adaptive"
}

// Hybrid supervises a super-twisting branch and an adaptive branch over one
// shared surface. The selector runs on |sigma| with hysteresis around
// SwitchSigma: the adaptive branch reaches from far away, the super-twisting
// branch holds the slide. A minimum dwell blocks mode chattering, and every
// switch re-seeds only the incoming branch so the control picks up where the
// outgoing branch left off; any residual jump is clamped to JumpLimit.
// Gains: [c1, lam1, c2, lam2], the shared surface. Branch parameters come
// from Config.
type Hybrid struct {
	cfg      Config
	surf     Surface
	sta      *SuperTwisting
	adaptive *Adaptive

	mode  Mode
	dwell int
	lastU float64
}

// NewHybrid validates gains against the hybrid spec and builds the
// supervisor with the adaptive branch active and the dwell pre-loaded, so
// the first step is free to pick either branch.
func NewHybrid(cfg Config, gains []float64) (*Hybrid, error) {
	if err := Validate(VariantHybrid, gains); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	surf := Surface{K1: gains[0], Lam1: gains[1], K2: gains[2], Lam2: gains[3]}
	return &Hybrid{
		cfg:      cfg,
		surf:     surf,
		sta:      newSTABranch(cfg, surf, cfg.STA1, cfg.STA2),
		adaptive: newAdaptiveBranch(cfg, surf, cfg.AdaptRate),
		mode:     ModeAdaptive,
		dwell:    cfg.DwellSteps,
	}, nil
}

func (h *Hybrid) Compute(x dynamics.State, t, dt float64) (float64, error) {
	if err := checkStep(x, dt); err != nil {
		return 0, err
	}

	sigma := h.surf.Sigma(x, h.cfg.Target)
	switched := h.supervise(x, t, sigma)

	var u float64
	var err error
	if h.mode == ModeSTA {
		u, err = h.sta.Compute(x, t, dt)
	} else {
		u, err = h.adaptive.Compute(x, t, dt)
	}
	if err != nil {
		return 0, err
	}

	if switched {
		u = clamp(u, h.lastU-h.cfg.JumpLimit, h.lastU+h.cfg.JumpLimit)
		u = clamp(u, -h.cfg.MaxForce, h.cfg.MaxForce)
	}
	h.lastU = u
	return u, nil
}

// supervise advances the dwell counter and switches branches when |sigma|
// leaves the hysteresis band and the dwell has expired.
func (h *Hybrid) supervise(x dynamics.State, t, sigma float64) bool {
	next := h.mode
	switch a := math.Abs(sigma); {
	case a >= h.cfg.SwitchSigma+h.cfg.Hysteresis:
		next = ModeAdaptive
	case a <= h.cfg.SwitchSigma-h.cfg.Hysteresis:
		next = ModeSTA
	}

	if next == h.mode || h.dwell < h.cfg.DwellSteps {
		h.dwell++
		return false
	}

	h.transfer(next, x, t, sigma)
	h.mode = next
	h.dwell = 0
	return true
}

// transfer re-seeds the incoming branch so its first output reproduces the
// last published control: the super-twisting integral absorbs the demanded
// surface velocity, the adaptive gain is solved from the saturation level.
// The outgoing branch keeps its state untouched.
func (h *Hybrid) transfer(next Mode, x dynamics.State, t, sigma float64) {
	demand := h.lastU
	if a, b, ok := authority(h.surf, h.cfg.Plant, x, t); ok {
		demand = a*h.lastU + b
	}

	switch next {
	case ModeSTA:
		sw := SwitchTanh(sigma, h.cfg.BoundaryLayer)
		z := demand + h.sta.k1*math.Sqrt(math.Abs(sigma))*sw
		h.sta.z = clamp(z, -h.cfg.MaxForce, h.cfg.MaxForce)
	case ModeAdaptive:
		sat := SwitchLinear(sigma, h.cfg.BoundaryLayer)
		if math.Abs(sat) > 1e-6 {
			h.adaptive.k = clamp(-demand/sat, h.cfg.KMin, h.cfg.KMax)
		}
	}
}

// Reset restores both branches and re-arms the supervisor.
func (h *Hybrid) Reset() {
	h.sta.Reset()
	h.adaptive.Reset()
	h.mode = ModeAdaptive
	h.dwell = h.cfg.DwellSteps
	h.lastU = 0
}

// Mode reports the active branch.
func (h *Hybrid) Mode() Mode { return h.mode }

func (h *Hybrid) Surface() Surface { return h.surf }
