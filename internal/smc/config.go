package smc

import (
	"time"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/plant"
)

// Defaults for structural controller parameters. Zero Config fields take
// these values, so a zero Config is usable as-is.
const (
	DefaultMaxForce      = 150.0
	DefaultBoundaryLayer = 0.05

	DefaultKInit    = 10.0
	DefaultKMin     = 0.1
	DefaultKMax     = 100.0
	DefaultLeakRate = 0.1
	DefaultDeadZone = 0.01

	DefaultSwitchSigma = 0.6
	DefaultHysteresis  = 0.15
	DefaultDwellSteps  = 25
	DefaultJumpLimit   = 25.0
)

// DefaultLockTimeout bounds the factory's wait on its registry lock.
const DefaultLockTimeout = 100 * time.Millisecond

// Config carries the structural (non-tuned) controller parameters. The
// tuned quantities live in the per-variant gain vectors; everything here is
// fixed for the lifetime of a factory and shared by every controller it
// builds.
type Config struct {
	// Plant is the nominal model behind the surface-dynamics probes; nil
	// makes every law fall back to its direct switching form.
	Plant dynamics.System
	// Target is the regulation set-point; nil means the upright origin.
	Target dynamics.State

	MaxForce      float64 // actuator saturation, N
	BoundaryLayer float64 // switch smoothing width

	// Adaptive law (also the hybrid adaptive branch).
	KInit    float64
	KMin     float64
	KMax     float64
	LeakRate float64
	DeadZone float64

	// Hybrid supervisor.
	SwitchSigma float64 // |sigma| level separating reaching from sliding
	Hysteresis  float64 // half-width of the switch band
	DwellSteps  int     // steps a mode is held before it may switch again
	JumpLimit   float64 // largest control discontinuity allowed at a switch

	// Hybrid branch parameters. The tuned hybrid vector carries only the
	// shared surface weights; the branch laws read these.
	STA1      float64 // super-twisting branch K1
	STA2      float64 // super-twisting branch K2
	AdaptRate float64 // adaptive branch adaptation rate

	LockTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Target == nil {
		c.Target = make(dynamics.State, plant.StateDim)
	}
	if c.MaxForce == 0 {
		c.MaxForce = DefaultMaxForce
	}
	if c.BoundaryLayer == 0 {
		c.BoundaryLayer = DefaultBoundaryLayer
	}
	if c.KInit == 0 {
		c.KInit = DefaultKInit
	}
	if c.KMin == 0 {
		c.KMin = DefaultKMin
	}
	if c.KMax == 0 {
		c.KMax = DefaultKMax
	}
	if c.LeakRate == 0 {
		c.LeakRate = DefaultLeakRate
	}
	if c.DeadZone == 0 {
		c.DeadZone = DefaultDeadZone
	}
	if c.SwitchSigma == 0 {
		c.SwitchSigma = DefaultSwitchSigma
	}
	if c.Hysteresis == 0 {
		c.Hysteresis = DefaultHysteresis
	}
	if c.DwellSteps == 0 {
		c.DwellSteps = DefaultDwellSteps
	}
	if c.JumpLimit == 0 {
		c.JumpLimit = DefaultJumpLimit
	}
	if c.STA1 == 0 {
		c.STA1 = specs[VariantSTA].Defaults[0]
	}
	if c.STA2 == 0 {
		c.STA2 = specs[VariantSTA].Defaults[1]
	}
	if c.AdaptRate == 0 {
		c.AdaptRate = specs[VariantAdaptive].Defaults[4]
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	return c
}
