package smc

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/plant"
)

// Surface is the shared sliding manifold
//
//	sigma = K1*(omega1 + Lam1*theta1e) + K2*(omega2 + Lam2*theta2e)
//
// where theta1e, theta2e are the pendulum angle errors. The weights couple
// the two links; the lambdas set the error-decay rate once the state slides.
type Surface struct {
	K1   float64
	K2   float64
	Lam1 float64
	Lam2 float64
}

// Sigma evaluates the surface at x relative to target. A nil target means
// the origin.
func (s Surface) Sigma(x, target dynamics.State) float64 {
	th1, th2 := x[plant.IdxTheta1], x[plant.IdxTheta2]
	om1, om2 := x[plant.IdxOmega1], x[plant.IdxOmega2]
	if target != nil {
		th1 -= target[plant.IdxTheta1]
		th2 -= target[plant.IdxTheta2]
		om1 -= target[plant.IdxOmega1]
		om2 -= target[plant.IdxOmega2]
	}
	return s.K1*(om1+s.Lam1*th1) + s.K2*(om2+s.Lam2*th2)
}

// SigmaDot evaluates the surface velocity given the state derivative. The
// surface is linear in the state, so this is exact, not a finite difference.
func (s Surface) SigmaDot(x, deriv dynamics.State) float64 {
	_ = x
	return s.K1*(deriv[plant.IdxOmega1]+s.Lam1*deriv[plant.IdxTheta1]) +
		s.K2*(deriv[plant.IdxOmega2]+s.Lam2*deriv[plant.IdxTheta2])
}

// authority recovers the affine surface dynamics sigmadot = a*u + b by
// probing the plant derivative at u=0 and u=1. ok is false when there is no
// plant or the input coefficient is too small to invert, in which case the
// caller falls back to its direct law.
func authority(s Surface, sys dynamics.System, x dynamics.State, t float64) (a, b float64, ok bool) {
	if sys == nil {
		return 0, 0, false
	}
	b = s.SigmaDot(x, sys.Derive(x, 0, t))
	a = s.SigmaDot(x, sys.Derive(x, 1, t)) - b
	if math.Abs(a) < 1e-9 || math.IsNaN(a) || math.IsNaN(b) {
		return 0, 0, false
	}
	return a, b, true
}

// SwitchTanh is the smooth switching function tanh(sigma/phi). phi <= 0
// degenerates to the hard sign.
func SwitchTanh(sigma, phi float64) float64 {
	if phi <= 0 {
		return sign(sigma)
	}
	return math.Tanh(sigma / phi)
}

// SwitchLinear is the clipped-linear saturation sigma/phi limited to
// [-1, 1]. phi <= 0 degenerates to the hard sign.
func SwitchLinear(sigma, phi float64) float64 {
	if phi <= 0 {
		return sign(sigma)
	}
	return clamp(sigma/phi, -1, 1)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// checkStep guards every Compute call: controllers must see a finite state
// and a positive finite dt.
func checkStep(x dynamics.State, dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return &dynamics.NumericalError{
			State:   x.Clone(),
			Wrapped: dynamics.ErrBadTimestep,
		}
	}
	if !x.IsValid() {
		return &dynamics.NumericalError{
			State:   x.Clone(),
			Wrapped: dynamics.ErrInvalidState,
		}
	}
	return nil
}
