package analysis

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
)

// LargestExponent estimates the largest Lyapunov exponent of the unforced
// system by the trajectory-separation method: integrate a reference and a
// perturbed trajectory side by side, renormalize the separation each step,
// and average the log stretch rate. Positive means nearby states diverge
// exponentially, as they do for the pendulum near upright.
func LargestExponent(sys dynamics.System, integ dynamics.Integrator, x0 dynamics.State, dt, duration, eps float64) float64 {
	if len(x0) == 0 || dt <= 0 || duration <= 0 || eps <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += eps

	sumLog := 0.0
	count := 0
	for t := 0.0; t < duration; t += dt {
		x = integ.Step(sys, x, 0, t, dt)
		xp = integ.Step(sys, xp, 0, t, dt)
		if !x.IsValid() || !xp.IsValid() {
			break
		}

		sep := xp.Sub(x).Norm()
		if sep <= 0 {
			break
		}
		sumLog += math.Log(sep / eps)
		count++

		// Pull the companion back to distance eps along the current
		// separation direction.
		scale := eps / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / (float64(count) * dt)
}
