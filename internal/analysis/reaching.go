package analysis

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/smc"
)

// SurfaceSeries evaluates the sliding surface along a recorded trajectory.
func SurfaceSeries(states []dynamics.State, surf smc.Surface, target dynamics.State) []float64 {
	sigma := make([]float64, len(states))
	for i, x := range states {
		sigma[i] = surf.Sigma(x, target)
	}
	return sigma
}

// ReachingFraction reports the share of samples satisfying the reaching
// condition sigma*dsigma < 0, with dsigma taken as a forward difference.
// Samples already inside the band |sigma| <= tol are skipped; once on the
// surface there is nothing left to reach. Returns 1 when every sample sits
// inside the band.
func ReachingFraction(sigma []float64, dt, tol float64) float64 {
	if len(sigma) < 2 || dt <= 0 {
		return 0
	}

	total, reaching := 0, 0
	for i := 1; i < len(sigma); i++ {
		prev := sigma[i-1]
		if math.Abs(prev) <= tol {
			continue
		}
		total++
		if prev*(sigma[i]-prev)/dt < 0 {
			reaching++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(reaching) / float64(total)
}
