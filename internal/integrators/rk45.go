package integrators

import (
	"math"

	"github.com/mkrv/smctune/internal/dynamics"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

const (
	rk45MaxRetries = 25
	rk45MinStep    = 1e-12
)

// RK45 is the Dormand-Prince embedded 4(5) pair. StepAdaptive retries a
// rejected step with a shrunken size until the local error estimate meets
// the tolerance, so the time actually advanced can be smaller than the
// attempted dt.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Step(sys dynamics.System, x dynamics.State, u float64, t, dt float64) dynamics.State {
	newX, _, _, err := r.StepAdaptive(sys, x, u, t, dt, 1e-6)
	if err != nil {
		return x.Clone()
	}
	return newX
}

func (r *RK45) StepAdaptive(sys dynamics.System, x dynamics.State, u float64, t, dt, tol float64) (dynamics.State, float64, float64, error) {
	h := dt
	for try := 0; try < rk45MaxRetries; try++ {
		xNew, errRatio := r.attempt(sys, x, u, t, h, tol)
		if errRatio <= 1 {
			var next float64
			if errRatio > 0 {
				next = h * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			} else {
				next = h * r.maxScale
			}
			return xNew, h, next, nil
		}
		h *= math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		if h < rk45MinStep {
			return nil, 0, 0, dynamics.ErrStepTooSmall
		}
	}
	return nil, 0, 0, dynamics.ErrStepTooSmall
}

// attempt advances one trial step of size h and returns the candidate state
// with its error ratio (estimate / tolerance).
func (r *RK45) attempt(sys dynamics.System, x dynamics.State, u float64, t, h, tol float64) (dynamics.State, float64) {
	n := len(x)

	k1 := sys.Derive(x, u, t)

	stage := make(dynamics.State, n)
	for i := 0; i < n; i++ {
		stage[i] = x[i] + h*b21*k1[i]
	}
	k2 := sys.Derive(stage, u, t+a2*h)

	for i := 0; i < n; i++ {
		stage[i] = x[i] + h*(b31*k1[i]+b32*k2[i])
	}
	k3 := sys.Derive(stage, u, t+a3*h)

	for i := 0; i < n; i++ {
		stage[i] = x[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := sys.Derive(stage, u, t+a4*h)

	for i := 0; i < n; i++ {
		stage[i] = x[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := sys.Derive(stage, u, t+a5*h)

	for i := 0; i < n; i++ {
		stage[i] = x[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := sys.Derive(stage, u, t+h)

	xNew := make(dynamics.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := sys.Derive(xNew, u, t+h)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(h*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	return xNew, errMax / tol
}
