package integrators

import "github.com/mkrv/smctune/internal/dynamics"

// RK4 is the classic four-stage fixed-step integrator. The control input is
// held constant across all stages (zero-order hold). The stage scratch
// buffer is reused between calls, so one RK4 instance must not be shared
// across goroutines.
type RK4 struct {
	scratch dynamics.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) Step(sys dynamics.System, x dynamics.State, u float64, t, dt float64) dynamics.State {
	n := len(x)
	if len(r.scratch) != n {
		r.scratch = make(dynamics.State, n)
	}

	k1 := sys.Derive(x, u, t)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := sys.Derive(r.scratch, u, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := sys.Derive(r.scratch, u, t+dt*0.5)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*k3[i]
	}
	k4 := sys.Derive(r.scratch, u, t+dt)

	result := make(dynamics.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}

	return result
}
