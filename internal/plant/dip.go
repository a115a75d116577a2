package plant

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mkrv/smctune/internal/dynamics"
)

// DoublePendulum is a cart carrying two serially hinged links, actuated by
// a horizontal force on the cart. The generalized coordinates are
// (x, theta1, theta2); Derive solves M(q)*qddot = f(q, qdot, u) each call.
type DoublePendulum struct {
	p Params

	// derived, precomputed in New
	h1  float64 // m1*lc1 + m2*L1
	h2  float64 // m2*lc2
	h3  float64 // m2*L1*lc2
	m11 float64 // m0 + m1 + m2
	m22 float64 // m1*lc1^2 + m2*L1^2 + I1
	m33 float64 // m2*lc2^2 + I2
}

func NewDoublePendulum(p Params) *DoublePendulum {
	if p.Com1 == 0 {
		p.Com1 = p.Length1 / 2
	}
	if p.Com2 == 0 {
		p.Com2 = p.Length2 / 2
	}
	if p.Inertia1 == 0 {
		p.Inertia1 = p.Mass1 * p.Length1 * p.Length1 / 12
	}
	if p.Inertia2 == 0 {
		p.Inertia2 = p.Mass2 * p.Length2 * p.Length2 / 12
	}
	return &DoublePendulum{
		p:   p,
		h1:  p.Mass1*p.Com1 + p.Mass2*p.Length1,
		h2:  p.Mass2 * p.Com2,
		h3:  p.Mass2 * p.Length1 * p.Com2,
		m11: p.CartMass + p.Mass1 + p.Mass2,
		m22: p.Mass1*p.Com1*p.Com1 + p.Mass2*p.Length1*p.Length1 + p.Inertia1,
		m33: p.Mass2*p.Com2*p.Com2 + p.Inertia2,
	}
}

func (d *DoublePendulum) Params() Params { return d.p }

func (d *DoublePendulum) StateDim() int { return StateDim }

func (d *DoublePendulum) Derive(x dynamics.State, u float64, t float64) dynamics.State {
	th1, th2 := x[IdxTheta1], x[IdxTheta2]
	vel, om1, om2 := x[IdxVel], x[IdxOmega1], x[IdxOmega2]

	s1, c1 := math.Sin(th1), math.Cos(th1)
	s2, c2 := math.Sin(th2), math.Cos(th2)
	sd, cd := math.Sin(th1-th2), math.Cos(th1-th2)

	m := mat.NewDense(3, 3, []float64{
		d.m11, d.h1 * c1, d.h2 * c2,
		d.h1 * c1, d.m22, d.h3 * cd,
		d.h2 * c2, d.h3 * cd, d.m33,
	})
	f := mat.NewVecDense(3, []float64{
		u - d.p.CartDamp*vel + d.h1*om1*om1*s1 + d.h2*om2*om2*s2,
		d.h1*d.p.Gravity*s1 - d.h3*om2*om2*sd - d.p.Damp1*om1,
		d.h2*d.p.Gravity*s2 + d.h3*om1*om1*sd - d.p.Damp2*om2,
	})

	var acc mat.VecDense
	if err := acc.SolveVec(m, f); err != nil {
		// Singular mass matrix cannot happen for physical parameters;
		// flag the state instead of guessing.
		nan := math.NaN()
		return dynamics.State{nan, nan, nan, nan, nan, nan}
	}

	return dynamics.State{vel, om1, om2, acc.AtVec(0), acc.AtVec(1), acc.AtVec(2)}
}

// Energy returns total mechanical energy; with zero damping and zero input
// it is conserved along trajectories.
func (d *DoublePendulum) Energy(x dynamics.State) float64 {
	th1, th2 := x[IdxTheta1], x[IdxTheta2]
	vel, om1, om2 := x[IdxVel], x[IdxOmega1], x[IdxOmega2]

	c1, c2 := math.Cos(th1), math.Cos(th2)
	cd := math.Cos(th1 - th2)

	ke := 0.5*d.m11*vel*vel +
		0.5*d.m22*om1*om1 +
		0.5*d.m33*om2*om2 +
		d.h1*c1*vel*om1 +
		d.h2*c2*vel*om2 +
		d.h3*cd*om1*om2
	pe := d.p.Gravity * (d.h1*c1 + d.h2*c2)

	return ke + pe
}

// Upright returns the unstable equilibrium with the cart at dx.
func Upright(dx float64) dynamics.State {
	return dynamics.State{dx, 0, 0, 0, 0, 0}
}
