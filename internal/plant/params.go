package plant

// State layout shared by every package that touches trajectories:
// positions first, then their derivatives.
const (
	IdxCart   = 0
	IdxTheta1 = 1
	IdxTheta2 = 2
	IdxVel    = 3
	IdxOmega1 = 4
	IdxOmega2 = 5

	StateDim = 6
)

const (
	DefaultCartMass  = 1.5
	DefaultMass1     = 0.5
	DefaultMass2     = 0.75
	DefaultLength1   = 0.5
	DefaultLength2   = 0.75
	DefaultGravity   = 9.81
	DefaultCartDamp  = 0.2
	DefaultJointDamp = 0.005
)

// Params describes the double-inverted-pendulum-on-cart plant. Angles are
// measured from the upright position, so gravity is destabilizing at the
// origin. Com and inertia fields left zero are derived in New (uniform-rod
// assumption).
type Params struct {
	CartMass float64 `yaml:"cart_mass"`
	Mass1    float64 `yaml:"mass1"`
	Mass2    float64 `yaml:"mass2"`
	Length1  float64 `yaml:"length1"`
	Length2  float64 `yaml:"length2"`
	Com1     float64 `yaml:"com1"`
	Com2     float64 `yaml:"com2"`
	Inertia1 float64 `yaml:"inertia1"`
	Inertia2 float64 `yaml:"inertia2"`
	CartDamp float64 `yaml:"cart_damp"`
	Damp1    float64 `yaml:"damp1"`
	Damp2    float64 `yaml:"damp2"`
	Gravity  float64 `yaml:"gravity"`
}

func DefaultParams() Params {
	return Params{
		CartMass: DefaultCartMass,
		Mass1:    DefaultMass1,
		Mass2:    DefaultMass2,
		Length1:  DefaultLength1,
		Length2:  DefaultLength2,
		CartDamp: DefaultCartDamp,
		Damp1:    DefaultJointDamp,
		Damp2:    DefaultJointDamp,
		Gravity:  DefaultGravity,
	}
}

// Frictionless returns a copy with all damping removed, for energy-drift
// diagnostics and integrator cross-checks.
func (p Params) Frictionless() Params {
	p.CartDamp = 0
	p.Damp1 = 0
	p.Damp2 = 0
	return p
}
