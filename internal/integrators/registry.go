package integrators

import (
	"fmt"

	"github.com/mkrv/smctune/internal/dynamics"
)

// New resolves an integrator by its config name.
func New(name string) (dynamics.Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4", "":
		return NewRK4(), nil
	case "rk45":
		return NewRK45(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}
