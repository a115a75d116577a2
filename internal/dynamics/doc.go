// Package dynamics provides the core primitives for closed-loop simulation
// of a controlled plant.
//
// The package defines the vocabulary shared by every other package:
//
//   - [State]: vector representing plant state
//   - [System]: interface for controlled ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepping interface
//   - [Controller]: feedback controller interface (scalar actuator)
//   - [Result]: one trajectory with success/failure diagnostics
//
// # Example
//
//	sys := plant.NewDoublePendulum(plant.DefaultParams())
//	integ := integrators.NewRK4()
//	runner := sim.New(sys, integ, ctrl)
//	result, _ := runner.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Controllers and integrators are NOT thread-safe; concurrent evaluations
// must each construct their own instances (the controller factory and the
// swarm engine do exactly that).
package dynamics
