// Package plant implements the double-inverted-pendulum-on-cart dynamics
// the controllers are tuned against.
//
// State layout is [x, theta1, theta2, xdot, theta1dot, theta2dot] with
// angles measured from upright. The single actuator is a horizontal force
// on the cart. Each derivative evaluation assembles the 3x3 mass matrix
// and solves it for the generalized accelerations.
package plant
