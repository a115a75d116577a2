// Package smc implements the sliding-mode control family that stabilizes
// the double inverted pendulum: the shared sliding surface, the classical,
// super-twisting, adaptive, and hybrid laws, per-variant gain schemas with
// validation, and a thread-safe factory that turns a validated gain vector
// into a ready controller.
//
// All laws shape the surface motion rather than the raw input. The demanded
// surface velocity is mapped to an actuator force through two derivative
// probes of the nominal plant (sigmadot is affine in the input), which keeps
// the reaching direction correct whatever the sign of the control authority
// and folds the equivalent-control term into the same solve. Every law
// saturates its output to [-MaxForce, MaxForce].
package smc
