// Package optim provides the gain-search engines: a global-best particle
// swarm with deterministic replay and bounded parallel evaluation, and an
// exhaustive grid sweep over the same objective contract.
//
// Determinism is the load-bearing property. All randomness flows through
// one seeded stream consumed in particle-index order, evaluation results
// land in per-particle slots, and the shared bests are committed serially
// at the iteration barrier. Two runs with the same seed and bounds produce
// identical histories regardless of the worker count.
package optim
