// Package analysis inspects closed-loop runs after the fact.
//
// It answers three questions about a recorded trajectory:
//
//   - [ChatterIndex] and [Spectrum]: how much of the control effort is
//     high-frequency switching rather than useful actuation
//   - [SurfaceSeries] and [ReachingFraction]: does the state actually move
//     toward the sliding surface while it is off it
//   - [LargestExponent]: how fast nearby states of the unforced plant
//     diverge, which calibrates expectations for any stabilizing controller
//
// # Chattering
//
// A discontinuous switching law excites actuator dynamics at high frequency.
// The index is the share of spectral energy at or above a cutoff:
//
//	idx := analysis.ChatterIndex(controls, dt, 10.0)
//	if idx > 0.5 {
//	    // most of the effort is switching, widen the boundary layer
//	}
package analysis
