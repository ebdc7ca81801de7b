// SPDX-License-Identifier: EPL-2.0

// Package dsp provides the filter primitive bank: single-stage recursive
// filters and a single-band dynamics processor. Everything above this
// package composes these primitives without knowing filter math.
//
// # Biquad Filters
//
// Filters are split into coefficient design functions and a stateful
// Biquad runner, so a running filter can be retuned in place without
// losing its state (no zipper clicks on parameter changes):
//
//	coeffs, err := dsp.PeakingCoeffs(44100, 1000, 6.0, 1.0)
//	if err != nil {
//	    // invalid frequency/Q/sample rate
//	}
//	f := dsp.NewBiquad(coeffs)
//	f.Process(samples) // in place
//
//	// later, retune without resetting state:
//	coeffs, _ = dsp.PeakingCoeffs(44100, 1200, 4.0, 1.0)
//	f.SetCoeffs(coeffs)
//
// Available shapes: peaking (bell), low/high shelf, low/high pass, and
// notch, all from the RBJ audio EQ cookbook.
//
// # Dynamics
//
// Dynamics implements threshold/ratio/attack/release/knee gain reduction
// with a detector key that may differ from the processed signal:
//
//	dyn, _ := dsp.NewDynamics(44100, -20, 10, 0.5, 60, 0)
//	for i := range samples {
//	    key := detector.ProcessSample(samples[i])
//	    samples[i] = dyn.ProcessSample(samples[i], key)
//	}
//
// All processors in this package are mono and not safe for concurrent
// use; allocate one instance per channel.
package dsp
