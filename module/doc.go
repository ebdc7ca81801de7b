// SPDX-License-Identifier: EPL-2.0

// Package module defines the processing modules that populate an
// audio chain: the Module interface, the serializable Options union,
// and the concrete Equalizer and DeEsser implementations.
//
// # Modules
//
// A Module filters planar float32 blocks in place and is stateful
// across blocks. Modules are created from their serialized Options via
// the factory:
//
//	mod, err := module.New(module.Options{
//	    Type: module.TypeEqualizer,
//	    Equalizer: &module.EqualizerOptions{
//	        Bands: []module.EqualizerBand{
//	            {ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: module.ShapeBell, Enabled: true},
//	        },
//	    },
//	})
//
// The type tag is a closed set (TypeEqualizer, TypeDeEsser); anything
// else returns ErrUnknownType before construction.
//
// # Options as patches
//
// Options doubles as a partial update. Pointer fields left nil mean
// "leave unchanged", so a caller can change one parameter without
// restating the rest:
//
//	changed, err := mod.SetOptions(module.Options{
//	    DeEsser: &module.DeEsserOptions{Threshold: module.Float64(-18)},
//	})
//
// SetOptions reports whether the update changed the module's internal
// topology (filters rebuilt with fresh state) or was an in-place
// retune (filter state preserved). On error the module keeps its prior
// state.
//
// # Presets
//
// Preset is the record exchanged with an external preset store. Only
// the Modules array drives processing; other fields pass through
// opaquely.
//
// # Offline clones
//
// CloneForOffline produces a module with identical parameters and the
// same id but fresh processing state, so an offline render never
// shares filter histories with the live instance.
package module
