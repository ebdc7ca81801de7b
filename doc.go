// SPDX-License-Identifier: EPL-2.0

// Package audfx provides a reconfigurable audio processing graph for
// Go applications.
//
// A decoded buffer is routed through an ordered chain of pluggable
// processing modules (parametric equalizer, de-esser), with real-time
// playback, offline rendering, and canonical 16-bit PCM WAV export.
//
// # Supported Formats
//
// The package decodes the following audio formats:
//   - WAV (PCM 16-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 16-bit) via formats/aiff
//
// # Quick Start
//
// The simplest way to process audio is RenderWAV, which runs decode,
// preset, render, and encode in one call:
//
//	f, _ := os.Open("vocal.mp3")
//	preset, _ := module.ParsePreset(presetJSON)
//	wavBytes, _ := audfx.RenderWAV("mp3", f, preset)
//
// # The Engine
//
// For playback and interactive chain edits, use the engine package:
//
//	e := engine.New()
//	e.Initialize()
//	defer e.Dispose()
//
//	e.LoadAudio("wav", file)
//	id, _ := e.AddModule(module.Options{Type: module.TypeDeEsser})
//	e.Play()
//	e.Seek(12.5)
//	e.SetModuleParameters(id, module.Options{
//	    DeEsser: &module.DeEsserOptions{Threshold: module.Float64(-18)},
//	})
//
// Chain mutations are atomic with respect to playback: the audio path
// only ever observes complete processing graphs.
//
// # Modules
//
// Modules are created from a serializable tagged-union options record
// (the same form presets store) and expose partial parameter updates;
// see the module package.
//
// # Low-Level Pieces
//
// The audio subpackage holds the planar Buffer type, the streaming
// Source interface, the decoder registry, and a cubic resampler. The
// dsp subpackage holds the filter primitives (RBJ biquads and a
// keyed dynamics stage) the modules are built from.
//
// See the individual subpackages for more detailed documentation.
package audfx
