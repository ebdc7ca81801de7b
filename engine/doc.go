// SPDX-License-Identifier: EPL-2.0

// Package engine provides the audio graph: a loaded buffer routed
// through an ordered chain of processing modules, with real-time
// playback, offline rendering, and canonical WAV export.
//
// # Lifecycle
//
//	e := engine.New()
//	if err := e.Initialize(); err != nil { ... }
//	defer e.Dispose()
//
//	f, _ := os.Open("vocal.wav")
//	e.LoadAudio("wav", f)
//
//	id, _ := e.AddModule(module.Options{Type: module.TypeDeEsser})
//	e.Play()
//
// Initialize acquires an output device through the Host abstraction.
// Machines without audio hardware fall back to NullHost, which keeps
// the transport semantics (position, drain) without producing sound,
// so loading, rendering, and export always work.
//
// # Chain mutation
//
// AddModule, RemoveModule, SetModuleParameters, ClearChain, and
// ApplyPreset mutate the chain under the engine lock and publish the
// result by swapping a fresh wired graph into an atomic pointer. The
// playback callback reads that pointer per block, so it only ever
// observes complete chains, even mid-mutation. Parameter-only updates
// retune the target module in place without a swap.
//
// ApplyPreset is atomic in effect: the chain is cleared first, and a
// failing preset leaves it cleared instead of half-built.
//
// # Playback
//
// Play streams from the current playhead; calling it while already
// playing restarts from that position. Pause keeps the playhead, Stop
// rewinds it. Seek clamps to [0, duration] and takes effect on the
// next processed block, so seeking during playback resumes without a
// gap. When the host runs at a different sample rate than the loaded
// buffer, the stream is resampled on the fly.
//
// # Offline rendering
//
// RenderOffline snapshots the chain, clones every module with fresh
// processing state, and processes a copy of the whole buffer. It runs
// on the caller's goroutine, may execute concurrently with playback,
// and never touches the transport. Export runs a render and encodes
// it as a canonical 16-bit PCM WAV file.
package engine
