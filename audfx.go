// SPDX-License-Identifier: EPL-2.0

package audfx

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audfx/engine"
	"github.com/ik5/audfx/module"
)

// RenderWAV is a high-level convenience function that decodes an audio
// stream, routes it through a preset's module chain, and returns the
// result as canonical 16-bit PCM WAV bytes.
//
// It runs a complete one-shot pipeline:
//  1. Decode the reader with the registered decoder for format
//     (wav, mp3, ogg, aiff)
//  2. Apply the preset's modules in order
//  3. Render the full buffer offline
//  4. Encode the result as a canonical WAV file
//
// Pass an empty preset to transcode without processing. For playback,
// incremental chain edits, or repeated renders against the same
// buffer, use engine.New directly.
//
// Example:
//
//	f, _ := os.Open("vocal.mp3")
//	preset, _ := module.ParsePreset(presetJSON)
//	wavBytes, err := audfx.RenderWAV("mp3", f, preset)
func RenderWAV(format string, r io.Reader, preset module.Preset) ([]byte, error) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	e := engine.New(
		engine.WithHost(engine.NewNullHost()),
		engine.WithLogger(quiet),
	)
	if err := e.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	defer e.Dispose()

	if err := e.LoadAudio(format, r); err != nil {
		return nil, err
	}
	if err := e.ApplyPreset(preset); err != nil {
		return nil, err
	}
	return e.Export("wav")
}
