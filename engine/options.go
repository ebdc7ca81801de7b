// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/formats/aiff"
	"github.com/ik5/audfx/formats/mp3"
	"github.com/ik5/audfx/formats/vorbis"
	"github.com/ik5/audfx/formats/wav"
)

const (
	defaultBlockSize  = 1024
	defaultSampleRate = 44100
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithHost replaces the playback host. Useful for tests and for
// environments with no audio device; see NullHost.
func WithHost(h Host) Option {
	return func(e *Engine) { e.host = h }
}

// WithLogger injects the logger used for engine lifecycle events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithBlockSize sets the frame count per processing block for playback
// and offline rendering. Values below 1 keep the default.
func WithBlockSize(frames int) Option {
	return func(e *Engine) {
		if frames > 0 {
			e.blockSize = frames
		}
	}
}

// WithRegistry replaces the decoder registry consulted by LoadAudio.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// defaultRegistry registers every bundled decoder.
func defaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	return r
}
