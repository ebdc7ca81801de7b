// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/formats/wav"
	"github.com/ik5/audfx/module"
)

// RenderOffline processes the whole loaded buffer through clones of
// the current chain and returns a fresh buffer. The chain is
// snapshotted at the call: later mutations don't affect a render in
// progress, and the clones' state never mixes with live playback.
// Safe to run concurrently with playback; never touches the transport.
func (e *Engine) RenderOffline() (*audio.Buffer, error) {
	e.mu.Lock()
	if err := e.guard(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if e.buffer == nil {
		e.mu.Unlock()
		return nil, ErrNoAudio
	}

	buf := e.buffer
	clones := make([]module.Module, len(e.chain))
	for i, entry := range e.chain {
		clones[i] = entry.mod.CloneForOffline()
	}
	blockSize := e.blockSize
	e.mu.Unlock()

	out := buf.Clone()
	channels := out.Channels()
	frames := out.Frames()

	block := make([][]float32, channels)
	for start := 0; start < frames; start += blockSize {
		end := start + blockSize
		if end > frames {
			end = frames
		}
		for ch := 0; ch < channels; ch++ {
			block[ch] = out.Channel(ch)[start:end]
		}
		for _, mod := range clones {
			mod.Process(block)
		}
	}

	e.log.WithFields(logrus.Fields{
		"frames":  frames,
		"modules": len(clones),
	}).Debug("offline render complete")
	return out, nil
}

// Export renders offline and encodes the result. Only "wav" is
// supported; the output is a canonical 16-bit PCM file.
func (e *Engine) Export(format string) ([]byte, error) {
	if format != "wav" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	rendered, err := e.RenderOffline()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := wav.Encode(&out, rendered); err != nil {
		return nil, fmt.Errorf("encoding wav: %w", err)
	}
	return out.Bytes(), nil
}
