// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"io"
	"sync/atomic"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/module"
)

// wiredGraph is an immutable snapshot of the processing chain. The
// engine builds a fresh one on every mutation and swaps it into an
// atomic pointer, so the playback path always sees a complete graph.
type wiredGraph struct {
	modules []module.Module
}

func (g *wiredGraph) process(block [][]float32) {
	for _, m := range g.modules {
		m.Process(block)
	}
}

// graphSource streams the loaded buffer through the live graph as
// interleaved float32. The playhead and graph pointer are shared with
// the engine: seeks and chain swaps take effect on the next block
// without restarting the stream.
type graphSource struct {
	buf      *audio.Buffer
	live     *atomic.Pointer[wiredGraph]
	playhead *atomic.Int64

	blockSize int
	block     [][]float32
}

func newGraphSource(buf *audio.Buffer, live *atomic.Pointer[wiredGraph], playhead *atomic.Int64, blockSize int) *graphSource {
	channels := buf.Channels()
	block := make([][]float32, channels)
	for ch := range block {
		block[ch] = make([]float32, blockSize)
	}
	return &graphSource{
		buf:       buf,
		live:      live,
		playhead:  playhead,
		blockSize: blockSize,
		block:     block,
	}
}

func (s *graphSource) SampleRate() int { return s.buf.SampleRate() }
func (s *graphSource) Channels() int   { return s.buf.Channels() }
func (s *graphSource) BufSize() int    { return s.blockSize * s.buf.Channels() }
func (s *graphSource) Close() error    { return nil }

func (s *graphSource) ReadSamples(dst []float32) (int, error) {
	channels := s.buf.Channels()
	if channels == 0 || len(dst) < channels {
		return 0, io.EOF
	}
	frames := len(dst) / channels
	total := int64(s.buf.Frames())

	written := 0
	for frames > 0 {
		pos := s.playhead.Load()
		if pos >= total {
			if written > 0 {
				return written, nil
			}
			return 0, io.EOF
		}

		n := frames
		if n > s.blockSize {
			n = s.blockSize
		}
		if remain := int(total - pos); n > remain {
			n = remain
		}

		start := int(pos)
		for ch := 0; ch < channels; ch++ {
			copy(s.block[ch][:n], s.buf.Channel(ch)[start:start+n])
		}

		work := make([][]float32, channels)
		for ch := range work {
			work[ch] = s.block[ch][:n]
		}
		if g := s.live.Load(); g != nil {
			g.process(work)
		}

		for frame := 0; frame < n; frame++ {
			for ch := 0; ch < channels; ch++ {
				dst[written] = s.block[ch][frame]
				written++
			}
		}

		// Advance relative to the position we read from, so a
		// concurrent Seek wins over the increment.
		s.playhead.CompareAndSwap(pos, pos+int64(n))
		frames -= n
	}

	return written, nil
}

// sourceStreamer adapts an audio.Source to beep's pull interface.
// Mono sources are duplicated to both output channels; for sources
// with more than two channels the first two are played.
type sourceStreamer struct {
	src     audio.Source
	buf     []float32
	err     error
	drained bool

	// onDrain fires once when the source reaches EOF. It runs on the
	// host's pull goroutine and must not block.
	onDrain func()
}

func (s *sourceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.drained {
		return 0, false
	}

	channels := s.src.Channels()
	need := len(samples) * channels
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	buf := s.buf[:need]

	n, err := s.src.ReadSamples(buf)
	frames := n / channels

	for i := 0; i < frames; i++ {
		if channels == 1 {
			v := float64(buf[i])
			samples[i][0], samples[i][1] = v, v
			continue
		}
		samples[i][0] = float64(buf[i*channels])
		samples[i][1] = float64(buf[i*channels+1])
	}

	if err != nil {
		s.drained = true
		if err != io.EOF {
			s.err = err
		}
		if s.onDrain != nil {
			s.onDrain()
		}
		if frames == 0 {
			return 0, false
		}
	}

	return frames, true
}

func (s *sourceStreamer) Err() error { return s.err }
