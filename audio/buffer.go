// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Buffer holds fully decoded PCM audio as planar (per-channel) float32
// samples in [-1, 1]. A Buffer is produced once by a decode step and is
// treated as read-only afterwards; processing stages that need to modify
// audio work on the copy returned by CloneData or Clone.
type Buffer struct {
	rate int
	data [][]float32
}

// NewBuffer allocates a zeroed buffer with the given shape.
func NewBuffer(sampleRate, channels, frames int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if channels <= 0 {
		return nil, ErrInvalidChannelCount
	}

	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}

	return &Buffer{rate: sampleRate, data: data}, nil
}

// BufferFromData wraps existing planar channel data. The data is not
// copied; the caller hands over ownership.
func BufferFromData(sampleRate int, data [][]float32) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if len(data) == 0 {
		return nil, ErrInvalidChannelCount
	}
	for ch := 1; ch < len(data); ch++ {
		if len(data[ch]) != len(data[0]) {
			return nil, ErrRaggedChannelData
		}
	}

	return &Buffer{rate: sampleRate, data: data}, nil
}

// FromSource drains src and collects it into a Buffer, deinterleaving
// as it reads. The source is read until io.EOF.
func FromSource(src Source) (*Buffer, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrInvalidChannelCount
	}
	if src.SampleRate() <= 0 {
		return nil, ErrInvalidSampleRate
	}

	bufSize := src.BufSize()
	if bufSize <= 0 {
		bufSize = 4096
	}
	// Round down to a whole number of frames.
	bufSize -= bufSize % channels
	if bufSize == 0 {
		bufSize = channels
	}

	data := make([][]float32, channels)
	buf := make([]float32, bufSize)

	for {
		n, err := src.ReadSamples(buf)
		frames := n / channels
		for frame := range frames {
			for ch := range channels {
				data[ch] = append(data[ch], buf[frame*channels+ch])
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading source: %w", err)
		}
	}

	return &Buffer{rate: src.SampleRate(), data: data}, nil
}

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.rate }

// Channels returns the channel count.
func (b *Buffer) Channels() int { return len(b.data) }

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Frames()) / float64(b.rate)
}

// Channel returns the sample data for one channel. The returned slice
// aliases the buffer; callers must not modify it.
func (b *Buffer) Channel(ch int) []float32 { return b.data[ch] }

// Sample returns a single sample value.
func (b *Buffer) Sample(ch, frame int) float32 { return b.data[ch][frame] }

// CloneData returns a deep copy of the planar channel data, suitable
// for in-place processing.
func (b *Buffer) CloneData() [][]float32 {
	data := make([][]float32, len(b.data))
	for ch := range b.data {
		data[ch] = make([]float32, len(b.data[ch]))
		copy(data[ch], b.data[ch])
	}
	return data
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{rate: b.rate, data: b.CloneData()}
}

// Reader returns a streaming view over the buffer implementing Source.
// Each call returns an independent cursor.
func (b *Buffer) Reader() Source {
	return &bufferSource{buf: b}
}

type bufferSource struct {
	buf *Buffer
	pos int // frame cursor
}

func (s *bufferSource) SampleRate() int { return s.buf.rate }
func (s *bufferSource) Channels() int   { return s.buf.Channels() }
func (s *bufferSource) BufSize() int    { return 4096 }
func (s *bufferSource) Close() error    { return nil }

func (s *bufferSource) ReadSamples(dst []float32) (int, error) {
	channels := s.buf.Channels()
	if len(dst)%channels != 0 {
		return 0, ErrInvalidDstSize
	}

	total := s.buf.Frames()
	if s.pos >= total {
		return 0, io.EOF
	}

	frames := min(len(dst)/channels, total-s.pos)
	for frame := range frames {
		for ch := range channels {
			dst[frame*channels+ch] = s.buf.data[ch][s.pos+frame]
		}
	}
	s.pos += frames

	if s.pos >= total {
		return frames * channels, io.EOF
	}
	return frames * channels, nil
}
