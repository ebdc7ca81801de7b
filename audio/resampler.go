// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audfx/utils"
)

// Resampler streams from src to a target sample rate using cubic
// interpolation over a four-frame window. Works on interleaved samples
// and preserves the channel count. A simple one-pole low-pass is applied
// when downsampling to tame aliasing.
type Resampler struct {
	src      Source
	dstRate  int
	channels int

	// step is how many source frames one output frame advances.
	step float64
	// pos is the fractional position between window[1] and window[2].
	pos float64

	// Four-frame interpolation window: window[0] = t-1, window[1] = t0,
	// window[2] = t+1, window[3] = t+2.
	window [4][]float32
	have   [4]bool
	primed bool
	eof    bool

	frameBuf []float32

	// One-pole low-pass state, active only when downsampling.
	lpState []float32
	lpAlpha float32
	useLP   bool
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	step := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		channels: channels,
		step:     step,
		frameBuf: make([]float32, channels),
		lpState:  make([]float32, channels),
		useLP:    step > 1.0,
		lpAlpha:  0.5,
	}
	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame pulls one frame from the source into dst, applying the
// anti-alias filter when active. Returns io.EOF when the source is done.
func (r *Resampler) readFrame(dst []float32) error {
	n, err := r.src.ReadSamples(r.frameBuf)
	if n > 0 {
		copy(dst, r.frameBuf[:n])
		if r.useLP {
			for ch := range r.channels {
				dst[ch] = r.lpAlpha*dst[ch] + (1-r.lpAlpha)*r.lpState[ch]
				r.lpState[ch] = dst[ch]
			}
		}
		return nil
	}
	if err == io.EOF || err == nil {
		return io.EOF
	}
	return fmt.Errorf("%w", err)
}

// prime fills the initial window. Missing trailing frames are duplicated
// from the last valid one so short sources still interpolate.
func (r *Resampler) prime() error {
	for i := range r.window {
		err := r.readFrame(r.window[i])
		if err == io.EOF {
			r.eof = true
			if i == 0 {
				return io.EOF
			}
			for j := i; j < len(r.window); j++ {
				copy(r.window[j], r.window[i-1])
				r.have[j] = true
			}
			break
		}
		if err != nil {
			return err
		}
		r.have[i] = true

		if i == 0 && r.useLP {
			copy(r.lpState, r.window[0])
		}
	}

	r.primed = true
	return nil
}

// advance shifts the window one source frame forward.
func (r *Resampler) advance() error {
	copy(r.window[0], r.window[1])
	copy(r.window[1], r.window[2])
	copy(r.window[2], r.window[3])
	r.have[0], r.have[1], r.have[2] = r.have[1], r.have[2], r.have[3]

	if r.eof {
		r.have[3] = false
		if !r.have[1] || !r.have[2] {
			return io.EOF
		}
		return nil
	}

	err := r.readFrame(r.window[3])
	if err == io.EOF {
		r.eof = true
		r.have[3] = false
		if !r.have[2] {
			return io.EOF
		}
		return nil
	}
	if err != nil {
		return err
	}
	r.have[3] = true
	return nil
}

// ReadSamples produces dst samples at the target rate.
// dst length must be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesWanted := len(dst) / r.channels

	for written < framesWanted {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				if err == io.EOF {
					if written == 0 {
						return 0, io.EOF
					}
					return written * r.channels, io.EOF
				}
				return written * r.channels, err
			}
		}

		if !r.have[1] || !r.have[2] {
			if written == 0 {
				return 0, io.EOF
			}
			return written * r.channels, io.EOF
		}

		alpha := float32(r.pos)
		for ch := range r.channels {
			y1 := r.window[1][ch]
			y2 := r.window[2][ch]

			y0 := y1
			if r.have[0] {
				y0 = r.window[0][ch]
			}
			y3 := y2
			if r.have[3] {
				y3 = r.window[3][ch]
			}

			dst[written*r.channels+ch] = utils.CubicInterpolate(y0, y1, y2, y3, alpha)
		}

		written++
		r.pos += r.step
	}

	return written * r.channels, nil
}
