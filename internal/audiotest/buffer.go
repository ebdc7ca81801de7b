// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"math"

	"github.com/ik5/audfx/audio"
)

// SilentBuffer returns a zeroed planar buffer.
func SilentBuffer(sampleRate, channels, frames int) *audio.Buffer {
	buf, err := audio.NewBuffer(sampleRate, channels, frames)
	if err != nil {
		panic(err)
	}
	return buf
}

// SineBuffer returns a buffer with the same sine wave on every
// channel.
func SineBuffer(sampleRate, channels, frames int, frequency float64, amplitude float32) *audio.Buffer {
	buf := SilentBuffer(sampleRate, channels, frames)
	for ch := 0; ch < channels; ch++ {
		data := buf.Channel(ch)
		for i := range data {
			t := float64(i) / float64(sampleRate)
			data[i] = amplitude * float32(math.Sin(2*math.Pi*frequency*t))
		}
	}
	return buf
}

// ConstantBuffer returns a buffer filled with a single value, handy
// for asserting exact gain factors.
func ConstantBuffer(sampleRate, channels, frames int, value float32) *audio.Buffer {
	buf := SilentBuffer(sampleRate, channels, frames)
	for ch := 0; ch < channels; ch++ {
		data := buf.Channel(ch)
		for i := range data {
			data[i] = value
		}
	}
	return buf
}
