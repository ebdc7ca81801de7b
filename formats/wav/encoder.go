// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/utils"
)

const headerSize = 44

// writeHeader fills the canonical 44-byte RIFF/WAVE header for 16-bit
// PCM. Byte offsets are fixed; anything that reads the classic canonical
// layout can parse the result.
func writeHeader(w io.Writer, sampleRate, channels, frames int) error {
	bytesPerFrame := uint32(channels) * 2
	dataSize := uint32(frames) * bytesPerFrame
	riffSize := 36 + dataSize

	header := make([]byte, headerSize)

	// RIFF header (12 bytes)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], riffSize)
	copy(header[8:12], "WAVE")

	// fmt chunk (24 bytes)
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate)*bytesPerFrame)
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels)*2) // block align
	binary.LittleEndian.PutUint16(header[34:36], 16)                 // bits per sample

	// data chunk header (8 bytes)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Encode serializes a rendered float buffer as a canonical interleaved
// 16-bit PCM WAV file. Samples are clamped to [-1, 1] and scaled by
// 32767 (positive) or 32768 (negative) before truncation, so a full
// scale signal uses the complete int16 range in both directions.
func Encode(w io.Writer, buf *audio.Buffer) error {
	if buf == nil {
		return ErrNilBuffer
	}

	channels := buf.Channels()
	frames := buf.Frames()

	if err := writeHeader(w, buf.SampleRate(), channels, frames); err != nil {
		return err
	}
	if frames == 0 {
		return nil
	}

	// Interleave and convert in chunks to bound the working set.
	const chunkFrames = 4096
	out := make([]byte, min(frames, chunkFrames)*channels*2)

	for start := 0; start < frames; start += chunkFrames {
		end := min(start+chunkFrames, frames)
		n := 0
		for frame := start; frame < end; frame++ {
			for ch := range channels {
				v := utils.Float32ToInt16(buf.Sample(ch, frame))
				binary.LittleEndian.PutUint16(out[n:n+2], uint16(v))
				n += 2
			}
		}
		if _, err := w.Write(out[:n]); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}

// WritePCM16 writes already-converted interleaved int16 PCM at
// sampleRate with the given channel count. len(samples) must be a
// multiple of channels.
func WritePCM16(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels <= 0 {
		return ErrUnsupportedWavLayout
	}
	if len(samples)%channels != 0 {
		return ErrUnsupportedWavLayout
	}

	if err := writeHeader(w, sampleRate, channels, len(samples)/channels); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	const chunkSize = 8192
	buf := make([]byte, min(len(samples), chunkSize)*2)

	for i := 0; i < len(samples); i += chunkSize {
		end := min(i+chunkSize, len(samples))
		chunk := samples[i:end]
		buf = buf[:len(chunk)*2]

		for j, s := range chunk {
			binary.LittleEndian.PutUint16(buf[j*2:j*2+2], uint16(s))
		}

		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}
