// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio decoding and canonical 16-bit PCM
// encoding.
//
// Decoding uses github.com/go-audio/wav for robust chunk handling and
// returns an audio.Source of float32 samples in [-1, 1]:
//
//	decoder := wav.Decoder{}
//	source, err := decoder.Decode(file)
//
// Only PCM 16-bit input is supported; other layouts return
// ErrOnlyPCM16bitSupported or ErrUnsupportedWavLayout.
//
// # Encoding
//
// Encode writes a rendered audio.Buffer as a canonical WAV file:
// a fixed 44-byte RIFF/WAVE header followed by an interleaved
// little-endian 16-bit data chunk. Float samples are clamped to [-1, 1]
// and scaled by 32767 (positive) or 32768 (negative) before truncation.
//
//	var out bytes.Buffer
//	err := wav.Encode(&out, buffer)
//
// WritePCM16 is the lower-level entry point for callers that already
// hold interleaved int16 samples.
//
// The header layout is bit-exact: any reader of the classic canonical
// WAV format can parse the output, and decoding it recovers the same
// sample rate, channel count, and frame count.
package wav
