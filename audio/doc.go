// SPDX-License-Identifier: EPL-2.0

// Package audio provides the low-level audio data types and streaming
// primitives shared by the rest of the engine.
//
// It contains:
//   - Buffer, the planar float32 PCM value owned by the engine
//   - Source, the pull-based interface implemented by all decoders
//   - Registry for decoder registration by format key
//   - Resampler for sample rate conversion
//   - Mid/side matrix helpers for stereo-width-aware processing
//
// # Buffer
//
// A Buffer holds fully decoded audio as per-channel float32 slices:
//
//	buf, _ := audio.NewBuffer(44100, 2, 44100) // 1s of stereo silence
//	buf.Channel(0)[0] = 0.5
//
// Buffers are created by decoding and treated as read-only afterwards.
// Processing stages copy the data they intend to modify:
//
//	data := buf.CloneData()
//	// ... process data in place ...
//	out, _ := audio.BufferFromData(buf.SampleRate(), data)
//
// # Source Interface
//
// The Source interface is the streaming foundation:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// All format decoders return a Source, and Buffer.Reader adapts a Buffer
// back into one, so decoders, resamplers, and playback sinks compose
// freely. FromSource drains a Source into a Buffer.
//
// # Sample Format
//
// Samples are float32 in the range [-1.0, 1.0]:
//   - 0.0 represents silence
//   - +/-1.0 represents maximum amplitude
//
// Interleaved layout is used on the streaming path (Source), planar
// layout on the processing path (Buffer), which keeps per-channel filter
// loops simple.
//
// # Resampling
//
// The Resampler changes the sample rate of any Source using cubic
// interpolation, preserving the channel count:
//
//	resampler := audio.NewResampler(source, 48000)
//	buf := make([]float32, 4096)
//	n, err := resampler.ReadSamples(buf)
//
// The playback path uses it to adapt a loaded buffer to the output
// device rate.
//
// # Error Handling
//
// Streaming functions return io.EOF when no more data is available.
// Shape errors use package sentinels (ErrInvalidDstSize and friends):
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // process n samples from buf
//	}
package audio
