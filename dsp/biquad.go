// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

// Coeffs holds normalized second-order filter coefficients (a0 == 1).
type Coeffs struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Biquad is a single-stage recursive (second-order IIR) filter in
// Direct Form I. Coefficients may be swapped while the filter runs;
// state is preserved across retunes so in-place parameter updates do
// not click.
type Biquad struct {
	c Coeffs

	// Direct Form I state.
	x1, x2 float64
	y1, y2 float64
}

// NewBiquad constructs a filter from precomputed coefficients.
func NewBiquad(c Coeffs) *Biquad {
	return &Biquad{c: c}
}

// SetCoeffs replaces the coefficients, preserving filter state.
func (f *Biquad) SetCoeffs(c Coeffs) { f.c = c }

// Coeffs returns the current coefficients.
func (f *Biquad) Coeffs() Coeffs { return f.c }

// ProcessSample runs one sample through the filter.
func (f *Biquad) ProcessSample(sample float32) float32 {
	x := float64(sample)
	y := f.c.B0*x + f.c.B1*f.x1 + f.c.B2*f.x2 - f.c.A1*f.y1 - f.c.A2*f.y2

	f.x2 = f.x1
	f.x1 = x
	f.y2 = f.y1
	f.y1 = y

	return float32(y)
}

// Process filters a buffer in place.
func (f *Biquad) Process(samples []float32) {
	for i := range samples {
		x := float64(samples[i])
		y := f.c.B0*x + f.c.B1*f.x1 + f.c.B2*f.x2 - f.c.A1*f.y1 - f.c.A2*f.y2

		f.x2 = f.x1
		f.x1 = x
		f.y2 = f.y1
		f.y1 = y

		samples[i] = float32(y)
	}
}

// Reset clears the filter state.
func (f *Biquad) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
}

// validateFilterArgs checks the shared sampleRate/freq/q argument set.
func validateFilterArgs(sampleRate int, freq, q float64) error {
	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if freq <= 0 || freq >= float64(sampleRate)/2 {
		return ErrInvalidFrequency
	}
	if q <= 0 {
		return ErrInvalidQ
	}
	return nil
}

// PeakingCoeffs designs a peaking (bell) filter with the given center
// frequency, gain in dB, and Q. RBJ audio EQ cookbook topology.
func PeakingCoeffs(sampleRate int, freq, gainDB, q float64) (Coeffs, error) {
	if err := validateFilterArgs(sampleRate, freq, q); err != nil {
		return Coeffs{}, err
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha/a
	return Coeffs{
		B0: (1 + alpha*a) / a0,
		B1: -2 * cosw0 / a0,
		B2: (1 - alpha*a) / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha/a) / a0,
	}, nil
}

// LowShelfCoeffs designs a low shelf at freq with gain in dB and shelf
// slope expressed as Q.
func LowShelfCoeffs(sampleRate int, freq, gainDB, q float64) (Coeffs, error) {
	if err := validateFilterArgs(sampleRate, freq, q); err != nil {
		return Coeffs{}, err
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	sqrtA2Alpha := 2 * math.Sqrt(a) * alpha

	a0 := (a + 1) + (a-1)*cosw0 + sqrtA2Alpha
	return Coeffs{
		B0: a * ((a + 1) - (a-1)*cosw0 + sqrtA2Alpha) / a0,
		B1: 2 * a * ((a - 1) - (a+1)*cosw0) / a0,
		B2: a * ((a + 1) - (a-1)*cosw0 - sqrtA2Alpha) / a0,
		A1: -2 * ((a - 1) + (a+1)*cosw0) / a0,
		A2: ((a + 1) + (a-1)*cosw0 - sqrtA2Alpha) / a0,
	}, nil
}

// HighShelfCoeffs designs a high shelf at freq with gain in dB and shelf
// slope expressed as Q.
func HighShelfCoeffs(sampleRate int, freq, gainDB, q float64) (Coeffs, error) {
	if err := validateFilterArgs(sampleRate, freq, q); err != nil {
		return Coeffs{}, err
	}

	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	sqrtA2Alpha := 2 * math.Sqrt(a) * alpha

	a0 := (a + 1) - (a-1)*cosw0 + sqrtA2Alpha
	return Coeffs{
		B0: a * ((a + 1) + (a-1)*cosw0 + sqrtA2Alpha) / a0,
		B1: -2 * a * ((a - 1) + (a+1)*cosw0) / a0,
		B2: a * ((a + 1) + (a-1)*cosw0 - sqrtA2Alpha) / a0,
		A1: 2 * ((a - 1) - (a+1)*cosw0) / a0,
		A2: ((a + 1) - (a-1)*cosw0 - sqrtA2Alpha) / a0,
	}, nil
}

// LowPassCoeffs designs a second-order low-pass with cutoff freq and Q.
func LowPassCoeffs(sampleRate int, freq, q float64) (Coeffs, error) {
	if err := validateFilterArgs(sampleRate, freq, q); err != nil {
		return Coeffs{}, err
	}

	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return Coeffs{
		B0: (1 - cosw0) / 2 / a0,
		B1: (1 - cosw0) / a0,
		B2: (1 - cosw0) / 2 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// HighPassCoeffs designs a second-order high-pass with cutoff freq and Q.
func HighPassCoeffs(sampleRate int, freq, q float64) (Coeffs, error) {
	if err := validateFilterArgs(sampleRate, freq, q); err != nil {
		return Coeffs{}, err
	}

	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return Coeffs{
		B0: (1 + cosw0) / 2 / a0,
		B1: -(1 + cosw0) / a0,
		B2: (1 + cosw0) / 2 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// NotchCoeffs designs a notch (band-reject) filter at freq with Q.
func NotchCoeffs(sampleRate int, freq, q float64) (Coeffs, error) {
	if err := validateFilterArgs(sampleRate, freq, q); err != nil {
		return Coeffs{}, err
	}

	w0 := 2 * math.Pi * freq / float64(sampleRate)
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return Coeffs{
		B0: 1 / a0,
		B1: -2 * cosw0 / a0,
		B2: 1 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// Response returns the magnitude of the filter's frequency response at
// freq for the given sample rate. Useful for tests and visualization.
func (f *Biquad) Response(sampleRate int, freq float64) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)

	cos1, sin1 := math.Cos(w), math.Sin(w)
	cos2, sin2 := math.Cos(2*w), math.Sin(2*w)

	numRe := f.c.B0 + f.c.B1*cos1 + f.c.B2*cos2
	numIm := -(f.c.B1*sin1 + f.c.B2*sin2)
	denRe := 1 + f.c.A1*cos1 + f.c.A2*cos2
	denIm := -(f.c.A1*sin1 + f.c.A2*sin2)

	num := math.Hypot(numRe, numIm)
	den := math.Hypot(denRe, denIm)
	if den == 0 {
		return math.Inf(1)
	}
	return num / den
}
