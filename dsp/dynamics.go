// SPDX-License-Identifier: EPL-2.0

package dsp

import "math"

const envelopeFloor = 1e-10

// Dynamics is a single-band dynamics processor: an envelope follower
// driving a log-domain gain computer with a configurable soft knee.
// The detector key may differ from the signal being attenuated, which
// is how sidechain-style processors (de-essers, duckers) are built.
//
// The processor is mono and stateful; use one instance per channel.
type Dynamics struct {
	sampleRate  int
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	attackMs    float64
	releaseMs   float64

	attackCoeff  float64
	releaseCoeff float64
	envelope     float64
}

// NewDynamics creates a dynamics processor. kneeDB of 0 gives a hard
// knee; larger values smooth the transition around the threshold.
func NewDynamics(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, kneeDB float64) (*Dynamics, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if ratio < 1 {
		return nil, ErrInvalidRatio
	}
	if attackMs <= 0 || releaseMs <= 0 {
		return nil, ErrInvalidTime
	}

	d := &Dynamics{
		sampleRate:  sampleRate,
		thresholdDB: thresholdDB,
		ratio:       ratio,
		kneeDB:      math.Max(0, kneeDB),
		attackMs:    attackMs,
		releaseMs:   releaseMs,
	}
	d.recalculate()

	return d, nil
}

func (d *Dynamics) recalculate() {
	d.attackCoeff = timeCoeff(d.attackMs, d.sampleRate)
	d.releaseCoeff = timeCoeff(d.releaseMs, d.sampleRate)
}

// timeCoeff converts a time constant in milliseconds into a one-pole
// smoothing coefficient at the given sample rate.
func timeCoeff(ms float64, sampleRate int) float64 {
	sec := ms / 1000
	return 1 - math.Exp(-1/(sec*float64(sampleRate)))
}

// SetThreshold updates the threshold in dB without disturbing envelope state.
func (d *Dynamics) SetThreshold(thresholdDB float64) { d.thresholdDB = thresholdDB }

// SetTimes updates attack and release times in milliseconds.
func (d *Dynamics) SetTimes(attackMs, releaseMs float64) error {
	if attackMs <= 0 || releaseMs <= 0 {
		return ErrInvalidTime
	}
	d.attackMs, d.releaseMs = attackMs, releaseMs
	d.recalculate()
	return nil
}

// GainFor advances the envelope follower with the detector key sample
// and returns the linear gain to apply to the processed signal.
func (d *Dynamics) GainFor(key float32) float32 {
	level := math.Abs(float64(key))

	if level > d.envelope {
		d.envelope += d.attackCoeff * (level - d.envelope)
	} else {
		d.envelope += d.releaseCoeff * (level - d.envelope)
	}

	envDB := 20 * math.Log10(math.Max(d.envelope, envelopeFloor))
	over := envDB - d.thresholdDB

	slope := 1/d.ratio - 1

	var reductionDB float64
	switch {
	case d.kneeDB > 0 && math.Abs(over) < d.kneeDB/2:
		// Quadratic interpolation inside the knee.
		x := over + d.kneeDB/2
		reductionDB = slope * x * x / (2 * d.kneeDB)
	case over > 0:
		reductionDB = slope * over
	default:
		return 1
	}

	return float32(math.Pow(10, reductionDB/20))
}

// ProcessSample attenuates in using the gain derived from key. For a
// plain compressor pass the same sample for both.
func (d *Dynamics) ProcessSample(in, key float32) float32 {
	return in * d.GainFor(key)
}

// Envelope returns the current detector envelope (linear), mainly for
// metering and tests.
func (d *Dynamics) Envelope() float64 { return d.envelope }

// Reset clears the envelope follower state.
func (d *Dynamics) Reset() { d.envelope = 0 }
