// SPDX-License-Identifier: EPL-2.0

package module

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/ik5/audfx/dsp"
)

// De-esser fixed design parameters. The detector boost exaggerates the
// sibilance band purely to drive the dynamics key; the ratio is held
// high so threshold and range stay the user-facing controls.
const (
	deEsserDetectorBoostDB = 12.0
	deEsserDetectorQ       = 1.0
	deEsserRatio           = 10.0
	deEsserCrossoverQ      = 0.707
	deEsserMultibandOffset = 1000.0
	deEsserRangeScaleDB    = 24.0
)

// Default de-esser parameters, tuned for vocal sibilance.
const (
	defaultDeEsserFrequency = 6000.0
	defaultDeEsserThreshold = -20.0
	defaultDeEsserRange     = 6.0
	defaultDeEsserAttack    = 0.5
	defaultDeEsserRelease   = 20.0
)

// deEsserChannel holds the per-channel filter and envelope state.
// Channels are fully independent.
type deEsserChannel struct {
	detector *dsp.Biquad
	low      *dsp.Biquad
	high     *dsp.Biquad
	dyn      *dsp.Dynamics
}

// DeEsser is a sibilance suppressor. In broadband mode the whole
// signal is attenuated by a gain keyed from a boosted detector band;
// in multiband mode only the band above the crossover frequency is
// processed and the low band passes through dry. The audible amount of
// processing is capped by Range: wet = min(1, Range/24), dry = 1-wet.
type DeEsser struct {
	mu sync.Mutex

	id        string
	mode      string
	frequency float64
	threshold float64
	rangeDB   float64
	attack    float64
	release   float64
	listen    bool
	bypass    bool

	sampleRate int
	chans      []*deEsserChannel
	wet        float32
}

// NewDeEsser creates a de-esser from options. A nil opts gives the
// vocal defaults (broadband, 6 kHz, -20 dB threshold, 6 dB range).
func NewDeEsser(opts *DeEsserOptions) (*DeEsser, error) {
	d := &DeEsser{
		id:        uuid.NewString(),
		mode:      ModeBroadband,
		frequency: defaultDeEsserFrequency,
		threshold: defaultDeEsserThreshold,
		rangeDB:   defaultDeEsserRange,
		attack:    defaultDeEsserAttack,
		release:   defaultDeEsserRelease,
	}
	d.updateWet()
	if opts != nil {
		if _, err := d.SetOptions(Options{Type: TypeDeEsser, DeEsser: opts}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *DeEsser) ID() string   { return d.id }
func (d *DeEsser) Name() string { return "De-Esser" }
func (d *DeEsser) Type() string { return TypeDeEsser }

func (d *DeEsser) SetBypass(bypass bool) {
	d.mu.Lock()
	d.bypass = bypass
	d.mu.Unlock()
}

func (d *DeEsser) Bypassed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bypass
}

// Initialize builds per-channel detector, crossover, and dynamics
// state for the stream layout.
func (d *DeEsser) Initialize(sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidParameter, sampleRate)
	}
	if channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidParameter, channels)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sampleRate = sampleRate
	return d.rebuild(channels)
}

// detectorFrequency is where the detector band sits: at the crossover
// in broadband mode, one kHz above it in multiband mode so the key
// tracks the sibilance inside the processed high band.
func (d *DeEsser) detectorFrequency() float64 {
	if d.mode == ModeMultiband {
		return d.frequency + deEsserMultibandOffset
	}
	return d.frequency
}

func (d *DeEsser) clampFreq(freq float64) float64 {
	if limit := 0.49 * float64(d.sampleRate); freq > limit {
		return limit
	}
	return freq
}

// rebuild allocates fresh per-channel state. Caller holds the lock.
func (d *DeEsser) rebuild(channels int) error {
	detC, err := dsp.PeakingCoeffs(d.sampleRate, d.clampFreq(d.detectorFrequency()), deEsserDetectorBoostDB, deEsserDetectorQ)
	if err != nil {
		return err
	}
	lowC, err := dsp.LowPassCoeffs(d.sampleRate, d.clampFreq(d.frequency), deEsserCrossoverQ)
	if err != nil {
		return err
	}
	highC, err := dsp.HighPassCoeffs(d.sampleRate, d.clampFreq(d.frequency), deEsserCrossoverQ)
	if err != nil {
		return err
	}

	chans := make([]*deEsserChannel, channels)
	for i := range chans {
		dyn, err := dsp.NewDynamics(d.sampleRate, d.threshold, deEsserRatio, d.attack, d.release, 0)
		if err != nil {
			return err
		}
		chans[i] = &deEsserChannel{
			detector: dsp.NewBiquad(detC),
			low:      dsp.NewBiquad(lowC),
			high:     dsp.NewBiquad(highC),
			dyn:      dyn,
		}
	}
	d.chans = chans
	return nil
}

// retune updates filter coefficients in place after a frequency
// change, preserving filter and envelope state. Caller holds the lock.
func (d *DeEsser) retune() error {
	detC, err := dsp.PeakingCoeffs(d.sampleRate, d.clampFreq(d.detectorFrequency()), deEsserDetectorBoostDB, deEsserDetectorQ)
	if err != nil {
		return err
	}
	lowC, err := dsp.LowPassCoeffs(d.sampleRate, d.clampFreq(d.frequency), deEsserCrossoverQ)
	if err != nil {
		return err
	}
	highC, err := dsp.HighPassCoeffs(d.sampleRate, d.clampFreq(d.frequency), deEsserCrossoverQ)
	if err != nil {
		return err
	}

	for _, ch := range d.chans {
		ch.detector.SetCoeffs(detC)
		ch.low.SetCoeffs(lowC)
		ch.high.SetCoeffs(highC)
	}
	return nil
}

// updateWet derives the dry/wet mix from Range on its fixed 0-24 dB
// scale. Caller holds the lock (or owns the instance).
func (d *DeEsser) updateWet() {
	d.wet = float32(math.Min(1, d.rangeDB/deEsserRangeScaleDB))
}

// Options returns a deep snapshot of the nominal parameters.
func (d *DeEsser) Options() Options {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Options{
		Type: TypeDeEsser,
		DeEsser: &DeEsserOptions{
			Mode:      String(d.mode),
			Frequency: Float64(d.frequency),
			Threshold: Float64(d.threshold),
			Range:     Float64(d.rangeDB),
			Attack:    Float64(d.attack),
			Release:   Float64(d.release),
			Listen:    Bool(d.listen),
		},
	}
}

// SetOptions applies a partial update. A mode switch rebuilds the
// per-channel state; everything else is applied in place.
func (d *DeEsser) SetOptions(patch Options) (bool, error) {
	if patch.Type != "" && patch.Type != TypeDeEsser {
		return false, fmt.Errorf("%w: %q applied to de-esser", ErrTypeMismatch, patch.Type)
	}
	if patch.Equalizer != nil {
		return false, fmt.Errorf("%w: equalizer payload applied to de-esser", ErrTypeMismatch)
	}
	opts := patch.DeEsser
	if opts == nil {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if opts.Mode != nil && *opts.Mode != ModeBroadband && *opts.Mode != ModeMultiband {
		return false, fmt.Errorf("%w: mode %q", ErrInvalidParameter, *opts.Mode)
	}
	if opts.Frequency != nil && *opts.Frequency <= 0 {
		return false, fmt.Errorf("%w: frequency %v", ErrInvalidParameter, *opts.Frequency)
	}
	if opts.Range != nil && *opts.Range < 0 {
		return false, fmt.Errorf("%w: range %v", ErrInvalidParameter, *opts.Range)
	}
	if opts.Attack != nil && *opts.Attack <= 0 {
		return false, fmt.Errorf("%w: attack %v", ErrInvalidParameter, *opts.Attack)
	}
	if opts.Release != nil && *opts.Release <= 0 {
		return false, fmt.Errorf("%w: release %v", ErrInvalidParameter, *opts.Release)
	}

	modeChanged := opts.Mode != nil && *opts.Mode != d.mode
	freqChanged := opts.Frequency != nil && *opts.Frequency != d.frequency

	if opts.Mode != nil {
		d.mode = *opts.Mode
	}
	if opts.Frequency != nil {
		d.frequency = *opts.Frequency
	}
	if opts.Threshold != nil {
		d.threshold = *opts.Threshold
	}
	if opts.Range != nil {
		d.rangeDB = *opts.Range
		d.updateWet()
	}
	if opts.Attack != nil {
		d.attack = *opts.Attack
	}
	if opts.Release != nil {
		d.release = *opts.Release
	}
	if opts.Listen != nil {
		d.listen = *opts.Listen
	}

	if d.sampleRate == 0 {
		return modeChanged, nil
	}

	if modeChanged {
		if err := d.rebuild(len(d.chans)); err != nil {
			return false, err
		}
		return true, nil
	}

	if freqChanged {
		if err := d.retune(); err != nil {
			return false, err
		}
	}
	for _, ch := range d.chans {
		if opts.Threshold != nil {
			ch.dyn.SetThreshold(d.threshold)
		}
		if opts.Attack != nil || opts.Release != nil {
			if err := ch.dyn.SetTimes(d.attack, d.release); err != nil {
				return false, err
			}
		}
	}

	return false, nil
}

// Process suppresses sibilance over one block, each channel with
// independent state.
func (d *DeEsser) Process(block [][]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bypass || d.sampleRate == 0 {
		return
	}

	wet := d.wet
	dry := 1 - wet

	for c, samples := range block {
		if c >= len(d.chans) {
			break
		}
		st := d.chans[c]

		if d.mode == ModeMultiband {
			for i, x := range samples {
				low := st.low.ProcessSample(x)
				high := st.high.ProcessSample(x)
				det := st.detector.ProcessSample(high)
				g := st.dyn.GainFor(det)
				if d.listen {
					samples[i] = det * g
					continue
				}
				samples[i] = low + high*dry + high*g*wet
			}
			continue
		}

		for i, x := range samples {
			det := st.detector.ProcessSample(x)
			g := st.dyn.GainFor(det)
			if d.listen {
				samples[i] = det * g
				continue
			}
			samples[i] = x*dry + x*g*wet
		}
	}
}

// Reset clears filter and envelope state without touching parameters.
func (d *DeEsser) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ch := range d.chans {
		ch.detector.Reset()
		ch.low.Reset()
		ch.high.Reset()
		ch.dyn.Reset()
	}
}

// CloneForOffline returns a de-esser with identical parameters and id
// but fresh filter and envelope state.
func (d *DeEsser) CloneForOffline() Module {
	d.mu.Lock()
	clone := &DeEsser{
		id:        d.id,
		mode:      d.mode,
		frequency: d.frequency,
		threshold: d.threshold,
		rangeDB:   d.rangeDB,
		attack:    d.attack,
		release:   d.release,
		listen:    d.listen,
		bypass:    d.bypass,
	}
	clone.updateWet()
	rate, channels := d.sampleRate, len(d.chans)
	d.mu.Unlock()

	if rate > 0 {
		// Parameters were already realized once, so this cannot fail.
		_ = clone.Initialize(rate, channels)
	}
	return clone
}
