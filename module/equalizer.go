// SPDX-License-Identifier: EPL-2.0

package module

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/dsp"
)

// Realized-Q adjustment factors per character.
const (
	analogQFactor  = 0.8
	vintageQFactor = 0.7
	baxandallQ     = 0.5
)

// Equalizer is a multiband parametric equalizer. Bands run in series
// in list order. In mid/side mode on stereo streams each band is
// routed by its Target; stereo-target bands run in both paths. On
// non-stereo streams mid/side mode falls back to per-channel
// processing.
type Equalizer struct {
	mu sync.Mutex

	id        string
	bands     []EqualizerBand
	midSide   bool
	autoGain  bool
	character string
	bypass    bool

	sampleRate int
	channels   int

	// One filter per band per path, index-aligned with bands.
	// perChannel is used in per-channel mode, midChain/sideChain in
	// mid/side mode. Disabled bands keep their slot so parameter
	// edits never shift indexes.
	perChannel [][]*dsp.Biquad
	midChain   []*dsp.Biquad
	sideChain  []*dsp.Biquad

	trim      float32
	mid, side []float32
}

// NewEqualizer creates an equalizer from options. A nil opts gives an
// empty band list with digital character. The module processes audio
// only after Initialize.
func NewEqualizer(opts *EqualizerOptions) (*Equalizer, error) {
	e := &Equalizer{
		id:        uuid.NewString(),
		character: CharacterDigital,
		trim:      1,
	}
	if opts != nil {
		if _, err := e.SetOptions(Options{Type: TypeEqualizer, Equalizer: opts}); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Equalizer) ID() string   { return e.id }
func (e *Equalizer) Name() string { return "Equalizer" }
func (e *Equalizer) Type() string { return TypeEqualizer }

func (e *Equalizer) SetBypass(bypass bool) {
	e.mu.Lock()
	e.bypass = bypass
	e.mu.Unlock()
}

func (e *Equalizer) Bypassed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bypass
}

// Initialize builds the filter graph for the stream layout. Calling it
// again rebuilds from scratch, clearing filter state.
func (e *Equalizer) Initialize(sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidParameter, sampleRate)
	}
	if channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidParameter, channels)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sampleRate = sampleRate
	e.channels = channels
	if err := e.rebuild(); err != nil {
		return err
	}
	e.updateTrim()
	return nil
}

// Options returns a deep snapshot of the nominal parameters. The
// reported Q is always the band's nominal value, regardless of
// character adjustment.
func (e *Equalizer) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()

	bands := make([]EqualizerBand, len(e.bands))
	copy(bands, e.bands)

	return Options{
		Type: TypeEqualizer,
		Equalizer: &EqualizerOptions{
			Bands:     bands,
			MidSide:   Bool(e.midSide),
			AutoGain:  Bool(e.autoGain),
			Character: String(e.character),
		},
	}
}

// SetOptions applies a partial update. Replacing the band list with a
// different length or id sequence, or flipping mid/side, rebuilds the
// filter graph; everything else retunes coefficients in place,
// preserving filter state.
func (e *Equalizer) SetOptions(patch Options) (bool, error) {
	if patch.Type != "" && patch.Type != TypeEqualizer {
		return false, fmt.Errorf("%w: %q applied to equalizer", ErrTypeMismatch, patch.Type)
	}
	if patch.DeEsser != nil {
		return false, fmt.Errorf("%w: de-esser payload applied to equalizer", ErrTypeMismatch)
	}
	opts := patch.Equalizer
	if opts == nil {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Validate everything before mutating anything.
	var newBands []EqualizerBand
	if opts.Bands != nil {
		newBands = make([]EqualizerBand, len(opts.Bands))
		for i, b := range opts.Bands {
			nb, err := normalizeBand(b)
			if err != nil {
				return false, err
			}
			newBands[i] = nb
		}
	}
	if opts.Character != nil {
		switch *opts.Character {
		case CharacterDigital, CharacterAnalog, CharacterVintage, CharacterBaxandall:
		default:
			return false, fmt.Errorf("%w: character %q", ErrInvalidParameter, *opts.Character)
		}
	}

	rebuild := false
	if newBands != nil {
		rebuild = rebuild || !sameBandLayout(e.bands, newBands)
		e.bands = newBands
	}
	if opts.MidSide != nil && *opts.MidSide != e.midSide {
		e.midSide = *opts.MidSide
		rebuild = true
	}
	if opts.AutoGain != nil {
		e.autoGain = *opts.AutoGain
	}
	if opts.Character != nil {
		e.character = *opts.Character
	}

	if e.sampleRate == 0 {
		// Not initialized yet; parameters are stored and realized by
		// Initialize.
		e.updateTrim()
		return rebuild, nil
	}

	if rebuild {
		if err := e.rebuild(); err != nil {
			return false, err
		}
	} else if err := e.retune(); err != nil {
		return false, err
	}
	e.updateTrim()

	return rebuild, nil
}

func normalizeBand(b EqualizerBand) (EqualizerBand, error) {
	if b.Shape == "" {
		b.Shape = ShapeBell
	}
	if b.Target == "" {
		b.Target = TargetStereo
	}
	switch b.Shape {
	case ShapeBell, ShapeLowShelf, ShapeHighShelf, ShapeLowPass, ShapeHighPass, ShapeNotch:
	default:
		return b, fmt.Errorf("%w: band shape %q", ErrInvalidParameter, b.Shape)
	}
	switch b.Target {
	case TargetStereo, TargetMid, TargetSide:
	default:
		return b, fmt.Errorf("%w: band target %q", ErrInvalidParameter, b.Target)
	}
	if b.Frequency <= 0 {
		return b, fmt.Errorf("%w: band frequency %v", ErrInvalidParameter, b.Frequency)
	}
	if b.Q <= 0 {
		return b, fmt.Errorf("%w: band q %v", ErrInvalidParameter, b.Q)
	}
	return b, nil
}

// sameBandLayout reports whether the two lists describe the same band
// slots, so existing filters can be retuned instead of rebuilt.
func sameBandLayout(a, b []EqualizerBand) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// effectiveQ applies the character adjustment to the realized Q.
func (e *Equalizer) effectiveQ(b EqualizerBand) float64 {
	switch e.character {
	case CharacterAnalog:
		return b.Q * analogQFactor
	case CharacterVintage:
		return b.Q * vintageQFactor
	case CharacterBaxandall:
		if b.Shape == ShapeLowShelf || b.Shape == ShapeHighShelf {
			return baxandallQ
		}
		return b.Q
	default:
		return b.Q
	}
}

// bandCoeffs designs the biquad for one band at the current sample
// rate. Frequencies at or above Nyquist are pinned just below it so a
// band tuned for a higher-rate stream stays stable.
func (e *Equalizer) bandCoeffs(b EqualizerBand) (dsp.Coeffs, error) {
	freq := b.Frequency
	if limit := 0.49 * float64(e.sampleRate); freq > limit {
		freq = limit
	}
	q := e.effectiveQ(b)

	switch b.Shape {
	case ShapeBell:
		return dsp.PeakingCoeffs(e.sampleRate, freq, b.Gain, q)
	case ShapeLowShelf:
		return dsp.LowShelfCoeffs(e.sampleRate, freq, b.Gain, q)
	case ShapeHighShelf:
		return dsp.HighShelfCoeffs(e.sampleRate, freq, b.Gain, q)
	case ShapeLowPass:
		return dsp.LowPassCoeffs(e.sampleRate, freq, q)
	case ShapeHighPass:
		return dsp.HighPassCoeffs(e.sampleRate, freq, q)
	case ShapeNotch:
		return dsp.NotchCoeffs(e.sampleRate, freq, q)
	default:
		return dsp.Coeffs{}, fmt.Errorf("%w: band shape %q", ErrInvalidParameter, b.Shape)
	}
}

func (e *Equalizer) useMidSide() bool {
	return e.midSide && e.channels == 2
}

// rebuild constructs fresh filters for every band slot. Caller holds
// the lock.
func (e *Equalizer) rebuild() error {
	e.perChannel = nil
	e.midChain = nil
	e.sideChain = nil

	if e.useMidSide() {
		e.midChain = make([]*dsp.Biquad, len(e.bands))
		e.sideChain = make([]*dsp.Biquad, len(e.bands))
		for i, b := range e.bands {
			c, err := e.bandCoeffs(b)
			if err != nil {
				return err
			}
			e.midChain[i] = dsp.NewBiquad(c)
			e.sideChain[i] = dsp.NewBiquad(c)
		}
		return nil
	}

	e.perChannel = make([][]*dsp.Biquad, e.channels)
	for ch := range e.perChannel {
		e.perChannel[ch] = make([]*dsp.Biquad, len(e.bands))
	}
	for i, b := range e.bands {
		c, err := e.bandCoeffs(b)
		if err != nil {
			return err
		}
		for ch := range e.perChannel {
			e.perChannel[ch][i] = dsp.NewBiquad(c)
		}
	}
	return nil
}

// retune updates coefficients on the existing filters, preserving
// their state. Caller holds the lock.
func (e *Equalizer) retune() error {
	for i, b := range e.bands {
		c, err := e.bandCoeffs(b)
		if err != nil {
			return err
		}
		if e.useMidSide() {
			e.midChain[i].SetCoeffs(c)
			e.sideChain[i].SetCoeffs(c)
			continue
		}
		for ch := range e.perChannel {
			e.perChannel[ch][i].SetCoeffs(c)
		}
	}
	return nil
}

// updateTrim recomputes the auto-gain makeup trim: -0.1 dB per dB of
// absolute gain across enabled bands. Caller holds the lock.
func (e *Equalizer) updateTrim() {
	if !e.autoGain {
		e.trim = 1
		return
	}
	var total float64
	for _, b := range e.bands {
		if b.Enabled {
			total += math.Abs(b.Gain)
		}
	}
	e.trim = float32(math.Pow(10, -0.1*total/20))
}

// Process runs the enabled bands in series over one block, then
// applies the auto-gain trim.
func (e *Equalizer) Process(block [][]float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bypass || e.sampleRate == 0 || len(block) == 0 {
		return
	}

	if e.useMidSide() && len(block) == 2 {
		e.processMidSide(block)
	} else {
		e.processPerChannel(block)
	}

	if e.trim != 1 {
		for _, ch := range block {
			for i := range ch {
				ch[i] *= e.trim
			}
		}
	}
}

func (e *Equalizer) processPerChannel(block [][]float32) {
	for ch, samples := range block {
		if ch >= len(e.perChannel) {
			break
		}
		for i, b := range e.bands {
			if !b.Enabled {
				continue
			}
			e.perChannel[ch][i].Process(samples)
		}
	}
}

func (e *Equalizer) processMidSide(block [][]float32) {
	n := len(block[0])
	if cap(e.mid) < n {
		e.mid = make([]float32, n)
		e.side = make([]float32, n)
	}
	mid, side := e.mid[:n], e.side[:n]

	audio.MidSideEncode(block[0], block[1], mid, side)

	for i, b := range e.bands {
		if !b.Enabled {
			continue
		}
		if b.Target == TargetStereo || b.Target == TargetMid {
			e.midChain[i].Process(mid)
		}
		if b.Target == TargetStereo || b.Target == TargetSide {
			e.sideChain[i].Process(side)
		}
	}

	audio.MidSideDecode(mid, side, block[0], block[1])
}

// Reset clears filter state on every band without touching
// parameters.
func (e *Equalizer) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, chain := range e.perChannel {
		for _, f := range chain {
			f.Reset()
		}
	}
	for _, f := range e.midChain {
		f.Reset()
	}
	for _, f := range e.sideChain {
		f.Reset()
	}
}

// CloneForOffline returns an equalizer with identical parameters and
// id but fresh filter state.
func (e *Equalizer) CloneForOffline() Module {
	e.mu.Lock()
	bands := make([]EqualizerBand, len(e.bands))
	copy(bands, e.bands)
	clone := &Equalizer{
		id:        e.id,
		bands:     bands,
		midSide:   e.midSide,
		autoGain:  e.autoGain,
		character: e.character,
		bypass:    e.bypass,
		trim:      1,
	}
	rate, channels := e.sampleRate, e.channels
	e.mu.Unlock()

	if rate > 0 {
		// Parameters were already realized once, so this cannot fail.
		_ = clone.Initialize(rate, channels)
	} else {
		clone.mu.Lock()
		clone.updateTrim()
		clone.mu.Unlock()
	}
	return clone
}
