// SPDX-License-Identifier: EPL-2.0

package module

// Module type tags. These are the only values New accepts, and the
// values stored in presets.
const (
	TypeEqualizer = "equalizer"
	TypeDeEsser   = "de_esser"
)

// Equalizer band shapes.
const (
	ShapeBell      = "bell"
	ShapeLowShelf  = "lowshelf"
	ShapeHighShelf = "highshelf"
	ShapeLowPass   = "lowpass"
	ShapeHighPass  = "highpass"
	ShapeNotch     = "notch"
)

// Equalizer band targets in mid/side mode.
const (
	TargetStereo = "stereo"
	TargetMid    = "mid"
	TargetSide   = "side"
)

// Equalizer characters. Character adjusts only the realized filter Q;
// the nominal Q stored in a band is never touched.
const (
	CharacterDigital   = "digital"
	CharacterAnalog    = "analog"
	CharacterVintage   = "vintage"
	CharacterBaxandall = "baxandall"
)

// De-esser modes.
const (
	ModeBroadband = "broadband"
	ModeMultiband = "multiband"
)

// Options is the tagged union describing a module's full parameter
// set. It is the only form ever persisted or transmitted; modules
// themselves are never serialized. Exactly one payload pointer should
// be set, matching Type.
//
// The same shape doubles as a partial update: nil pointer fields in a
// payload mean "leave unchanged", so a patch carrying only the fields
// to modify can be applied with SetOptions.
type Options struct {
	Type      string            `json:"type"`
	Equalizer *EqualizerOptions `json:"equalizer,omitempty"`
	DeEsser   *DeEsserOptions   `json:"deEsser,omitempty"`
}

// Clone returns a deep copy, so callers can hold snapshots without
// aliasing live module state.
func (o Options) Clone() Options {
	out := Options{Type: o.Type}
	if o.Equalizer != nil {
		eq := o.Equalizer.clone()
		out.Equalizer = &eq
	}
	if o.DeEsser != nil {
		de := o.DeEsser.clone()
		out.DeEsser = &de
	}
	return out
}

// EqualizerBand is one parametric band. Frequency is in Hz, Gain in
// dB. Bands are ordered; list order is signal order inside the module.
type EqualizerBand struct {
	ID        string  `json:"id"`
	Frequency float64 `json:"frequency"`
	Gain      float64 `json:"gain"`
	Q         float64 `json:"q"`
	Shape     string  `json:"shape"`
	Enabled   bool    `json:"enabled"`
	Target    string  `json:"target"`
}

// EqualizerOptions carries the equalizer parameter set. In a patch,
// a nil Bands slice leaves the band list unchanged; a non-nil slice
// (including an empty one) replaces it wholesale.
type EqualizerOptions struct {
	Bands     []EqualizerBand `json:"bands"`
	MidSide   *bool           `json:"midSide,omitempty"`
	AutoGain  *bool           `json:"autoGain,omitempty"`
	Character *string         `json:"character,omitempty"`
}

func (o EqualizerOptions) clone() EqualizerOptions {
	out := EqualizerOptions{}
	if o.Bands != nil {
		out.Bands = make([]EqualizerBand, len(o.Bands))
		copy(out.Bands, o.Bands)
	}
	if o.MidSide != nil {
		out.MidSide = Bool(*o.MidSide)
	}
	if o.AutoGain != nil {
		out.AutoGain = Bool(*o.AutoGain)
	}
	if o.Character != nil {
		out.Character = String(*o.Character)
	}
	return out
}

// DeEsserOptions carries the de-esser parameter set. Frequency is in
// Hz, Threshold in dB, Range in dB on a 0-24 scale, Attack and Release
// in milliseconds. Nil fields in a patch leave the value unchanged.
type DeEsserOptions struct {
	Mode      *string  `json:"mode,omitempty"`
	Frequency *float64 `json:"frequency,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Range     *float64 `json:"range,omitempty"`
	Attack    *float64 `json:"attack,omitempty"`
	Release   *float64 `json:"release,omitempty"`
	Listen    *bool    `json:"listen,omitempty"`
}

func (o DeEsserOptions) clone() DeEsserOptions {
	out := DeEsserOptions{}
	if o.Mode != nil {
		out.Mode = String(*o.Mode)
	}
	if o.Frequency != nil {
		out.Frequency = Float64(*o.Frequency)
	}
	if o.Threshold != nil {
		out.Threshold = Float64(*o.Threshold)
	}
	if o.Range != nil {
		out.Range = Float64(*o.Range)
	}
	if o.Attack != nil {
		out.Attack = Float64(*o.Attack)
	}
	if o.Release != nil {
		out.Release = Float64(*o.Release)
	}
	if o.Listen != nil {
		out.Listen = Bool(*o.Listen)
	}
	return out
}

// Bool returns a pointer to v, for building option patches.
func Bool(v bool) *bool { return &v }

// Float64 returns a pointer to v, for building option patches.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v, for building option patches.
func String(v string) *string { return &v }
