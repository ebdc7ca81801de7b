package module

import (
	"errors"
	"math"
	"testing"
)

const eqTestRate = 44100

// sineBlock generates one channel of a sine at freq Hz.
func sineBlock(freq float64, frames int) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/eqTestRate))
	}
	return out
}

// goertzelPower measures the energy of a single frequency bin.
func goertzelPower(samples []float32, freq float64) float64 {
	w := 2 * math.Pi * freq / eqTestRate
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

func newTestEqualizer(t *testing.T, opts *EqualizerOptions, channels int) *Equalizer {
	t.Helper()

	eq, err := NewEqualizer(opts)
	if err != nil {
		t.Fatalf("NewEqualizer() error = %v", err)
	}
	if err := eq.Initialize(eqTestRate, channels); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return eq
}

func TestEqualizer_BellBoostRaisesBandEnergy(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true},
		},
	}, 1)

	in := sineBlock(1000, 8192)
	far := sineBlock(100, 8192)

	inPower := goertzelPower(in, 1000)
	farPower := goertzelPower(far, 100)

	eq.Process([][]float32{in})
	outPower := goertzelPower(in, 1000)

	eq.Reset()
	eq.Process([][]float32{far})
	farOutPower := goertzelPower(far, 100)

	// +6 dB is a factor of ~4 in power; allow for filter transients.
	if outPower < 3*inPower {
		t.Errorf("1 kHz power ratio = %v, want >= 3", outPower/inPower)
	}
	ratio := farOutPower / farPower
	if ratio < 0.9 || ratio > 1.1 {
		t.Errorf("100 Hz power ratio = %v, want ~1 (band untouched)", ratio)
	}
}

func TestEqualizer_DisabledBandIsInert(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 12, Q: 1, Shape: ShapeBell, Enabled: false},
		},
	}, 1)

	in := sineBlock(1000, 1024)
	want := make([]float32, len(in))
	copy(want, in)

	eq.Process([][]float32{in})

	for i := range in {
		if in[i] != want[i] {
			t.Fatalf("sample %d changed by disabled band: %v != %v", i, in[i], want[i])
		}
	}
}

func TestEqualizer_BypassPassesThrough(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 12, Q: 1, Shape: ShapeBell, Enabled: true},
		},
	}, 1)
	eq.SetBypass(true)

	in := sineBlock(1000, 1024)
	want := make([]float32, len(in))
	copy(want, in)

	eq.Process([][]float32{in})

	for i := range in {
		if in[i] != want[i] {
			t.Fatalf("sample %d changed while bypassed: %v != %v", i, in[i], want[i])
		}
	}
}

func TestEqualizer_AutoGainTrim(t *testing.T) {
	t.Parallel()

	opts := &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true},
			{ID: "b2", Frequency: 4000, Gain: -4, Q: 1, Shape: ShapeBell, Enabled: true},
		},
		AutoGain: Bool(true),
	}

	plain := newTestEqualizer(t, &EqualizerOptions{Bands: opts.Bands}, 1)
	trimmed := newTestEqualizer(t, opts, 1)

	a := sineBlock(1000, 4096)
	b := make([]float32, len(a))
	copy(b, a)

	plain.Process([][]float32{a})
	trimmed.Process([][]float32{b})

	// -0.1 dB per dB of |gain|: 10 dB total -> -1 dB trim.
	wantTrim := float32(math.Pow(10, -1.0/20))
	for i := range a {
		want := a[i] * wantTrim
		if diff := math.Abs(float64(b[i] - want)); diff > 1e-5 {
			t.Fatalf("sample %d = %v, want %v (trim %v)", i, b[i], want, wantTrim)
		}
	}
}

func TestEqualizer_AutoGainToggleIdempotent(t *testing.T) {
	t.Parallel()

	bands := []EqualizerBand{
		{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true},
	}

	never := newTestEqualizer(t, &EqualizerOptions{Bands: bands}, 1)
	toggled := newTestEqualizer(t, &EqualizerOptions{Bands: bands}, 1)

	for _, v := range []bool{true, false} {
		if _, err := toggled.SetOptions(Options{Equalizer: &EqualizerOptions{AutoGain: Bool(v)}}); err != nil {
			t.Fatalf("SetOptions(autoGain=%v) error = %v", v, err)
		}
	}

	a := sineBlock(1000, 4096)
	b := make([]float32, len(a))
	copy(b, a)

	never.Process([][]float32{a})
	toggled.Process([][]float32{b})

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs after enable/disable cycle: %v != %v", i, a[i], b[i])
		}
	}
}

func TestEqualizer_NominalQReported(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 6, Q: 2, Shape: ShapeBell, Enabled: true},
		},
		Character: String(CharacterVintage),
	}, 1)

	got := eq.Options()
	if got.Equalizer == nil || len(got.Equalizer.Bands) != 1 {
		t.Fatalf("Options() = %+v, want one band", got)
	}
	if q := got.Equalizer.Bands[0].Q; q != 2 {
		t.Errorf("nominal Q = %v, want 2 (character must not leak)", q)
	}
	if c := got.Equalizer.Character; c == nil || *c != CharacterVintage {
		t.Errorf("Character = %v, want vintage", c)
	}
}

func TestEqualizer_CharacterNarrowsRealizedQ(t *testing.T) {
	t.Parallel()

	// A narrower Q leaves frequencies away from center closer to
	// unity, so the off-center boost under vintage is smaller.
	process := func(character string) float64 {
		eq := newTestEqualizer(t, &EqualizerOptions{
			Bands: []EqualizerBand{
				{ID: "b1", Frequency: 1000, Gain: 12, Q: 4, Shape: ShapeBell, Enabled: true},
			},
			Character: String(character),
		}, 1)

		in := sineBlock(1300, 8192)
		ref := goertzelPower(in, 1300)
		eq.Process([][]float32{in})
		return goertzelPower(in, 1300) / ref
	}

	digital := process(CharacterDigital)
	vintage := process(CharacterVintage)

	if vintage >= digital {
		t.Errorf("off-center gain vintage = %v, digital = %v; want vintage < digital", vintage, digital)
	}
}

func TestEqualizer_MidSideSideBandLeavesMonoUntouched(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 12, Q: 1, Shape: ShapeBell, Enabled: true, Target: TargetSide},
		},
		MidSide: Bool(true),
	}, 2)

	// Identical channels have zero side signal; a side-only band must
	// not change the output.
	left := sineBlock(1000, 2048)
	right := make([]float32, len(left))
	copy(right, left)
	want := make([]float32, len(left))
	copy(want, left)

	eq.Process([][]float32{left, right})

	for i := range left {
		if diff := math.Abs(float64(left[i] - want[i])); diff > 1e-6 {
			t.Fatalf("left sample %d moved by side band: %v != %v", i, left[i], want[i])
		}
		if diff := math.Abs(float64(left[i] - right[i])); diff > 1e-6 {
			t.Fatalf("channels diverged at %d: %v != %v", i, left[i], right[i])
		}
	}
}

func TestEqualizer_MidSideMonoFallsBack(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true},
		},
		MidSide: Bool(true),
	}, 1)

	in := sineBlock(1000, 8192)
	ref := goertzelPower(in, 1000)
	eq.Process([][]float32{in})

	if out := goertzelPower(in, 1000); out < 3*ref {
		t.Errorf("mono fallback power ratio = %v, want >= 3", out/ref)
	}
}

func TestEqualizer_SetOptionsTopology(t *testing.T) {
	t.Parallel()

	band := EqualizerBand{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true}
	eq := newTestEqualizer(t, &EqualizerOptions{Bands: []EqualizerBand{band}}, 2)

	// Parameter-only edit: same band id, new gain.
	retuned := band
	retuned.Gain = 3
	changed, err := eq.SetOptions(Options{Equalizer: &EqualizerOptions{Bands: []EqualizerBand{retuned}}})
	if err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if changed {
		t.Error("gain edit reported topology change")
	}

	// Band added.
	second := EqualizerBand{ID: "b2", Frequency: 4000, Gain: -3, Q: 1, Shape: ShapeBell, Enabled: true}
	changed, err = eq.SetOptions(Options{Equalizer: &EqualizerOptions{Bands: []EqualizerBand{retuned, second}}})
	if err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if !changed {
		t.Error("band add did not report topology change")
	}

	// Mid/side flip.
	changed, err = eq.SetOptions(Options{Equalizer: &EqualizerOptions{MidSide: Bool(true)}})
	if err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if !changed {
		t.Error("mid/side flip did not report topology change")
	}
}

func TestEqualizer_SetOptionsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts EqualizerOptions
	}{
		{"zero frequency", EqualizerOptions{Bands: []EqualizerBand{{ID: "b", Frequency: 0, Q: 1}}}},
		{"negative q", EqualizerOptions{Bands: []EqualizerBand{{ID: "b", Frequency: 1000, Q: -1}}}},
		{"bad shape", EqualizerOptions{Bands: []EqualizerBand{{ID: "b", Frequency: 1000, Q: 1, Shape: "comb"}}}},
		{"bad target", EqualizerOptions{Bands: []EqualizerBand{{ID: "b", Frequency: 1000, Q: 1, Target: "left"}}}},
		{"bad character", EqualizerOptions{Character: String("tube")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eq := newTestEqualizer(t, nil, 2)
			before := eq.Options()

			opts := tt.opts
			if _, err := eq.SetOptions(Options{Equalizer: &opts}); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("SetOptions() error = %v, want ErrInvalidParameter", err)
			}

			after := eq.Options()
			if len(after.Equalizer.Bands) != len(before.Equalizer.Bands) {
				t.Error("failed update mutated state")
			}
		})
	}
}

func TestEqualizer_SetOptionsTypeMismatch(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, nil, 1)

	if _, err := eq.SetOptions(Options{Type: TypeDeEsser}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("SetOptions(de_esser tag) error = %v, want ErrTypeMismatch", err)
	}
	if _, err := eq.SetOptions(Options{DeEsser: &DeEsserOptions{}}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("SetOptions(de-esser payload) error = %v, want ErrTypeMismatch", err)
	}
}

func TestEqualizer_CloneForOffline(t *testing.T) {
	t.Parallel()

	eq := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true},
		},
	}, 1)

	// Dirty the live filter state.
	warm := sineBlock(1000, 512)
	eq.Process([][]float32{warm})

	clone := eq.CloneForOffline()
	if clone.ID() != eq.ID() {
		t.Errorf("clone id = %q, want %q", clone.ID(), eq.ID())
	}

	// A fresh instance and the clone must produce identical output;
	// the warmed-up live instance must not.
	fresh := newTestEqualizer(t, &EqualizerOptions{
		Bands: []EqualizerBand{
			{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: ShapeBell, Enabled: true},
		},
	}, 1)

	a := sineBlock(1000, 512)
	b := make([]float32, len(a))
	copy(b, a)

	clone.Process([][]float32{a})
	fresh.Process([][]float32{b})

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("clone state not fresh at sample %d: %v != %v", i, a[i], b[i])
		}
	}
}
