package engine_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/engine"
	"github.com/ik5/audfx/formats/wav"
	"github.com/ik5/audfx/internal/audiotest"
	"github.com/ik5/audfx/module"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestEngine builds an initialized engine on a fast-ticking null
// host.
func newTestEngine(t *testing.T) (*engine.Engine, *engine.NullHost) {
	t.Helper()

	host := engine.NewNullHost()
	host.Tick = time.Millisecond

	e := engine.New(
		engine.WithHost(host),
		engine.WithLogger(quietLogger()),
		engine.WithBlockSize(256),
	)
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(e.Dispose)
	return e, host
}

func goertzelPower(samples []float32, sampleRate int, freq float64) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

func TestEngine_RequiresInitialize(t *testing.T) {
	t.Parallel()

	e := engine.New(engine.WithLogger(quietLogger()))

	if err := e.LoadBuffer(audiotest.SilentBuffer(8000, 1, 100)); !errors.Is(err, engine.ErrNotInitialized) {
		t.Errorf("LoadBuffer() error = %v, want ErrNotInitialized", err)
	}
	if _, err := e.AddModule(module.Options{Type: module.TypeEqualizer}); !errors.Is(err, engine.ErrNotInitialized) {
		t.Errorf("AddModule() error = %v, want ErrNotInitialized", err)
	}
	if err := e.Play(); !errors.Is(err, engine.ErrNotInitialized) {
		t.Errorf("Play() error = %v, want ErrNotInitialized", err)
	}
}

func TestEngine_InitializeIdempotent(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.Initialize(); err != nil {
		t.Errorf("second Initialize() error = %v", err)
	}
}

func TestEngine_PlayWithoutAudio(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.Play(); !errors.Is(err, engine.ErrNoAudio) {
		t.Errorf("Play() error = %v, want ErrNoAudio", err)
	}
}

func TestEngine_LoadAudio_UnknownFormat(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	err := e.LoadAudio("flac", bytes.NewReader(nil))
	if !errors.Is(err, engine.ErrUnknownFormat) {
		t.Errorf("LoadAudio() error = %v, want ErrUnknownFormat", err)
	}
}

func TestEngine_LoadAudio_Wav(t *testing.T) {
	t.Parallel()

	src := audiotest.SineBuffer(44100, 2, 44100, 440, 0.5)
	var encoded bytes.Buffer
	if err := wav.Encode(&encoded, src); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	e, _ := newTestEngine(t)
	if err := e.LoadAudio("wav", bytes.NewReader(encoded.Bytes())); err != nil {
		t.Fatalf("LoadAudio() error = %v", err)
	}

	st := e.State()
	if math.Abs(st.Duration-1.0) > 1e-6 {
		t.Errorf("Duration = %v, want 1.0", st.Duration)
	}
	if st.CurrentTime != 0 || st.IsPlaying {
		t.Errorf("fresh load state = %+v", st)
	}
}

func TestEngine_ChainMutation(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.LoadBuffer(audiotest.SilentBuffer(44100, 2, 4410)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	eqID, err := e.AddModule(module.Options{
		Type: module.TypeEqualizer,
		Equalizer: &module.EqualizerOptions{
			Bands: []module.EqualizerBand{
				{ID: "b1", Frequency: 1000, Gain: 3, Q: 1, Shape: module.ShapeBell, Enabled: true},
			},
		},
	})
	if err != nil {
		t.Fatalf("AddModule(eq) error = %v", err)
	}

	deID, err := e.AddModule(module.Options{Type: module.TypeDeEsser})
	if err != nil {
		t.Fatalf("AddModule(de) error = %v", err)
	}

	chain := e.ProcessingChain()
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].Type != module.TypeEqualizer || chain[1].Type != module.TypeDeEsser {
		t.Errorf("chain order = [%s, %s]", chain[0].Type, chain[1].Type)
	}

	// Unknown type never reaches the chain.
	if _, err := e.AddModule(module.Options{Type: "chorus"}); !errors.Is(err, module.ErrUnknownType) {
		t.Errorf("AddModule(chorus) error = %v, want ErrUnknownType", err)
	}
	if got := len(e.ProcessingChain()); got != 2 {
		t.Errorf("chain length after failed add = %d, want 2", got)
	}

	// Removing an unknown id is a no-op.
	if err := e.RemoveModule("no-such-module"); err != nil {
		t.Errorf("RemoveModule(unknown) error = %v", err)
	}
	if got := len(e.ProcessingChain()); got != 2 {
		t.Errorf("chain length after unknown remove = %d, want 2", got)
	}

	if err := e.RemoveModule(eqID); err != nil {
		t.Fatalf("RemoveModule(eq) error = %v", err)
	}
	chain = e.ProcessingChain()
	if len(chain) != 1 || chain[0].Type != module.TypeDeEsser {
		t.Fatalf("chain after remove = %+v", chain)
	}

	if err := e.RemoveModule(deID); err != nil {
		t.Fatalf("RemoveModule(de) error = %v", err)
	}
	if got := len(e.ProcessingChain()); got != 0 {
		t.Errorf("chain length = %d, want 0", got)
	}
}

func TestEngine_SetModuleParameters(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.LoadBuffer(audiotest.SilentBuffer(44100, 1, 4410)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	id, err := e.AddModule(module.Options{Type: module.TypeDeEsser})
	if err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	err = e.SetModuleParameters(id, module.Options{
		DeEsser: &module.DeEsserOptions{Threshold: module.Float64(-33)},
	})
	if err != nil {
		t.Fatalf("SetModuleParameters() error = %v", err)
	}

	chain := e.ProcessingChain()
	if got := *chain[0].DeEsser.Threshold; got != -33 {
		t.Errorf("threshold = %v, want -33", got)
	}
	// Untouched parameters keep their values.
	if got := *chain[0].DeEsser.Frequency; got != 6000 {
		t.Errorf("frequency = %v, want default 6000", got)
	}

	err = e.SetModuleParameters("missing", module.Options{})
	if !errors.Is(err, module.ErrNotFound) {
		t.Errorf("SetModuleParameters(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEngine_ApplyPreset_RoundTrip(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.LoadBuffer(audiotest.SilentBuffer(44100, 2, 4410)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	preset := module.Preset{
		Name: "vocal",
		Modules: []module.Options{
			{
				Type: module.TypeEqualizer,
				Equalizer: &module.EqualizerOptions{
					Bands: []module.EqualizerBand{
						{ID: "hp", Frequency: 90, Gain: 0, Q: 0.7, Shape: module.ShapeHighPass, Enabled: true, Target: module.TargetStereo},
						{ID: "pres", Frequency: 3200, Gain: 2, Q: 1.1, Shape: module.ShapeBell, Enabled: true, Target: module.TargetMid},
					},
					MidSide:   module.Bool(true),
					AutoGain:  module.Bool(true),
					Character: module.String(module.CharacterAnalog),
				},
			},
			{
				Type: module.TypeDeEsser,
				DeEsser: &module.DeEsserOptions{
					Mode:      module.String(module.ModeMultiband),
					Frequency: module.Float64(7200),
					Threshold: module.Float64(-16),
					Range:     module.Float64(9),
				},
			},
		},
	}

	if err := e.ApplyPreset(preset); err != nil {
		t.Fatalf("ApplyPreset() error = %v", err)
	}

	chain := e.ProcessingChain()
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}

	eq := chain[0]
	if eq.Type != module.TypeEqualizer {
		t.Fatalf("chain[0].Type = %q", eq.Type)
	}
	if len(eq.Equalizer.Bands) != 2 || eq.Equalizer.Bands[0].ID != "hp" || eq.Equalizer.Bands[1].Frequency != 3200 {
		t.Errorf("equalizer bands = %+v", eq.Equalizer.Bands)
	}
	if !*eq.Equalizer.MidSide || !*eq.Equalizer.AutoGain || *eq.Equalizer.Character != module.CharacterAnalog {
		t.Errorf("equalizer flags = %+v", eq.Equalizer)
	}
	// Nominal Q survives the analog character.
	if eq.Equalizer.Bands[1].Q != 1.1 {
		t.Errorf("nominal Q = %v, want 1.1", eq.Equalizer.Bands[1].Q)
	}

	de := chain[1]
	if de.Type != module.TypeDeEsser {
		t.Fatalf("chain[1].Type = %q", de.Type)
	}
	if *de.DeEsser.Mode != module.ModeMultiband || *de.DeEsser.Frequency != 7200 ||
		*de.DeEsser.Threshold != -16 || *de.DeEsser.Range != 9 {
		t.Errorf("de-esser = %+v", de.DeEsser)
	}
}

func TestEngine_ApplyPreset_FailureLeavesCleared(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if _, err := e.AddModule(module.Options{Type: module.TypeEqualizer}); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	bad := module.Preset{
		Modules: []module.Options{
			{Type: module.TypeEqualizer},
			{Type: "reverb"},
		},
	}

	if err := e.ApplyPreset(bad); !errors.Is(err, module.ErrUnknownType) {
		t.Fatalf("ApplyPreset() error = %v, want ErrUnknownType", err)
	}
	if got := len(e.ProcessingChain()); got != 0 {
		t.Errorf("chain length after failed preset = %d, want cleared (0)", got)
	}
}

func TestEngine_SeekClamping(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	// One second of audio.
	if err := e.LoadBuffer(audiotest.SilentBuffer(8000, 1, 8000)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	tests := []struct {
		seek float64
		want float64
	}{
		{-5, 0},
		{0, 0},
		{0.5, 0.5},
		{1.0, 1.0},
		{42, 1.0},
	}

	for _, tt := range tests {
		e.Seek(tt.seek)
		if got := e.State().CurrentTime; math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Seek(%v): CurrentTime = %v, want %v", tt.seek, got, tt.want)
		}
	}
}

func TestEngine_PlaybackTransport(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	// Ten seconds so the stream cannot drain during the test.
	if err := e.LoadBuffer(audiotest.SilentBuffer(44100, 2, 441000)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !e.State().IsPlaying {
		t.Fatal("IsPlaying = false right after Play")
	}

	// The null host pulls in real time; give it a few ticks.
	deadline := time.Now().Add(2 * time.Second)
	for e.State().CurrentTime == 0 {
		if time.Now().After(deadline) {
			t.Fatal("playhead never advanced")
		}
		time.Sleep(5 * time.Millisecond)
	}

	e.Pause()
	st := e.State()
	if st.IsPlaying {
		t.Error("IsPlaying = true after Pause")
	}
	if st.CurrentTime == 0 {
		t.Error("Pause rewound the playhead")
	}

	e.Stop()
	st = e.State()
	if st.IsPlaying || st.CurrentTime != 0 {
		t.Errorf("state after Stop = %+v, want stopped at 0", st)
	}
}

func TestEngine_PlaybackFinishes(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	// 50ms of audio drains in a few host ticks.
	if err := e.LoadBuffer(audiotest.SilentBuffer(8000, 1, 400)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.State().IsPlaying {
		if time.Now().After(deadline) {
			t.Fatal("playback never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Play after drain restarts from the top.
	if err := e.Play(); err != nil {
		t.Fatalf("Play() after drain error = %v", err)
	}
	if !e.State().IsPlaying {
		t.Error("IsPlaying = false after restart")
	}
}

func TestEngine_RenderOffline_EqualizerBoost(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	src := audiotest.SineBuffer(44100, 1, 16384, 1000, 0.25)
	original := src.Clone()

	if err := e.LoadBuffer(src); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}
	_, err := e.AddModule(module.Options{
		Type: module.TypeEqualizer,
		Equalizer: &module.EqualizerOptions{
			Bands: []module.EqualizerBand{
				{ID: "b1", Frequency: 1000, Gain: 6, Q: 1, Shape: module.ShapeBell, Enabled: true},
			},
		},
	})
	if err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	out, err := e.RenderOffline()
	if err != nil {
		t.Fatalf("RenderOffline() error = %v", err)
	}

	before := goertzelPower(original.Channel(0), 44100, 1000)
	after := goertzelPower(out.Channel(0), 44100, 1000)
	if after < 3*before {
		t.Errorf("1 kHz power ratio = %v, want >= 3 (+6 dB boost)", after/before)
	}

	// The loaded buffer is never mutated by a render.
	for i := 0; i < src.Frames(); i++ {
		if src.Sample(0, i) != original.Sample(0, i) {
			t.Fatalf("render mutated source buffer at frame %d", i)
		}
	}
}

func TestEngine_RenderOffline_DeEsserSilence(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.LoadBuffer(audiotest.SilentBuffer(44100, 2, 22050)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	_, err := e.AddModule(module.Options{
		Type: module.TypeDeEsser,
		DeEsser: &module.DeEsserOptions{
			Mode:      module.String(module.ModeBroadband),
			Frequency: module.Float64(7500),
			Threshold: module.Float64(-12),
			Range:     module.Float64(6),
		},
	})
	if err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}

	out, err := e.RenderOffline()
	if err != nil {
		t.Fatalf("RenderOffline() error = %v", err)
	}

	for ch := 0; ch < out.Channels(); ch++ {
		for i := 0; i < out.Frames(); i++ {
			if s := out.Sample(ch, i); s != 0 {
				t.Fatalf("non-silent sample %v at (%d,%d)", s, ch, i)
			}
		}
	}
}

func TestEngine_RenderOffline_NoAudio(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if _, err := e.RenderOffline(); !errors.Is(err, engine.ErrNoAudio) {
		t.Errorf("RenderOffline() error = %v, want ErrNoAudio", err)
	}
}

func TestEngine_Export(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	src := audiotest.SineBuffer(44100, 2, 4410, 440, 0.5)
	if err := e.LoadBuffer(src); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	data, err := e.Export("wav")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	decoded, err := wav.Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode(exported) error = %v", err)
	}
	roundTrip, err := audio.FromSource(decoded)
	if err != nil {
		t.Fatalf("FromSource() error = %v", err)
	}

	if roundTrip.SampleRate() != 44100 || roundTrip.Channels() != 2 || roundTrip.Frames() != 4410 {
		t.Errorf("round trip layout = (%d, %d, %d)", roundTrip.SampleRate(), roundTrip.Channels(), roundTrip.Frames())
	}

	const tolerance = 1.5 / 32768.0
	for i := 0; i < roundTrip.Frames(); i++ {
		diff := math.Abs(float64(roundTrip.Sample(0, i) - src.Sample(0, i)))
		if diff > tolerance {
			t.Fatalf("sample %d diff = %v, want <= %v", i, diff, tolerance)
		}
	}

	if _, err := e.Export("mp3"); !errors.Is(err, engine.ErrUnsupportedFormat) {
		t.Errorf("Export(mp3) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEngine_Dispose(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	if err := e.LoadBuffer(audiotest.SilentBuffer(8000, 1, 800)); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	e.Dispose()

	if err := e.LoadBuffer(audiotest.SilentBuffer(8000, 1, 800)); !errors.Is(err, engine.ErrDisposed) {
		t.Errorf("LoadBuffer() error = %v, want ErrDisposed", err)
	}
	if err := e.Play(); !errors.Is(err, engine.ErrDisposed) {
		t.Errorf("Play() error = %v, want ErrDisposed", err)
	}
	if _, err := e.RenderOffline(); !errors.Is(err, engine.ErrDisposed) {
		t.Errorf("RenderOffline() error = %v, want ErrDisposed", err)
	}
	// Dispose twice is harmless.
	e.Dispose()

	// Initialize brings the engine back, empty.
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize() after Dispose error = %v", err)
	}
	if got := len(e.ProcessingChain()); got != 0 {
		t.Errorf("chain length after revive = %d, want 0", got)
	}
	if err := e.LoadBuffer(audiotest.SilentBuffer(8000, 1, 800)); err != nil {
		t.Errorf("LoadBuffer() after revive error = %v", err)
	}
}
