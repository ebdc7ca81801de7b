// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ik5/audfx/audio"
	"github.com/ik5/audfx/module"
)

// PlaybackState is a snapshot of the transport. CurrentTime and
// Duration are in seconds; 0 <= CurrentTime <= Duration always.
type PlaybackState struct {
	IsPlaying   bool
	CurrentTime float64
	Duration    float64
}

type chainEntry struct {
	id  string
	mod module.Module
}

// Engine is the audio graph: one loaded buffer routed through an
// ordered chain of processing modules, with real-time playback,
// offline rendering, and WAV export.
//
// All mutations go through the engine's lock and end with a
// build-then-swap of the live graph, so the playback path only ever
// observes complete chains.
type Engine struct {
	mu sync.Mutex

	log       logrus.FieldLogger
	host      Host
	registry  *audio.Registry
	blockSize int

	initialized bool
	disposed    bool

	buffer *audio.Buffer
	chain  []chainEntry
	live   atomic.Pointer[wiredGraph]

	playing  bool
	playhead atomic.Int64
	finished atomic.Bool
}

// New creates an engine. It does nothing until Initialize.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:       logrus.New(),
		registry:  defaultRegistry(),
		blockSize: defaultBlockSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize acquires the playback host. It is idempotent, and it is
// the one operation allowed after Dispose: calling it then brings up a
// fresh engine with an empty chain.
//
// A missing or failing audio device is never fatal; the engine falls
// back to NullHost so every non-auditory operation keeps working.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized && !e.disposed {
		return nil
	}
	e.disposed = false

	if e.host == nil {
		h := NewSpeakerHost()
		if err := h.Init(defaultSampleRate); err != nil {
			e.log.WithError(err).Warn("no audio device, falling back to null host")
			null := NewNullHost()
			_ = null.Init(defaultSampleRate)
			e.host = null
		} else {
			e.host = h
		}
	} else if err := e.host.Init(defaultSampleRate); err != nil {
		e.log.WithError(err).Warn("host rejected default rate, falling back to null host")
		null := NewNullHost()
		_ = null.Init(defaultSampleRate)
		e.host = null
	}

	e.initialized = true
	e.live.Store(&wiredGraph{})
	e.log.WithField("block_size", e.blockSize).Info("engine initialized")
	return nil
}

// guard validates the common preconditions. Caller holds the lock.
func (e *Engine) guard() error {
	if e.disposed {
		return ErrDisposed
	}
	if !e.initialized {
		return ErrNotInitialized
	}
	return nil
}

// LoadAudio decodes the reader with the registered decoder for format
// and replaces the loaded buffer. Playback stops and the playhead
// resets; the existing chain is re-initialized for the new stream
// layout.
func (e *Engine) LoadAudio(format string, r io.Reader) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}

	dec, ok := e.registry.Get(format)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	src, err := dec.Decode(r)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", format, err)
	}
	defer src.Close()

	buf, err := audio.FromSource(src)
	if err != nil {
		return fmt.Errorf("reading %s stream: %w", format, err)
	}

	return e.installBuffer(buf)
}

// LoadBuffer accepts an already-decoded buffer, with the same
// replacement semantics as LoadAudio.
func (e *Engine) LoadBuffer(buf *audio.Buffer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}
	if buf == nil {
		return ErrNoAudio
	}
	return e.installBuffer(buf)
}

// installBuffer swaps in a new buffer and rewires the chain for its
// layout. Caller holds the lock.
func (e *Engine) installBuffer(buf *audio.Buffer) error {
	e.stopLocked()
	e.buffer = buf
	e.playhead.Store(0)

	for _, entry := range e.chain {
		if err := entry.mod.Initialize(buf.SampleRate(), buf.Channels()); err != nil {
			return fmt.Errorf("re-initializing module %s: %w", entry.id, err)
		}
	}
	e.swapGraph()

	e.log.WithFields(logrus.Fields{
		"sample_rate": buf.SampleRate(),
		"channels":    buf.Channels(),
		"duration":    buf.Duration(),
	}).Info("audio loaded")
	return nil
}

// swapGraph builds a fresh wired graph from the chain and publishes
// it atomically. Caller holds the lock.
func (e *Engine) swapGraph() {
	mods := make([]module.Module, len(e.chain))
	for i, entry := range e.chain {
		mods[i] = entry.mod
	}
	e.live.Store(&wiredGraph{modules: mods})
}

// AddModule constructs a module from its options, appends it to the
// chain, and returns its id.
func (e *Engine) AddModule(opts module.Options) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return "", err
	}

	mod, err := module.New(opts)
	if err != nil {
		return "", err
	}
	if e.buffer != nil {
		if err := mod.Initialize(e.buffer.SampleRate(), e.buffer.Channels()); err != nil {
			return "", err
		}
	}

	e.chain = append(e.chain, chainEntry{id: mod.ID(), mod: mod})
	e.swapGraph()

	e.log.WithFields(logrus.Fields{
		"module": mod.Type(),
		"id":     mod.ID(),
		"chain":  len(e.chain),
	}).Debug("module added")
	return mod.ID(), nil
}

// RemoveModule detaches a module from the chain. An unknown id is a
// no-op.
func (e *Engine) RemoveModule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}

	for i, entry := range e.chain {
		if entry.id != id {
			continue
		}
		e.chain = append(e.chain[:i], e.chain[i+1:]...)
		e.swapGraph()
		e.log.WithField("id", id).Debug("module removed")
		return nil
	}
	return nil
}

// SetModuleParameters applies a partial options update to one module.
// Parameter-only edits retune the module in place; only topology
// changes trigger a graph re-wire.
func (e *Engine) SetModuleParameters(id string, patch module.Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}

	for _, entry := range e.chain {
		if entry.id != id {
			continue
		}
		changed, err := entry.mod.SetOptions(patch)
		if err != nil {
			return err
		}
		if changed {
			e.swapGraph()
		}
		return nil
	}
	return fmt.Errorf("%w: %s", module.ErrNotFound, id)
}

// ClearChain removes every module.
func (e *Engine) ClearChain() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}

	e.chain = nil
	e.swapGraph()
	return nil
}

// ApplyPreset replaces the whole chain with the preset's modules. The
// chain is cleared first; if any module fails to build, the engine is
// left with the cleared chain rather than a partial one.
func (e *Engine) ApplyPreset(p module.Preset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}

	e.chain = nil
	e.swapGraph()

	entries := make([]chainEntry, 0, len(p.Modules))
	for i, opts := range p.Modules {
		mod, err := module.New(opts)
		if err != nil {
			return fmt.Errorf("preset module %d: %w", i, err)
		}
		if e.buffer != nil {
			if err := mod.Initialize(e.buffer.SampleRate(), e.buffer.Channels()); err != nil {
				return fmt.Errorf("preset module %d: %w", i, err)
			}
		}
		entries = append(entries, chainEntry{id: mod.ID(), mod: mod})
	}

	e.chain = entries
	e.swapGraph()

	e.log.WithFields(logrus.Fields{
		"preset":  p.Name,
		"modules": len(entries),
	}).Info("preset applied")
	return nil
}

// ProcessingChain returns deep snapshots of the chain's nominal
// options, in routing order.
func (e *Engine) ProcessingChain() []module.Options {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]module.Options, len(e.chain))
	for i, entry := range e.chain {
		out[i] = entry.mod.Options().Clone()
	}
	return out
}

// Play starts (or restarts) playback from the current position. When
// the host runs at a different rate than the buffer, the stream is
// resampled on the fly.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guard(); err != nil {
		return err
	}
	if e.buffer == nil {
		return ErrNoAudio
	}

	// Drained stream restarts from the top.
	if e.finished.Load() {
		e.playhead.Store(0)
	}
	e.finished.Store(false)

	if err := e.host.Init(e.buffer.SampleRate()); err != nil {
		e.log.WithError(err).Debug("host kept at previous rate, resampling")
	}

	var src audio.Source = newGraphSource(e.buffer, &e.live, &e.playhead, e.blockSize)
	if hostRate := e.host.SampleRate(); hostRate > 0 && hostRate != e.buffer.SampleRate() {
		src = audio.NewResampler(src, hostRate)
	}

	finished := &e.finished
	e.host.Play(&sourceStreamer{
		src: src,
		// Runs on the host's pull goroutine; must not take e.mu.
		onDrain: func() { finished.Store(true) },
	})
	e.playing = true

	e.log.WithField("position", e.currentSeconds()).Debug("playback started")
	return nil
}

// Pause stops pulling audio but keeps the playhead.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.guard() != nil || !e.playing {
		return
	}
	e.host.Clear()
	e.playing = false
}

// Stop halts playback and rewinds to the start.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.guard() != nil {
		return
	}
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.host != nil {
		e.host.Clear()
	}
	e.playing = false
	e.playhead.Store(0)
	e.finished.Store(false)
}

// Seek moves the playhead to the given time in seconds, clamped to
// [0, duration]. Seeking during playback takes effect on the next
// block without restarting the stream.
func (e *Engine) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.guard() != nil || e.buffer == nil {
		return
	}

	if seconds < 0 {
		seconds = 0
	}
	if d := e.buffer.Duration(); seconds > d {
		seconds = d
	}

	frame := int64(seconds * float64(e.buffer.SampleRate()))
	if total := int64(e.buffer.Frames()); frame > total {
		frame = total
	}
	e.playhead.Store(frame)

	if e.finished.Load() && frame < int64(e.buffer.Frames()) {
		e.finished.Store(false)
	}
}

func (e *Engine) currentSeconds() float64 {
	if e.buffer == nil {
		return 0
	}
	sec := float64(e.playhead.Load()) / float64(e.buffer.SampleRate())
	if d := e.buffer.Duration(); sec > d {
		sec = d
	}
	return sec
}

// State returns a transport snapshot.
func (e *Engine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playing && e.finished.Load() {
		e.playing = false
	}

	st := PlaybackState{
		IsPlaying:   e.playing,
		CurrentTime: e.currentSeconds(),
	}
	if e.buffer != nil {
		st.Duration = e.buffer.Duration()
	}
	return st
}

// Dispose stops playback and releases the buffer, chain, and host.
// Every later call except Initialize returns ErrDisposed (or is a
// no-op for methods without an error). An in-flight offline render
// completes against the modules it already cloned.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return
	}

	if e.initialized {
		e.stopLocked()
		if err := e.host.Close(); err != nil {
			e.log.WithError(err).Warn("closing host")
		}
	}

	e.buffer = nil
	e.chain = nil
	e.live.Store(&wiredGraph{})
	e.initialized = false
	e.disposed = true
	e.log.Info("engine disposed")
}
