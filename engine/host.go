// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Host owns real-time audio output. The engine hands it a streamer
// when playback starts and clears it on pause/stop. Implementations
// pull the streamer on their own schedule; the engine never pushes.
type Host interface {
	// Init prepares the output at the given sample rate. Calling it
	// again with the same rate is a no-op.
	Init(sampleRate int) error

	// Play starts pulling the streamer until it drains or Clear is
	// called. A second Play replaces the current streamer.
	Play(s beep.Streamer)

	// Clear stops pulling and drops the current streamer.
	Clear()

	// SampleRate returns the rate Init succeeded with, 0 before that.
	SampleRate() int

	// Close releases the output device.
	Close() error
}

// SpeakerHost plays through the system audio device via gopxl/beep's
// speaker package.
type SpeakerHost struct {
	mu   sync.Mutex
	rate int
}

// NewSpeakerHost returns an uninitialized speaker host; the device is
// opened on Init.
func NewSpeakerHost() *SpeakerHost {
	return &SpeakerHost{}
}

func (h *SpeakerHost) Init(sampleRate int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rate == sampleRate {
		return nil
	}

	// speaker.Init tears down any previous device.
	bufSize := sampleRate / 10
	if err := speaker.Init(beep.SampleRate(sampleRate), bufSize); err != nil {
		return fmt.Errorf("initializing speaker at %d Hz: %w", sampleRate, err)
	}
	h.rate = sampleRate
	return nil
}

func (h *SpeakerHost) Play(s beep.Streamer) {
	speaker.Clear()
	speaker.Play(s)
}

func (h *SpeakerHost) Clear() {
	speaker.Clear()
}

func (h *SpeakerHost) SampleRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *SpeakerHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rate != 0 {
		speaker.Close()
		h.rate = 0
	}
	return nil
}

// NullHost consumes the streamer at wall-clock pace without touching
// any audio device. It keeps playback semantics (position advance,
// drain detection) intact on machines with no sound hardware and in
// tests.
type NullHost struct {
	mu   sync.Mutex
	rate int
	stop chan struct{}
	wg   sync.WaitGroup

	// Interval between pulls; shortened in tests.
	Tick time.Duration
}

// NewNullHost returns a silent host pulling in 10ms slices.
func NewNullHost() *NullHost {
	return &NullHost{Tick: 10 * time.Millisecond}
}

func (h *NullHost) Init(sampleRate int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rate = sampleRate
	return nil
}

func (h *NullHost) Play(s beep.Streamer) {
	h.Clear()

	h.mu.Lock()
	rate := h.rate
	tick := h.Tick
	stop := make(chan struct{})
	h.stop = stop
	h.mu.Unlock()

	if rate == 0 {
		rate = defaultSampleRate
	}
	framesPerTick := int(float64(rate) * tick.Seconds())
	if framesPerTick < 1 {
		framesPerTick = 1
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		buf := make([][2]float64, framesPerTick)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if _, ok := s.Stream(buf); !ok {
					return
				}
			}
		}
	}()
}

func (h *NullHost) Clear() {
	h.mu.Lock()
	stop := h.stop
	h.stop = nil
	h.mu.Unlock()

	if stop != nil {
		close(stop)
		h.wg.Wait()
	}
}

func (h *NullHost) SampleRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rate
}

func (h *NullHost) Close() error {
	h.Clear()
	return nil
}
