// SPDX-License-Identifier: EPL-2.0

package module

import "fmt"

// Module is a processing node in an audio chain. Implementations are
// stateful across blocks and safe for a single processing goroutine
// concurrent with parameter updates.
type Module interface {
	// ID returns the module's stable identifier, assigned at
	// construction and preserved by CloneForOffline.
	ID() string

	// Name returns a human-readable module name.
	Name() string

	// Type returns the Options type tag.
	Type() string

	// Initialize prepares the module's internal processors for the
	// given stream layout. It may be called again when the layout
	// changes; doing so resets processing state.
	Initialize(sampleRate, channels int) error

	// SetBypass toggles bypass. A bypassed module keeps its parameters
	// and passes audio through untouched; un-bypassing restores the
	// exact prior behavior.
	SetBypass(bypass bool)
	Bypassed() bool

	// Options returns a deep snapshot of the nominal parameters.
	Options() Options

	// SetOptions applies a partial update. It reports whether the
	// module's internal topology changed (as opposed to an in-place
	// retune). On error the module keeps its prior state.
	SetOptions(patch Options) (topologyChanged bool, err error)

	// Process filters one block in place. block holds one slice per
	// channel, all the same length. A module that has not been
	// initialized, or is bypassed, leaves the block untouched.
	Process(block [][]float32)

	// Reset clears processing state (filter histories, envelopes)
	// without touching parameters.
	Reset()

	// CloneForOffline returns a module with identical configured
	// parameters and fresh processing state, for rendering isolated
	// from the live instance.
	CloneForOffline() Module
}

// New constructs a module from its serialized options. The type tag
// is a closed set; anything else fails before construction.
func New(opts Options) (Module, error) {
	switch opts.Type {
	case TypeEqualizer:
		return NewEqualizer(opts.Equalizer)
	case TypeDeEsser:
		return NewDeEsser(opts.DeEsser)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, opts.Type)
	}
}
