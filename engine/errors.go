// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	// ErrDisposed is returned by every operation except Initialize
	// after Dispose has been called.
	ErrDisposed = errors.New("engine disposed")

	// ErrNotInitialized is returned when an operation requires
	// Initialize to have been called first.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrNoAudio is returned when an operation needs a loaded buffer
	// and none is present.
	ErrNoAudio = errors.New("no audio loaded")

	// ErrUnknownFormat is returned by LoadAudio when no decoder is
	// registered for the requested format.
	ErrUnknownFormat = errors.New("unknown audio format")

	// ErrUnsupportedFormat is returned by Export for output formats
	// other than wav.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
