// SPDX-License-Identifier: EPL-2.0

package module

import "errors"

var (
	// ErrUnknownType is returned by New for a type tag outside the
	// closed set of module types.
	ErrUnknownType = errors.New("unknown module type")

	// ErrNotFound is returned when a module id does not exist in a
	// processing chain.
	ErrNotFound = errors.New("module not found")

	// ErrTypeMismatch is returned when options carry a type tag or
	// payload that does not match the module they are applied to.
	ErrTypeMismatch = errors.New("options type mismatch")

	// ErrInvalidParameter is returned when options fail validation.
	// The module keeps its prior state.
	ErrInvalidParameter = errors.New("invalid module parameter")
)
