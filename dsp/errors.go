// SPDX-License-Identifier: EPL-2.0

package dsp

import "errors"

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidFrequency  = errors.New("frequency must be positive and below Nyquist")
	ErrInvalidQ          = errors.New("q must be positive")
	ErrInvalidRatio      = errors.New("ratio must be >= 1")
	ErrInvalidTime       = errors.New("attack and release times must be positive")
)
