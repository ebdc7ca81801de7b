package utils

// Float32ToInt16 converts a float sample in [-1, 1] to a 16-bit PCM
// value. The scale is asymmetric (32767 for positive values, 32768 for
// negative ones) so both full-scale extremes map onto the int16 range
// without overflow.
func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	if x >= 0 {
		return int16(x * 32767.0)
	}
	return int16(x * 32768.0)
}
