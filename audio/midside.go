package audio

// Mid/side matrixing for stereo-width-aware processing.
//
// mid  = (L + R) * 0.5
// side = (L - R) * 0.5
//
// The matrix is its own inverse up to the 0.5 scale:
// L = mid + side, R = mid - side.

// MidSideEncode fills mid and side from a stereo pair. All slices must
// have the same length.
func MidSideEncode(left, right, mid, side []float32) {
	for i := range left {
		l, r := left[i], right[i]
		mid[i] = (l + r) * 0.5
		side[i] = (l - r) * 0.5
	}
}

// MidSideDecode reconstructs the stereo pair from mid and side in place.
// left and right may alias mid and side.
func MidSideDecode(mid, side, left, right []float32) {
	for i := range mid {
		m, s := mid[i], side[i]
		left[i] = m + s
		right[i] = m - s
	}
}
