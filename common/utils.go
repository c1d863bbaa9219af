package common

import "cmp"

// Coalesce returns the first non-zero value, or the zero value if every value is zero.
// Config defaults are applied with it: Coalesce(configured, fallback).
//
// Parameters:
//   - values: candidate values in order of preference
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp limits v to the closed range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound, expected to be >= lo
//
// Returns:
//   - T: lo if v < lo, hi if v > hi, otherwise v
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
