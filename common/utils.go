package common

import "golang.org/x/exp/constraints"

// Coalesce returns the first non-zero value, or the zero value if all are zero.
// Descriptor defaults use it to fill fields the caller left unset.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return max(lo, min(hi, v))
}

// DivCeil returns n / d rounded up. It is the dispatch size for n items at d items per workgroup.
//
// Parameters:
//   - n: the item count
//   - d: the items per group, must be non-zero
//
// Returns:
//   - T: the smallest count of groups covering n items
func DivCeil[T constraints.Unsigned](n, d T) T {
	return (n + d - 1) / d
}
