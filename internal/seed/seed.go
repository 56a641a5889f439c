// Package seed derives the per-image seed sent to the image provider.
package seed

import "math/rand/v2"

const (
	// Random asks for an independently drawn seed for every image.
	Random int64 = -1

	// Max is the largest seed the providers accept.
	Max int64 = 2147483647
)

// Derive returns base+index when base is non-negative, so a fixed seed gives
// reproducible variations. A negative base draws a fresh seed in [0, Max] on
// every call, regardless of index.
func Derive(base, index int64) int64 {
	if base >= 0 {
		return base + index
	}
	return rand.Int64N(Max + 1)
}
