package pipeline

import (
	"math"

	"github.com/andresmejia3/samaritan/internal/types"
)

// Rescale maps a box found on a frame downscaled by factor back to full-resolution
// coordinates. The result is not clamped to the frame bounds.
func Rescale(b types.Box, factor float64) types.Box {
	inv := 1 / factor
	scale := func(v int) int { return int(math.Round(float64(v) * inv)) }
	return types.Box{
		Top:    scale(b.Top),
		Right:  scale(b.Right),
		Bottom: scale(b.Bottom),
		Left:   scale(b.Left),
	}
}
