// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"math"
)

// Extent2D is a width/height pair measured in pixels.
// It is the unit every presentation stage agrees on: surface extents, swapchain image sizes and framebuffer sizes.
type Extent2D struct {
	// Width is the horizontal size in pixels.
	Width uint32
	// Height is the vertical size in pixels.
	Height uint32
}

// NewExtent2D builds an Extent2D from signed window dimensions, treating negative values as zero.
// Window systems report sizes as ints while the GPU side works in uint32.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - Extent2D: the converted extent
func NewExtent2D(width, height int) Extent2D {
	return Extent2D{
		Width:  clampToUint32(width),
		Height: clampToUint32(height),
	}
}

func clampToUint32(v int) uint32 {
	return uint32(Clamp(int64(v), 0, math.MaxUint32))
}

// IsZero reports whether either axis is zero. A zero-area extent cannot back a swapchain,
// which is what a minimized window reports.
//
// Returns:
//   - bool: true if width or height is zero
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Clamp limits each axis of the extent independently to the inclusive range [lo, hi].
//
// Parameters:
//   - lo: the per-axis lower bound
//   - hi: the per-axis upper bound
//
// Returns:
//   - Extent2D: the clamped extent
func (e Extent2D) Clamp(lo, hi Extent2D) Extent2D {
	return Extent2D{
		Width:  Clamp(e.Width, lo.Width, hi.Width),
		Height: Clamp(e.Height, lo.Height, hi.Height),
	}
}

func (e Extent2D) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}
