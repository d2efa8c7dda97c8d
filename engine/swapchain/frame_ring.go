package swapchain

import (
	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/surface"
)

// FrameRing is one generation of presentable images and their views.
//
// Images are driver-owned and are never destroyed individually; they go away with the
// swapchain. Views are owned by the Manager that built the ring and are released before the
// ring is rebuilt or destroyed. Views and images are one-to-one and in the same order.
type FrameRing struct {
	config     surface.PresentationConfig
	swapchain  device.SwapchainHandle
	images     []device.ImageHandle
	views      []device.ImageViewHandle
	generation uint64
	released   bool
}

// Config returns the negotiated config the ring was built from.
func (r *FrameRing) Config() surface.PresentationConfig {
	return r.config
}

// Format returns the image format.
func (r *FrameRing) Format() device.Format {
	return r.config.Format
}

// Extent returns the image size.
func (r *FrameRing) Extent() common.Extent2D {
	return r.config.Extent
}

// Swapchain returns the swapchain handle, or zero once released.
func (r *FrameRing) Swapchain() device.SwapchainHandle {
	return r.swapchain
}

// Images returns a copy of the image handles in presentation index order.
func (r *FrameRing) Images() []device.ImageHandle {
	return append([]device.ImageHandle(nil), r.images...)
}

// Views returns a copy of the view handles, one per image, in image order.
func (r *FrameRing) Views() []device.ImageViewHandle {
	return append([]device.ImageViewHandle(nil), r.views...)
}

// Len returns the number of images the driver actually created.
func (r *FrameRing) Len() int {
	return len(r.images)
}

// Generation returns the ring's generation. Every successful Create or Recreate on a Manager
// yields a higher generation than any ring the Manager produced before.
func (r *FrameRing) Generation() uint64 {
	return r.generation
}

// Released reports whether the ring's views and swapchain have been destroyed.
func (r *FrameRing) Released() bool {
	return r.released
}
