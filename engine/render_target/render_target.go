// Package render_target builds the render pass that describes how a frame is drawn onto a
// presentable image, and the framebuffers that bind that pass to a frame ring's views.
package render_target

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
	"github.com/Carmen-Shannon/oxy-present/engine/swapchain"
)

// ErrRenderTargetCreationFailed is returned when the driver rejects the render pass or a framebuffer.
var ErrRenderTargetCreationFailed = gpuerr.New(gpuerr.ResourceCreationFailure, "render_target: creation failed")

func logger() *slog.Logger {
	return common.ComponentLogger("render_target")
}

// Description is a render pass together with the attachment and subpass it was declared with.
// It is immutable once built and stays valid across frame ring rebuilds as long as the image
// format does not change.
type Description struct {
	renderPass device.RenderPassHandle
	format     device.Format
	attachment device.AttachmentDescription
	subpass    device.SubpassDescription
	released   bool
}

// RenderPass returns the render pass handle, or zero once destroyed.
func (d *Description) RenderPass() device.RenderPassHandle {
	return d.renderPass
}

// Format returns the color attachment format.
func (d *Description) Format() device.Format {
	return d.format
}

// Attachment returns the declared color attachment.
func (d *Description) Attachment() device.AttachmentDescription {
	return d.attachment
}

// Subpass returns the declared subpass.
func (d *Description) Subpass() device.SubpassDescription {
	return device.SubpassDescription{
		BindPoint:        d.subpass.BindPoint,
		ColorAttachments: append([]device.AttachmentReference(nil), d.subpass.ColorAttachments...),
	}
}

// Released reports whether the render pass has been destroyed.
func (d *Description) Released() bool {
	return d.released
}

// Destroy releases the render pass. Framebuffers built against it must be destroyed first.
// Calling Destroy more than once does nothing.
func (d *Description) Destroy(target device.Target) {
	if d == nil || d.released {
		return
	}
	target.Device.DestroyRenderPass(d.renderPass)
	d.renderPass = 0
	d.released = true
}

// FramebufferSet is one framebuffer per frame ring view, in view order.
type FramebufferSet struct {
	handles    []device.FramebufferHandle
	extent     common.Extent2D
	generation uint64
	released   bool
}

// Len returns the number of framebuffers.
func (s *FramebufferSet) Len() int {
	return len(s.handles)
}

// Handles returns a copy of the framebuffer handles in view order.
func (s *FramebufferSet) Handles() []device.FramebufferHandle {
	return append([]device.FramebufferHandle(nil), s.handles...)
}

// Extent returns the size the framebuffers were built at.
func (s *FramebufferSet) Extent() common.Extent2D {
	return s.extent
}

// Generation returns the frame ring generation the set was built from, or 0 when it was built
// from bare views.
func (s *FramebufferSet) Generation() uint64 {
	return s.generation
}

// Released reports whether the framebuffers have been destroyed.
func (s *FramebufferSet) Released() bool {
	return s.released
}

// Destroy releases every framebuffer. Calling Destroy more than once does nothing.
func (s *FramebufferSet) Destroy(target device.Target) {
	if s == nil || s.released {
		return
	}
	for _, fb := range s.handles {
		target.Device.DestroyFramebuffer(fb)
	}
	s.handles = nil
	s.released = true
}

// ColorAttachment returns the single color attachment every render target declares: cleared on
// load, stored, and handed to the presentation engine at the end of the pass.
//
// Parameters:
//   - format: the frame ring image format
//
// Returns:
//   - device.AttachmentDescription: the attachment
func ColorAttachment(format device.Format) device.AttachmentDescription {
	return device.AttachmentDescription{
		Format:         format,
		Samples:        device.SampleCount1,
		LoadOp:         device.LoadOpClear,
		StoreOp:        device.StoreOpStore,
		StencilLoadOp:  device.LoadOpDontCare,
		StencilStoreOp: device.StoreOpDontCare,
		InitialLayout:  device.ImageLayoutUndefined,
		FinalLayout:    device.ImageLayoutPresentSrc,
	}
}

// Build creates the render pass for format and one framebuffer per view.
//
// Parameters:
//   - target: the device context
//   - format: the image format of the views
//   - views: the frame ring views, in image order
//   - extent: the framebuffer size
//
// Returns:
//   - *Description: the render pass description
//   - *FramebufferSet: the framebuffers, generation 0
//   - error: ErrRenderTargetCreationFailed; nothing is left allocated on error
func Build(target device.Target, format device.Format, views []device.ImageViewHandle, extent common.Extent2D) (*Description, *FramebufferSet, error) {
	desc, err := BuildDescription(target, format)
	if err != nil {
		return nil, nil, err
	}
	set, err := BuildFramebuffers(target, desc, views, extent)
	if err != nil {
		desc.Destroy(target)
		return nil, nil, err
	}
	return desc, set, nil
}

// BuildDescription creates only the render pass for format.
//
// Parameters:
//   - target: the device context
//   - format: the color attachment format
//
// Returns:
//   - *Description: the render pass description
//   - error: ErrRenderTargetCreationFailed
func BuildDescription(target device.Target, format device.Format) (*Description, error) {
	attachment := ColorAttachment(format)
	subpass := device.SubpassDescription{
		BindPoint: device.PipelineBindPointGraphics,
		ColorAttachments: []device.AttachmentReference{
			{Attachment: 0, Layout: device.ImageLayoutColorAttachmentOptimal},
		},
	}

	rp, err := target.Device.CreateRenderPass(device.RenderPassDescriptor{
		Attachments: []device.AttachmentDescription{attachment},
		Subpasses:   []device.SubpassDescription{subpass},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: render pass: %w", ErrRenderTargetCreationFailed, err)
	}
	logger().Debug("render pass created", slog.Uint64("handle", uint64(rp)), slog.String("format", format.String()))

	return &Description{
		renderPass: rp,
		format:     format,
		attachment: attachment,
		subpass:    subpass,
	}, nil
}

// BuildFramebuffers creates one framebuffer per view against an existing description.
//
// Parameters:
//   - target: the device context
//   - desc: the render pass description
//   - views: the views to bind, in image order
//   - extent: the framebuffer size
//
// Returns:
//   - *FramebufferSet: the framebuffers, generation 0
//   - error: ErrRenderTargetCreationFailed; framebuffers created before the failure are released
func BuildFramebuffers(target device.Target, desc *Description, views []device.ImageViewHandle, extent common.Extent2D) (*FramebufferSet, error) {
	if desc == nil || desc.released {
		return nil, fmt.Errorf("%w: render pass released", ErrRenderTargetCreationFailed)
	}
	handles := make([]device.FramebufferHandle, 0, len(views))
	for i, v := range views {
		fb, err := target.Device.CreateFramebuffer(device.FramebufferDescriptor{
			RenderPass:  desc.renderPass,
			Attachments: []device.ImageViewHandle{v},
			Width:       extent.Width,
			Height:      extent.Height,
			Layers:      1,
		})
		if err != nil {
			for _, made := range handles {
				target.Device.DestroyFramebuffer(made)
			}
			return nil, fmt.Errorf("%w: framebuffer %d: %w", ErrRenderTargetCreationFailed, i, err)
		}
		handles = append(handles, fb)
	}
	return &FramebufferSet{handles: handles, extent: extent}, nil
}

// BuildForRing builds a description and framebuffers for every view of ring.
//
// Parameters:
//   - target: the device context
//   - ring: the frame ring
//
// Returns:
//   - *Description: the render pass description
//   - *FramebufferSet: the framebuffers stamped with the ring's generation
//   - error: ErrRenderTargetCreationFailed
func BuildForRing(target device.Target, ring *swapchain.FrameRing) (*Description, *FramebufferSet, error) {
	desc, set, err := Build(target, ring.Format(), ring.Views(), ring.Extent())
	if err != nil {
		return nil, nil, err
	}
	set.generation = ring.Generation()
	return desc, set, nil
}

// RebuildForRing builds a fresh framebuffer set for a recreated ring against an existing
// description. The caller destroys the previous set.
//
// Parameters:
//   - target: the device context
//   - desc: the render pass description, whose format must match the ring's
//   - ring: the recreated frame ring
//
// Returns:
//   - *FramebufferSet: the framebuffers stamped with the ring's generation
//   - error: ErrRenderTargetCreationFailed
func RebuildForRing(target device.Target, desc *Description, ring *swapchain.FrameRing) (*FramebufferSet, error) {
	if desc != nil && desc.format != ring.Format() {
		return nil, fmt.Errorf("%w: render pass format %s does not match ring format %s",
			ErrRenderTargetCreationFailed, desc.format, ring.Format())
	}
	set, err := BuildFramebuffers(target, desc, ring.Views(), ring.Extent())
	if err != nil {
		return nil, err
	}
	set.generation = ring.Generation()
	logger().Debug("framebuffers rebuilt", "generation", set.generation, "count", set.Len(), "extent", set.extent)
	return set, nil
}
