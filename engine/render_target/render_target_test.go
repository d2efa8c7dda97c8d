package render_target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
	"github.com/Carmen-Shannon/oxy-present/engine/surface"
	"github.com/Carmen-Shannon/oxy-present/engine/swapchain"
)

func newRing(t *testing.T, dev *devicetest.Device, m swapchain.Manager, extent common.Extent2D) *swapchain.FrameRing {
	t.Helper()
	ring, err := m.Create(dev.Target(), surface.PresentationConfig{
		Format:      device.FormatB8G8R8A8Srgb,
		ColorSpace:  device.ColorSpaceSrgbNonlinear,
		PresentMode: device.PresentModeFifo,
		Extent:      extent,
		ImageCount:  3,
		Transform:   device.SurfaceTransformIdentity,
	})
	require.NoError(t, err)
	return ring
}

func TestBuildDeclaresPresentableColorPass(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})

	desc, set, err := BuildForRing(dev.Target(), ring)
	require.NoError(t, err)

	rp, ok := dev.RenderPass(desc.RenderPass())
	require.True(t, ok)
	require.Len(t, rp.Attachments, 1)
	require.Len(t, rp.Subpasses, 1)

	att := rp.Attachments[0]
	assert.Equal(t, device.FormatB8G8R8A8Srgb, att.Format)
	assert.Equal(t, device.SampleCount1, att.Samples)
	assert.Equal(t, device.LoadOpClear, att.LoadOp)
	assert.Equal(t, device.StoreOpStore, att.StoreOp)
	assert.Equal(t, device.LoadOpDontCare, att.StencilLoadOp)
	assert.Equal(t, device.StoreOpDontCare, att.StencilStoreOp)
	assert.Equal(t, device.ImageLayoutUndefined, att.InitialLayout)
	assert.Equal(t, device.ImageLayoutPresentSrc, att.FinalLayout)

	sub := rp.Subpasses[0]
	assert.Equal(t, device.PipelineBindPointGraphics, sub.BindPoint)
	assert.Equal(t, []device.AttachmentReference{{Attachment: 0, Layout: device.ImageLayoutColorAttachmentOptimal}}, sub.ColorAttachments)

	assert.Equal(t, att, desc.Attachment())
	assert.Equal(t, sub, desc.Subpass())
	assert.Equal(t, ring.Len(), set.Len())
	assert.Equal(t, ring.Generation(), set.Generation())
}

func TestFramebuffersFollowViewOrder(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 640, Height: 480})

	desc, set, err := BuildForRing(dev.Target(), ring)
	require.NoError(t, err)

	views := ring.Views()
	for i, fb := range set.Handles() {
		fd, ok := dev.Framebuffer(fb)
		require.True(t, ok)
		assert.Equal(t, desc.RenderPass(), fd.RenderPass)
		assert.Equal(t, []device.ImageViewHandle{views[i]}, fd.Attachments)
		assert.Equal(t, uint32(640), fd.Width)
		assert.Equal(t, uint32(480), fd.Height)
		assert.Equal(t, uint32(1), fd.Layers)
	}
	assert.Equal(t, common.Extent2D{Width: 640, Height: 480}, set.Extent())
}

func TestBuildFromViewsHasGenerationZero(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})

	_, set, err := Build(dev.Target(), ring.Format(), ring.Views(), ring.Extent())
	require.NoError(t, err)
	assert.Zero(t, set.Generation())
}

func TestBuildFramebufferFailureReleasesEverything(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})
	before := dev.Live()

	dev.FailAfter(devicetest.OpCreateFramebuffer, 1, device.ErrOutOfHostMemory)
	desc, set, err := BuildForRing(dev.Target(), ring)
	require.Error(t, err)
	assert.Nil(t, desc)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrRenderTargetCreationFailed)
	assert.ErrorIs(t, err, gpuerr.ResourceCreationFailure)
	assert.ErrorIs(t, err, device.ErrOutOfHostMemory)

	assert.Equal(t, before, dev.Live())
	assert.Zero(t, dev.BadDestroys())
}

func TestBuildRenderPassFailure(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})

	dev.Fail(devicetest.OpCreateRenderPass, device.ErrOutOfDeviceMemory)
	_, _, err := BuildForRing(dev.Target(), ring)
	assert.ErrorIs(t, err, ErrRenderTargetCreationFailed)
	assert.Zero(t, dev.Calls(devicetest.OpCreateFramebuffer))
}

func TestBuildFramebuffersFailureKeepsDescription(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})

	desc, err := BuildDescription(dev.Target(), ring.Format())
	require.NoError(t, err)

	dev.FailAfter(devicetest.OpCreateFramebuffer, 2, device.ErrOutOfDeviceMemory)
	_, err = BuildFramebuffers(dev.Target(), desc, ring.Views(), ring.Extent())
	require.ErrorIs(t, err, ErrRenderTargetCreationFailed)

	live := dev.Live()
	assert.Equal(t, 1, live.RenderPasses)
	assert.Zero(t, live.Framebuffers)
	assert.False(t, desc.Released())
}

func TestRebuildForRecreatedRing(t *testing.T) {
	dev := devicetest.NewDevice()
	m := swapchain.NewManager()
	target := dev.Target()
	ring := newRing(t, dev, m, common.Extent2D{Width: 800, Height: 600})

	desc, set, err := BuildForRing(target, ring)
	require.NoError(t, err)
	oldHandles := set.Handles()

	dev.ImageCount = 4
	set.Destroy(target)
	next, err := m.Recreate(target, ring, surface.PresentationConfig{
		Format:     ring.Format(),
		ColorSpace: device.ColorSpaceSrgbNonlinear,
		Extent:     common.Extent2D{Width: 1024, Height: 768},
		ImageCount: 3,
	})
	require.NoError(t, err)

	rebuilt, err := RebuildForRing(target, desc, next)
	require.NoError(t, err)

	for _, fb := range oldHandles {
		_, ok := dev.Framebuffer(fb)
		assert.False(t, ok, "framebuffer %d from the previous generation is still live", fb)
	}
	assert.Equal(t, next.Len(), rebuilt.Len())
	assert.Equal(t, 4, rebuilt.Len())
	assert.Equal(t, next.Generation(), rebuilt.Generation())
	assert.Greater(t, rebuilt.Generation(), set.Generation())
	assert.Equal(t, common.Extent2D{Width: 1024, Height: 768}, rebuilt.Extent())
	assert.Zero(t, dev.BadDestroys())
}

func TestRebuildRejectsFormatMismatch(t *testing.T) {
	dev := devicetest.NewDevice()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})

	desc, err := BuildDescription(dev.Target(), device.FormatR8G8B8A8Unorm)
	require.NoError(t, err)

	_, err = RebuildForRing(dev.Target(), desc, ring)
	assert.ErrorIs(t, err, ErrRenderTargetCreationFailed)
	assert.Zero(t, dev.Calls(devicetest.OpCreateFramebuffer))
}

func TestDestroyIsIdempotent(t *testing.T) {
	dev := devicetest.NewDevice()
	target := dev.Target()
	ring := newRing(t, dev, swapchain.NewManager(), common.Extent2D{Width: 800, Height: 600})

	desc, set, err := BuildForRing(target, ring)
	require.NoError(t, err)

	set.Destroy(target)
	set.Destroy(target)
	desc.Destroy(target)
	desc.Destroy(target)

	assert.True(t, set.Released())
	assert.True(t, desc.Released())
	assert.Zero(t, desc.RenderPass())
	assert.Zero(t, set.Len())

	live := dev.Live()
	assert.Zero(t, live.RenderPasses)
	assert.Zero(t, live.Framebuffers)
	assert.Zero(t, dev.BadDestroys())

	_, err = BuildFramebuffers(target, desc, ring.Views(), ring.Extent())
	assert.ErrorIs(t, err, ErrRenderTargetCreationFailed)
}
