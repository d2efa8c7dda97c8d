package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

type fixedSize struct{ w, h int }

func (s fixedSize) Width() int  { return s.w }
func (s fixedSize) Height() int { return s.h }

func newTestDevice() *wgpuDevice {
	return newDevice("test", nil, nil, fixedSize{800, 600}, common.Logger())
}

func TestTextureFormatRoundTrip(t *testing.T) {
	for _, e := range textureFormats {
		native, err := toTextureFormat(e.format)
		require.NoError(t, err)
		back, ok := fromTextureFormat(native)
		require.True(t, ok)
		assert.Equal(t, e.format, back)
	}

	_, err := toTextureFormat(device.FormatR32Uint)
	assert.ErrorIs(t, err, device.ErrUnsupported)
}

func TestPresentModes(t *testing.T) {
	for _, m := range []device.PresentMode{
		device.PresentModeImmediate,
		device.PresentModeMailbox,
		device.PresentModeFifo,
		device.PresentModeFifoRelaxed,
	} {
		native, err := toPresentMode(m)
		require.NoError(t, err)
		back, ok := fromPresentMode(native)
		require.True(t, ok)
		assert.Equal(t, m, back)
	}

	_, err := toPresentMode(device.PresentMode(42))
	assert.ErrorIs(t, err, device.ErrUnsupported)
}

func TestToCapabilities(t *testing.T) {
	caps := toCapabilities(1024, 768, wgpu.SurfaceCapabilities{
		AlphaModes: []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
	})

	assert.Equal(t, uint32(minImageCount), caps.MinImageCount)
	assert.Equal(t, uint32(maxImageCount), caps.MaxImageCount)
	assert.Equal(t, common.NewExtent2D(1024, 768), caps.CurrentExtent)
	assert.True(t, caps.HasDefinedExtent())
	assert.Equal(t, common.NewExtent2D(1, 1), caps.MinImageExtent)
	assert.Equal(t, wgpu.DefaultLimits().MaxTextureDimension2D, caps.MaxImageExtent.Width)
	assert.Equal(t, device.CompositeAlphaOpaque, caps.SupportedCompositeAlpha)

	minimized := toCapabilities(0, 0, wgpu.SurfaceCapabilities{})
	assert.True(t, minimized.CurrentExtent.IsZero())
	assert.Zero(t, minimized.SupportedCompositeAlpha)
}

func TestAlphaMode(t *testing.T) {
	assert.Equal(t, wgpu.CompositeAlphaModeOpaque, alphaMode(nil))
	assert.Equal(t, wgpu.CompositeAlphaModeOpaque, alphaMode([]wgpu.CompositeAlphaMode{
		wgpu.CompositeAlphaModePremultiplied, wgpu.CompositeAlphaModeOpaque,
	}))
	assert.Equal(t, wgpu.CompositeAlphaModePremultiplied, alphaMode([]wgpu.CompositeAlphaMode{
		wgpu.CompositeAlphaModePremultiplied,
	}))
}

func TestToVertexLayouts(t *testing.T) {
	layouts, err := toVertexLayouts(device.VertexInputState{
		Bindings: []device.VertexBinding{{Binding: 0, Stride: 20}},
		Attributes: []device.VertexAttribute{
			{Location: 0, Binding: 0, Format: device.FormatR32G32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: device.FormatR32G32B32Sfloat, Offset: 8},
		},
	})
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(20), layouts[0].ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	require.Len(t, layouts[0].Attributes, 2)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layouts[0].Attributes[1].Format)
	assert.Equal(t, uint64(8), layouts[0].Attributes[1].Offset)
	assert.Equal(t, uint32(1), layouts[0].Attributes[1].ShaderLocation)

	empty, err := toVertexLayouts(device.VertexInputState{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = toVertexLayouts(device.VertexInputState{
		Bindings: []device.VertexBinding{{Binding: 3}},
	})
	assert.ErrorIs(t, err, device.ErrUnsupported)

	_, err = toVertexLayouts(device.VertexInputState{
		Attributes: []device.VertexAttribute{{Location: 0, Binding: 0, Format: device.FormatR32G32Sfloat}},
	})
	assert.ErrorIs(t, err, device.ErrUnsupported)
}

func TestToPrimitive(t *testing.T) {
	state, err := toPrimitive(device.PrimitiveTopologyTriangleList, device.RasterizationState{
		PolygonMode: device.PolygonModeFill,
		CullMode:    device.CullModeBack,
		FrontFace:   device.FrontFaceClockwise,
	})
	require.NoError(t, err)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, state.Topology)
	assert.Equal(t, wgpu.CullModeBack, state.CullMode)
	assert.Equal(t, wgpu.FrontFaceCW, state.FrontFace)

	_, err = toPrimitive(device.PrimitiveTopologyTriangleList, device.RasterizationState{PolygonMode: device.PolygonModeLine})
	assert.ErrorIs(t, err, device.ErrUnsupported)

	_, err = toPrimitive(device.PrimitiveTopologyTriangleList, device.RasterizationState{
		CullMode: device.CullModeFront | device.CullModeBack,
	})
	assert.ErrorIs(t, err, device.ErrUnsupported)
}

func TestToWriteMask(t *testing.T) {
	assert.Equal(t, wgpu.ColorWriteMaskAll, toWriteMask(device.ColorComponentAll))
	assert.Equal(t, wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskAlpha, toWriteMask(device.ColorComponentR|device.ColorComponentA))
	assert.Zero(t, toWriteMask(0))
}

func TestVirtualResources(t *testing.T) {
	d := newTestDevice()
	sc := d.swapchains.Insert(&swapchainEntry{})
	img := d.images.Insert(sc)

	view, err := d.CreateImageView(device.ImageViewDescriptor{Image: img, Format: device.FormatB8G8R8A8Srgb})
	require.NoError(t, err)

	_, err = d.CreateImageView(device.ImageViewDescriptor{Image: img + 100, Format: device.FormatB8G8R8A8Srgb})
	assert.ErrorIs(t, err, device.ErrUnknownHandle)

	rp, err := d.CreateRenderPass(device.RenderPassDescriptor{
		Attachments: []device.AttachmentDescription{{Format: device.FormatB8G8R8A8Srgb}},
		Subpasses:   []device.SubpassDescription{{BindPoint: device.PipelineBindPointGraphics}},
	})
	require.NoError(t, err)
	format, ok := d.renderPasses.Get(rp)
	require.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, format)

	_, err = d.CreateRenderPass(device.RenderPassDescriptor{})
	assert.ErrorIs(t, err, device.ErrUnsupported)

	fb, err := d.CreateFramebuffer(device.FramebufferDescriptor{RenderPass: rp, Attachments: []device.ImageViewHandle{view}})
	require.NoError(t, err)

	_, err = d.CreateFramebuffer(device.FramebufferDescriptor{RenderPass: rp + 100})
	assert.ErrorIs(t, err, device.ErrUnknownHandle)

	d.DestroyFramebuffer(fb)
	d.DestroyRenderPass(rp)
	d.DestroyImageView(view)
	assert.Zero(t, d.framebuffers.Len())
	assert.Zero(t, d.renderPasses.Len())
	assert.Zero(t, d.views.Len())

	d.DestroySwapchain(sc)
	assert.Zero(t, d.swapchains.Len())
}

func TestReleaseAllCountsVirtualLeaks(t *testing.T) {
	d := newTestDevice()
	sc := d.swapchains.Insert(&swapchainEntry{})
	img := d.images.Insert(sc)
	d.views.Insert(img)
	d.renderPasses.Insert(wgpu.TextureFormatBGRA8Unorm)

	assert.Equal(t, 3, d.releaseAll())
	assert.Zero(t, d.images.Len())
	assert.Zero(t, d.releaseAll())
}

func TestUnknownHandles(t *testing.T) {
	d := newTestDevice()

	_, err := d.SurfaceCapabilities(1)
	assert.ErrorIs(t, err, device.ErrUnknownHandle)
	_, err = d.SwapchainImages(1)
	assert.ErrorIs(t, err, device.ErrUnknownHandle)
	_, err = d.CreateGraphicsPipeline(device.GraphicsPipelineDescriptor{Layout: 1})
	assert.ErrorIs(t, err, device.ErrUnknownHandle)
	_, err = d.CreateShaderModule(device.ShaderModuleDescriptor{Label: "empty"})
	assert.ErrorIs(t, err, device.ErrInitializationFailed)
	assert.NoError(t, d.WaitIdle())
}
