package webgpu

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// WebGPU surfaces hide their image ring, so the counts reported to the negotiator are fixed.
const (
	minImageCount = 2
	maxImageCount = 3
)

var textureFormats = []struct {
	format device.Format
	native wgpu.TextureFormat
}{
	{device.FormatB8G8R8A8Unorm, wgpu.TextureFormatBGRA8Unorm},
	{device.FormatB8G8R8A8Srgb, wgpu.TextureFormatBGRA8UnormSrgb},
	{device.FormatR8G8B8A8Unorm, wgpu.TextureFormatRGBA8Unorm},
	{device.FormatR8G8B8A8Srgb, wgpu.TextureFormatRGBA8UnormSrgb},
	{device.FormatA2B10G10R10UnormPack32, wgpu.TextureFormatRGB10A2Unorm},
	{device.FormatR16G16B16A16Sfloat, wgpu.TextureFormatRGBA16Float},
}

func fromTextureFormat(f wgpu.TextureFormat) (device.Format, bool) {
	for _, e := range textureFormats {
		if e.native == f {
			return e.format, true
		}
	}
	return device.FormatUndefined, false
}

func toTextureFormat(f device.Format) (wgpu.TextureFormat, error) {
	for _, e := range textureFormats {
		if e.format == f {
			return e.native, nil
		}
	}
	return 0, fmt.Errorf("webgpu: texture format %s: %w", f, device.ErrUnsupported)
}

func fromPresentMode(m wgpu.PresentMode) (device.PresentMode, bool) {
	switch m {
	case wgpu.PresentModeImmediate:
		return device.PresentModeImmediate, true
	case wgpu.PresentModeMailbox:
		return device.PresentModeMailbox, true
	case wgpu.PresentModeFifo:
		return device.PresentModeFifo, true
	case wgpu.PresentModeFifoRelaxed:
		return device.PresentModeFifoRelaxed, true
	default:
		return 0, false
	}
}

func toPresentMode(m device.PresentMode) (wgpu.PresentMode, error) {
	switch m {
	case device.PresentModeImmediate:
		return wgpu.PresentModeImmediate, nil
	case device.PresentModeMailbox:
		return wgpu.PresentModeMailbox, nil
	case device.PresentModeFifo:
		return wgpu.PresentModeFifo, nil
	case device.PresentModeFifoRelaxed:
		return wgpu.PresentModeFifoRelaxed, nil
	default:
		return 0, fmt.Errorf("webgpu: present mode %s: %w", m, device.ErrUnsupported)
	}
}

// toCapabilities synthesizes a capability snapshot. WebGPU does not report image counts or
// extent bounds, so the current extent is the window's framebuffer size and the maximum is the
// default 2D texture limit.
func toCapabilities(width, height int, caps wgpu.SurfaceCapabilities) device.SurfaceCapabilities {
	maxDim := wgpu.DefaultLimits().MaxTextureDimension2D
	out := device.SurfaceCapabilities{
		MinImageCount:    minImageCount,
		MaxImageCount:    maxImageCount,
		CurrentExtent:    common.NewExtent2D(width, height),
		MinImageExtent:   common.NewExtent2D(1, 1),
		MaxImageExtent:   common.Extent2D{Width: maxDim, Height: maxDim},
		CurrentTransform: device.SurfaceTransformIdentity,
	}
	if len(caps.AlphaModes) > 0 {
		out.SupportedCompositeAlpha = device.CompositeAlphaOpaque
	}
	return out
}

// alphaMode picks opaque compositing when offered, otherwise the surface's first mode.
func alphaMode(modes []wgpu.CompositeAlphaMode) wgpu.CompositeAlphaMode {
	if len(modes) == 0 || slices.Contains(modes, wgpu.CompositeAlphaModeOpaque) {
		return wgpu.CompositeAlphaModeOpaque
	}
	return modes[0]
}

func toVertexFormat(f device.Format) (wgpu.VertexFormat, error) {
	switch f {
	case device.FormatR32Sfloat:
		return wgpu.VertexFormatFloat32, nil
	case device.FormatR32G32Sfloat:
		return wgpu.VertexFormatFloat32x2, nil
	case device.FormatR32G32B32Sfloat:
		return wgpu.VertexFormatFloat32x3, nil
	case device.FormatR32G32B32A32Sfloat:
		return wgpu.VertexFormatFloat32x4, nil
	case device.FormatR32Uint:
		return wgpu.VertexFormatUint32, nil
	case device.FormatR32Sint:
		return wgpu.VertexFormatSint32, nil
	default:
		return 0, fmt.Errorf("webgpu: vertex format %s: %w", f, device.ErrUnsupported)
	}
}

// toVertexLayouts groups attributes under their bindings. Bindings must be dense from zero
// since WebGPU addresses vertex buffers by slot index.
func toVertexLayouts(in device.VertexInputState) ([]wgpu.VertexBufferLayout, error) {
	layouts := make([]wgpu.VertexBufferLayout, len(in.Bindings))
	for _, b := range in.Bindings {
		if int(b.Binding) >= len(layouts) {
			return nil, fmt.Errorf("webgpu: vertex binding %d is not dense: %w", b.Binding, device.ErrUnsupported)
		}
		step := wgpu.VertexStepModeVertex
		if b.InputRate == device.VertexInputRateInstance {
			step = wgpu.VertexStepModeInstance
		}
		layouts[b.Binding].ArrayStride = uint64(b.Stride)
		layouts[b.Binding].StepMode = step
	}
	for _, a := range in.Attributes {
		if int(a.Binding) >= len(layouts) {
			return nil, fmt.Errorf("webgpu: attribute %d reads undeclared binding %d: %w", a.Location, a.Binding, device.ErrUnsupported)
		}
		format, err := toVertexFormat(a.Format)
		if err != nil {
			return nil, err
		}
		layouts[a.Binding].Attributes = append(layouts[a.Binding].Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		})
	}
	return layouts, nil
}

func toTopology(t device.PrimitiveTopology) (wgpu.PrimitiveTopology, error) {
	switch t {
	case device.PrimitiveTopologyPointList:
		return wgpu.PrimitiveTopologyPointList, nil
	case device.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList, nil
	case device.PrimitiveTopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case device.PrimitiveTopologyTriangleList:
		return wgpu.PrimitiveTopologyTriangleList, nil
	case device.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, nil
	default:
		return 0, fmt.Errorf("webgpu: topology %d: %w", t, device.ErrUnsupported)
	}
}

// toPrimitive converts the rasterizer state. WebGPU only fills polygons and cannot cull both faces.
func toPrimitive(topology device.PrimitiveTopology, r device.RasterizationState) (wgpu.PrimitiveState, error) {
	top, err := toTopology(topology)
	if err != nil {
		return wgpu.PrimitiveState{}, err
	}
	if r.PolygonMode != device.PolygonModeFill {
		return wgpu.PrimitiveState{}, fmt.Errorf("webgpu: polygon mode %d: %w", r.PolygonMode, device.ErrUnsupported)
	}
	state := wgpu.PrimitiveState{
		Topology:  top,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
	if r.FrontFace == device.FrontFaceClockwise {
		state.FrontFace = wgpu.FrontFaceCW
	}
	switch r.CullMode {
	case device.CullModeNone:
	case device.CullModeFront:
		state.CullMode = wgpu.CullModeFront
	case device.CullModeBack:
		state.CullMode = wgpu.CullModeBack
	default:
		return wgpu.PrimitiveState{}, fmt.Errorf("webgpu: cull mode %d: %w", r.CullMode, device.ErrUnsupported)
	}
	return state, nil
}

func toWriteMask(c device.ColorComponent) wgpu.ColorWriteMask {
	var m wgpu.ColorWriteMask
	if c&device.ColorComponentR != 0 {
		m |= wgpu.ColorWriteMaskRed
	}
	if c&device.ColorComponentG != 0 {
		m |= wgpu.ColorWriteMaskGreen
	}
	if c&device.ColorComponentB != 0 {
		m |= wgpu.ColorWriteMaskBlue
	}
	if c&device.ColorComponentA != 0 {
		m |= wgpu.ColorWriteMaskAlpha
	}
	return m
}
