package device

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-present/common"
)

// The enumerations below carry the numeric values of their Vulkan counterparts so that the
// Vulkan backend converts by cast. Other backends translate explicitly.

// Format identifies a texel format.
type Format uint32

const (
	FormatUndefined              Format = 0
	FormatR8G8B8A8Unorm          Format = 37
	FormatR8G8B8A8Srgb           Format = 43
	FormatB8G8R8A8Unorm          Format = 44
	FormatB8G8R8A8Srgb           Format = 50
	FormatA2B10G10R10UnormPack32 Format = 64
	FormatR16G16B16A16Sfloat     Format = 97
	FormatR32Uint                Format = 98
	FormatR32Sint                Format = 99
	FormatR32Sfloat              Format = 100
	FormatR32G32Sfloat           Format = 103
	FormatR32G32B32Sfloat        Format = 106
	FormatR32G32B32A32Sfloat     Format = 109
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "Undefined"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8Unorm"
	case FormatR8G8B8A8Srgb:
		return "R8G8B8A8Srgb"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8Unorm"
	case FormatB8G8R8A8Srgb:
		return "B8G8R8A8Srgb"
	case FormatA2B10G10R10UnormPack32:
		return "A2B10G10R10UnormPack32"
	case FormatR16G16B16A16Sfloat:
		return "R16G16B16A16Sfloat"
	case FormatR32Uint:
		return "R32Uint"
	case FormatR32Sint:
		return "R32Sint"
	case FormatR32Sfloat:
		return "R32Sfloat"
	case FormatR32G32Sfloat:
		return "R32G32Sfloat"
	case FormatR32G32B32Sfloat:
		return "R32G32B32Sfloat"
	case FormatR32G32B32A32Sfloat:
		return "R32G32B32A32Sfloat"
	default:
		return fmt.Sprintf("Format(%d)", uint32(f))
	}
}

// ColorSpace identifies how a surface interprets presented texels.
type ColorSpace uint32

const (
	// ColorSpaceSrgbNonlinear is the sRGB color space with the sRGB transfer function.
	ColorSpaceSrgbNonlinear ColorSpace = 0
)

// SurfaceFormat is a (format, color space) pair a surface supports.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode is the policy governing when a completed image becomes visible.
type PresentMode uint32

const (
	// PresentModeImmediate presents without waiting for vertical blank. May tear.
	PresentModeImmediate PresentMode = 0
	// PresentModeMailbox is triple buffered: the newest image replaces whatever is queued.
	PresentModeMailbox PresentMode = 1
	// PresentModeFifo queues images for vertical blank. Always supported.
	PresentModeFifo PresentMode = 2
	// PresentModeFifoRelaxed is Fifo that tears instead of waiting when an image is late.
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "Immediate"
	case PresentModeMailbox:
		return "Mailbox"
	case PresentModeFifo:
		return "Fifo"
	case PresentModeFifoRelaxed:
		return "FifoRelaxed"
	default:
		return fmt.Sprintf("PresentMode(%d)", uint32(m))
	}
}

// ParsePresentMode converts a case-sensitive lower-case name ("immediate", "mailbox", "fifo",
// "fifo_relaxed") to a PresentMode.
//
// Parameters:
//   - name: the mode name
//
// Returns:
//   - PresentMode: the parsed mode
//   - error: an error if the name is not recognized
func ParsePresentMode(name string) (PresentMode, error) {
	switch name {
	case "immediate":
		return PresentModeImmediate, nil
	case "mailbox":
		return PresentModeMailbox, nil
	case "fifo":
		return PresentModeFifo, nil
	case "fifo_relaxed":
		return PresentModeFifoRelaxed, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", name)
	}
}

// SurfaceTransform is a bit set of surface pre-transforms.
type SurfaceTransform uint32

const (
	// SurfaceTransformIdentity leaves images untransformed.
	SurfaceTransformIdentity SurfaceTransform = 0x1
)

// CompositeAlpha is a bit set of window-system alpha compositing modes.
type CompositeAlpha uint32

const (
	// CompositeAlphaOpaque ignores the alpha channel when compositing.
	CompositeAlphaOpaque CompositeAlpha = 0x1
)

// ImageUsage is a bit set of ways an image may be used.
type ImageUsage uint32

const (
	// ImageUsageTransferDst allows the image to be a copy destination.
	ImageUsageTransferDst ImageUsage = 0x2
	// ImageUsageColorAttachment allows the image to be a color render target.
	ImageUsageColorAttachment ImageUsage = 0x10
)

// SharingMode controls queue family ownership of a resource.
type SharingMode uint32

const (
	// SharingModeExclusive grants ownership to a single queue family.
	SharingModeExclusive SharingMode = 0
)

// ImageViewType is the dimensionality of an image view.
type ImageViewType uint32

const (
	// ImageViewType2D is a two-dimensional view.
	ImageViewType2D ImageViewType = 1
)

// ComponentSwizzle selects the source of one view channel.
type ComponentSwizzle uint32

const (
	// ComponentSwizzleIdentity reads the matching channel.
	ComponentSwizzleIdentity ComponentSwizzle = 0
)

// ComponentMapping is the per-channel swizzle of a view.
type ComponentMapping struct {
	R, G, B, A ComponentSwizzle
}

// ImageAspect is a bit set of image aspects.
type ImageAspect uint32

const (
	// ImageAspectColor selects the color aspect.
	ImageAspectColor ImageAspect = 0x1
)

// SubresourceRange selects mip levels and array layers of an image.
type SubresourceRange struct {
	Aspect         ImageAspect
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// SampleCount is the number of samples per texel.
type SampleCount uint32

const (
	// SampleCount1 disables multisampling.
	SampleCount1 SampleCount = 0x1
)

// LoadOp is what happens to attachment contents at the start of a render pass.
type LoadOp uint32

const (
	LoadOpLoad     LoadOp = 0
	LoadOpClear    LoadOp = 1
	LoadOpDontCare LoadOp = 2
)

// StoreOp is what happens to attachment contents at the end of a render pass.
type StoreOp uint32

const (
	StoreOpStore    StoreOp = 0
	StoreOpDontCare StoreOp = 1
)

// ImageLayout is the memory layout an image is in.
type ImageLayout uint32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

// PipelineBindPoint is the queue class a subpass executes on.
type PipelineBindPoint uint32

const (
	// PipelineBindPointGraphics binds the subpass to graphics work.
	PipelineBindPointGraphics PipelineBindPoint = 0
)

// ShaderStage is a bit set of programmable pipeline stages.
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x1
	ShaderStageFragment ShaderStage = 0x10
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%#x)", uint32(s))
	}
}

// PrimitiveTopology is how vertices are assembled into primitives.
type PrimitiveTopology uint32

const (
	PrimitiveTopologyPointList     PrimitiveTopology = 0
	PrimitiveTopologyLineList      PrimitiveTopology = 1
	PrimitiveTopologyLineStrip     PrimitiveTopology = 2
	PrimitiveTopologyTriangleList  PrimitiveTopology = 3
	PrimitiveTopologyTriangleStrip PrimitiveTopology = 4
)

// PolygonMode is how polygons are rasterized.
type PolygonMode uint32

const (
	PolygonModeFill  PolygonMode = 0
	PolygonModeLine  PolygonMode = 1
	PolygonModePoint PolygonMode = 2
)

// CullMode is a bit set of faces discarded before rasterization.
type CullMode uint32

const (
	CullModeNone  CullMode = 0
	CullModeFront CullMode = 0x1
	CullModeBack  CullMode = 0x2
)

// FrontFace is the winding order considered front facing.
type FrontFace uint32

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

// ColorComponent is a bit set of color channels a pipeline writes.
type ColorComponent uint32

const (
	ColorComponentR   ColorComponent = 0x1
	ColorComponentG   ColorComponent = 0x2
	ColorComponentB   ColorComponent = 0x4
	ColorComponentA   ColorComponent = 0x8
	ColorComponentAll                = ColorComponentR | ColorComponentG | ColorComponentB | ColorComponentA
)

// VertexInputRate is whether a binding advances per vertex or per instance.
type VertexInputRate uint32

const (
	VertexInputRateVertex   VertexInputRate = 0
	VertexInputRateInstance VertexInputRate = 1
)

// UndefinedExtent is the current-extent sentinel a surface reports when its size is
// decided by the swapchain rather than by the window.
const UndefinedExtent = ^uint32(0)

// SurfaceCapabilities is a read-only snapshot of what a surface supports on a device.
// It is queried fresh for every negotiation and never mutated.
type SurfaceCapabilities struct {
	// MinImageCount is the minimum number of swapchain images.
	MinImageCount uint32
	// MaxImageCount is the maximum number of swapchain images, 0 meaning unbounded.
	MaxImageCount uint32
	// CurrentExtent is the surface size, or UndefinedExtent on both axes when undefined.
	CurrentExtent common.Extent2D
	// MinImageExtent is the smallest supported swapchain extent.
	MinImageExtent common.Extent2D
	// MaxImageExtent is the largest supported swapchain extent.
	MaxImageExtent common.Extent2D
	// CurrentTransform is the surface's current pre-transform.
	CurrentTransform SurfaceTransform
	// SupportedCompositeAlpha is the set of supported composite alpha modes.
	SupportedCompositeAlpha CompositeAlpha
}

// HasDefinedExtent reports whether CurrentExtent is a real size rather than the sentinel.
func (c SurfaceCapabilities) HasDefinedExtent() bool {
	return c.CurrentExtent.Width != UndefinedExtent && c.CurrentExtent.Height != UndefinedExtent
}

// SwapchainDescriptor describes a swapchain creation request.
type SwapchainDescriptor struct {
	Surface        SurfaceHandle
	MinImageCount  uint32
	Format         Format
	ColorSpace     ColorSpace
	Extent         common.Extent2D
	ArrayLayers    uint32
	Usage          ImageUsage
	SharingMode    SharingMode
	QueueFamilies  []uint32
	PreTransform   SurfaceTransform
	CompositeAlpha CompositeAlpha
	PresentMode    PresentMode
	Clipped        bool
	OldSwapchain   SwapchainHandle
}

// ImageViewDescriptor describes a view onto a swapchain image.
type ImageViewDescriptor struct {
	Image            ImageHandle
	ViewType         ImageViewType
	Format           Format
	Components       ComponentMapping
	SubresourceRange SubresourceRange
}

// AttachmentDescription declares how one attachment is loaded, stored and transitioned.
type AttachmentDescription struct {
	Format         Format
	Samples        SampleCount
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	InitialLayout  ImageLayout
	FinalLayout    ImageLayout
}

// AttachmentReference points a subpass at an attachment index in a given layout.
type AttachmentReference struct {
	Attachment uint32
	Layout     ImageLayout
}

// SubpassDescription declares one render stage of a render pass.
type SubpassDescription struct {
	BindPoint        PipelineBindPoint
	ColorAttachments []AttachmentReference
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Attachments []AttachmentDescription
	Subpasses   []SubpassDescription
}

// FramebufferDescriptor binds image views to a render pass's attachment slots.
type FramebufferDescriptor struct {
	RenderPass  RenderPassHandle
	Attachments []ImageViewHandle
	Width       uint32
	Height      uint32
	Layers      uint32
}

// ShaderModuleDescriptor describes a shader module built from SPIR-V words.
type ShaderModuleDescriptor struct {
	Label string
	Stage ShaderStage
	Code  []uint32
}

// PipelineLayoutDescriptor describes a pipeline layout. Descriptor sets and push constants
// are not used by the presentation core, so only a label is carried.
type PipelineLayoutDescriptor struct {
	Label string
}

// ShaderStageBinding binds a module's entry point to a pipeline stage.
type ShaderStageBinding struct {
	Stage      ShaderStage
	Module     ShaderModuleHandle
	EntryPoint string
}

// VertexBinding describes one vertex buffer binding.
type VertexBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate VertexInputRate
}

// VertexAttribute describes one vertex attribute read from a binding.
type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   Format
	Offset   uint32
}

// VertexInputState is the vertex input layout of a pipeline.
type VertexInputState struct {
	Bindings   []VertexBinding
	Attributes []VertexAttribute
}

// Viewport is a viewport transform.
type Viewport struct {
	X, Y, Width, Height, MinDepth, MaxDepth float32
}

// Rect2D is an integer rectangle.
type Rect2D struct {
	X, Y   int32
	Extent common.Extent2D
}

// RasterizationState is the rasterizer configuration of a pipeline.
type RasterizationState struct {
	PolygonMode PolygonMode
	CullMode    CullMode
	FrontFace   FrontFace
	LineWidth   float32
}

// ColorBlendAttachment is the blend configuration of the single color attachment.
type ColorBlendAttachment struct {
	BlendEnable bool
	WriteMask   ColorComponent
}

// GraphicsPipelineDescriptor describes a complete graphics pipeline.
type GraphicsPipelineDescriptor struct {
	Label           string
	Layout          PipelineLayoutHandle
	RenderPass      RenderPassHandle
	Subpass         uint32
	Stages          []ShaderStageBinding
	VertexInput     VertexInputState
	Topology        PrimitiveTopology
	Viewport        Viewport
	Scissor         Rect2D
	DynamicViewport bool
	Rasterization   RasterizationState
	Samples         SampleCount
	ColorBlend      ColorBlendAttachment
}
