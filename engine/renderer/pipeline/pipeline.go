package pipeline

import (
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the fixed-function configuration a graphics pipeline is assembled with.
type pipeline struct {
	// label names the pipeline and its layout in logs and driver debug output
	label string

	// vertexInput overrides the layout reflected from the vertex binary when set
	vertexInput *device.VertexInputState

	// The following properties are toggled with the builder options.

	dynamicViewport bool
	blendEnabled    bool
	polygonMode     device.PolygonMode
	cullMode        device.CullMode
	topology        device.PrimitiveTopology
	frontFace       device.FrontFace
	writeMask       device.ColorComponent
	lineWidth       float32
}

// Pipeline describes how a graphics pipeline is assembled: the fixed-function state that is
// not carried by the shader binaries or the render target.
type Pipeline interface {
	// Label returns the label used for the pipeline and its layout.
	//
	// Returns:
	//   - string: the label
	Label() string

	// VertexInput returns the explicit vertex input layout, if one was configured.
	//
	// Returns:
	//   - device.VertexInputState: the configured layout
	//   - bool: false when the layout is taken from the vertex binary instead
	VertexInput() (device.VertexInputState, bool)

	// DynamicViewport reports whether viewport and scissor are dynamic state. Dynamic pipelines
	// survive a frame ring resize; static ones are bound to the extent they were built at.
	//
	// Returns:
	//   - bool: true if viewport and scissor are dynamic
	DynamicViewport() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// PolygonMode returns the polygon rasterization mode.
	//
	// Returns:
	//   - device.PolygonMode: the polygon mode
	PolygonMode() device.PolygonMode

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - device.CullMode: the cull mode for this pipeline (e.g., device.CullModeNone, device.CullModeBack)
	CullMode() device.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - device.PrimitiveTopology: the primitive topology for this pipeline
	Topology() device.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - device.FrontFace: the winding order considered front facing
	FrontFace() device.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - device.ColorComponent: the channels written
	WriteMask() device.ColorComponent

	// LineWidth returns the rasterized line width.
	//
	// Returns:
	//   - float32: the line width
	LineWidth() float32
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline configuration with all specified options applied. Defaults
// are a triangle list with fill mode, back-face culling, clockwise front faces, no blending,
// an RGBA write mask and dynamic viewport/scissor.
//
// Parameters:
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the configuration
func NewPipeline(opts ...PipelineBuilderOption) Pipeline {
	return newPipeline(opts...)
}

func newPipeline(opts ...PipelineBuilderOption) *pipeline {
	p := &pipeline{
		label:           "pipeline",
		dynamicViewport: true,
		blendEnabled:    false,
		polygonMode:     device.PolygonModeFill,
		cullMode:        device.CullModeBack,
		topology:        device.PrimitiveTopologyTriangleList,
		frontFace:       device.FrontFaceClockwise,
		writeMask:       device.ColorComponentAll,
		lineWidth:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) VertexInput() (device.VertexInputState, bool) {
	if p.vertexInput == nil {
		return device.VertexInputState{}, false
	}
	return *p.vertexInput, true
}

func (p *pipeline) DynamicViewport() bool {
	return p.dynamicViewport
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) PolygonMode() device.PolygonMode {
	return p.polygonMode
}

func (p *pipeline) CullMode() device.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() device.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() device.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() device.ColorComponent {
	return p.writeMask
}

func (p *pipeline) LineWidth() float32 {
	return p.lineWidth
}
