package pipeline

import (
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithLabel sets the label used for the pipeline and its layout.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label for this pipeline
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}

// WithVertexInput sets an explicit vertex input layout, overriding whatever was reflected
// from the vertex binary.
//
// Parameters:
//   - state: the vertex bindings and attributes
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex input for this pipeline
func WithVertexInput(state device.VertexInputState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexInput = &state
	}
}

// WithDynamicViewport sets whether viewport and scissor are dynamic state.
//
// Parameters:
//   - enabled: true for dynamic viewport and scissor (default)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the viewport mode for this pipeline
func WithDynamicViewport(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.dynamicViewport = enabled
	}
}

// WithBlendEnabled sets whether blending is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether blending should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend enabled state for this pipeline
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithPolygonMode sets the polygon rasterization mode.
//
// Parameters:
//   - mode: the polygon mode (e.g., device.PolygonModeFill, device.PolygonModeLine)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the polygon mode for this pipeline
func WithPolygonMode(mode device.PolygonMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.polygonMode = mode
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., device.CullModeNone, device.CullModeFront, device.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode device.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., device.PrimitiveTopologyLineList, device.PrimitiveTopologyTriangleList)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology device.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., device.FrontFaceClockwise)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace device.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the channels to write (e.g., device.ColorComponentAll, device.ColorComponentR|device.ColorComponentG)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask device.ColorComponent) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithLineWidth sets the rasterized line width.
//
// Parameters:
//   - width: the line width, 1 unless the device enables wide lines
//
// Returns:
//   - PipelineBuilderOption: a function that sets the line width for this pipeline
func WithLineWidth(width float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.lineWidth = width
	}
}
