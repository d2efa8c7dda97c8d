package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
	"github.com/Carmen-Shannon/oxy-present/engine/render_target"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/shader"
)

var (
	// ErrInvalidShaderBinary is returned when a stage binary fails validation. No shader module
	// has been created when it is returned. It also matches shader.ErrMalformedShaderBinary.
	ErrInvalidShaderBinary = gpuerr.New(gpuerr.MalformedShaderBinary, "pipeline: invalid shader binary")

	// ErrShaderModuleCreationFailed is returned when the driver rejects a shader module.
	ErrShaderModuleCreationFailed = gpuerr.New(gpuerr.ResourceCreationFailure, "pipeline: shader module creation failed")

	// ErrPipelineAssemblyFailed is returned when the driver rejects the pipeline layout or the
	// pipeline itself, or when the render target is unusable.
	ErrPipelineAssemblyFailed = gpuerr.New(gpuerr.ResourceCreationFailure, "pipeline: assembly failed")
)

// Spec is everything needed to build, and later rebuild, one keyed pipeline.
type Spec struct {
	// Key identifies the pipeline in the renderer's cache.
	Key string
	// Binaries are the shader stages.
	Binaries shader.StageBinaries
	// Options configure the fixed-function state.
	Options []PipelineBuilderOption
}

// stageModule is a created shader module and the stage it is bound to.
type stageModule struct {
	stage  shader.ShaderType
	module device.ShaderModuleHandle
}

// PipelineState is a built graphics pipeline together with the modules and layout it owns.
// It is independent of any frame ring; it stays valid as long as the render pass it was
// built against is alive.
type PipelineState struct {
	key        string
	config     Pipeline
	binaries   shader.StageBinaries
	modules    []stageModule
	layout     device.PipelineLayoutHandle
	pipeline   device.PipelineHandle
	renderPass device.RenderPassHandle
	format     device.Format
	extent     common.Extent2D
	released   bool
}

// Key returns the key the pipeline was built under.
func (s *PipelineState) Key() string {
	return s.key
}

// Config returns the fixed-function configuration.
func (s *PipelineState) Config() Pipeline {
	return s.config
}

// Binaries returns the stage binaries the pipeline was built from.
func (s *PipelineState) Binaries() shader.StageBinaries {
	return s.binaries
}

// Handle returns the pipeline handle, or zero once destroyed.
func (s *PipelineState) Handle() device.PipelineHandle {
	return s.pipeline
}

// Layout returns the pipeline layout handle, or zero once destroyed.
func (s *PipelineState) Layout() device.PipelineLayoutHandle {
	return s.layout
}

// Module returns the shader module bound to stage.
func (s *PipelineState) Module(stage shader.ShaderType) (device.ShaderModuleHandle, bool) {
	for _, m := range s.modules {
		if m.stage == stage {
			return m.module, true
		}
	}
	return 0, false
}

// RenderPass returns the render pass the pipeline is bound to.
func (s *PipelineState) RenderPass() device.RenderPassHandle {
	return s.renderPass
}

// Format returns the color attachment format of the render pass the pipeline is bound to.
func (s *PipelineState) Format() device.Format {
	return s.format
}

// Extent returns the extent the pipeline was built at.
func (s *PipelineState) Extent() common.Extent2D {
	return s.extent
}

// Released reports whether the pipeline has been destroyed.
func (s *PipelineState) Released() bool {
	return s.released
}

// NeedsRebuild reports whether the pipeline must be rebuilt to draw into desc at extent. That
// is the case when the render pass changed, or when viewport and scissor are baked in and the
// extent changed.
//
// Parameters:
//   - desc: the current render target description
//   - extent: the current frame ring extent
//
// Returns:
//   - bool: true if the pipeline is stale
func (s *PipelineState) NeedsRebuild(desc *render_target.Description, extent common.Extent2D) bool {
	if s.released || desc == nil || desc.RenderPass() != s.renderPass {
		return true
	}
	return !s.config.DynamicViewport() && extent != s.extent
}

// Destroy releases the pipeline, then its layout, then its shader modules. Calling Destroy
// more than once does nothing.
//
// Parameters:
//   - target: the device context the pipeline was built with
func (s *PipelineState) Destroy(target device.Target) {
	if s == nil || s.released {
		return
	}
	dev := target.Device
	if s.pipeline != 0 {
		dev.DestroyPipeline(s.pipeline)
		s.pipeline = 0
	}
	if s.layout != 0 {
		dev.DestroyPipelineLayout(s.layout)
		s.layout = 0
	}
	for _, m := range s.modules {
		dev.DestroyShaderModule(m.module)
	}
	s.modules = nil
	s.released = true
}

// BuildSpec builds spec against desc at extent, labelling the pipeline with the spec's key.
//
// Parameters:
//   - target: the device context
//   - desc: the render target description to bind to
//   - extent: the frame ring extent
//   - spec: the pipeline spec
//
// Returns:
//   - *PipelineState: the built pipeline
//   - error: see Build
func BuildSpec(target device.Target, desc *render_target.Description, extent common.Extent2D, spec Spec) (*PipelineState, error) {
	opts := make([]PipelineBuilderOption, 0, len(spec.Options)+1)
	opts = append(opts, WithLabel(spec.Key))
	opts = append(opts, spec.Options...)
	state, err := Build(target, desc, extent, spec.Binaries, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", spec.Key, err)
	}
	return state, nil
}

// Build validates binaries, creates one shader module per stage and assembles a complete
// graphics pipeline bound to subpass 0 of desc's render pass.
//
// Parameters:
//   - target: the device context
//   - desc: the render target description to bind to
//   - extent: the extent used for the viewport and scissor
//   - binaries: the vertex and fragment binaries
//   - opts: a variadic list of PipelineBuilderOption functions
//
// Returns:
//   - *PipelineState: the built pipeline
//   - error: ErrInvalidShaderBinary, ErrShaderModuleCreationFailed or ErrPipelineAssemblyFailed;
//     nothing is left allocated on error
func Build(target device.Target, desc *render_target.Description, extent common.Extent2D, binaries shader.StageBinaries, opts ...PipelineBuilderOption) (*PipelineState, error) {
	cfg := newPipeline(opts...)
	log := common.ComponentLogger("pipeline").With("label", cfg.label)

	if err := binaries.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShaderBinary, err)
	}
	if desc == nil || desc.Released() {
		return nil, fmt.Errorf("%w: render pass released", ErrPipelineAssemblyFailed)
	}

	dev := target.Device
	state := &PipelineState{
		key:        cfg.label,
		config:     cfg,
		binaries:   binaries,
		renderPass: desc.RenderPass(),
		format:     desc.Format(),
		extent:     extent,
	}

	stages := make([]device.ShaderStageBinding, 0, len(binaries))
	for _, stage := range binaries.Stages() {
		b := binaries[stage]
		label := b.Label
		if label == "" {
			label = fmt.Sprintf("%s.%s", cfg.label, stage)
		}
		m, err := dev.CreateShaderModule(device.ShaderModuleDescriptor{
			Label: label,
			Stage: stage.DeviceStage(),
			Code:  b.Words(),
		})
		if err != nil {
			state.Destroy(target)
			return nil, fmt.Errorf("%w: %s: %w", ErrShaderModuleCreationFailed, stage, err)
		}
		state.modules = append(state.modules, stageModule{stage: stage, module: m})
		stages = append(stages, device.ShaderStageBinding{
			Stage:      stage.DeviceStage(),
			Module:     m,
			EntryPoint: b.Entry(),
		})
	}

	layout, err := dev.CreatePipelineLayout(device.PipelineLayoutDescriptor{Label: cfg.label})
	if err != nil {
		state.Destroy(target)
		return nil, fmt.Errorf("%w: layout: %w", ErrPipelineAssemblyFailed, err)
	}
	state.layout = layout

	vertexInput, ok := cfg.VertexInput()
	if !ok {
		vertexInput, _ = binaries.VertexInput()
	}

	handle, err := dev.CreateGraphicsPipeline(device.GraphicsPipelineDescriptor{
		Label:       cfg.label,
		Layout:      layout,
		RenderPass:  desc.RenderPass(),
		Subpass:     0,
		Stages:      stages,
		VertexInput: vertexInput,
		Topology:    cfg.topology,
		Viewport: device.Viewport{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
		Scissor:         device.Rect2D{Extent: extent},
		DynamicViewport: cfg.dynamicViewport,
		Rasterization: device.RasterizationState{
			PolygonMode: cfg.polygonMode,
			CullMode:    cfg.cullMode,
			FrontFace:   cfg.frontFace,
			LineWidth:   cfg.lineWidth,
		},
		Samples: device.SampleCount1,
		ColorBlend: device.ColorBlendAttachment{
			BlendEnable: cfg.blendEnabled,
			WriteMask:   cfg.writeMask,
		},
	})
	if err != nil {
		state.Destroy(target)
		return nil, fmt.Errorf("%w: pipeline: %w", ErrPipelineAssemblyFailed, err)
	}
	state.pipeline = handle

	log.Debug("graphics pipeline built",
		"pipeline", uint64(handle),
		"renderPass", uint64(desc.RenderPass()),
		"extent", extent,
		"dynamicViewport", cfg.dynamicViewport,
	)
	return state, nil
}
