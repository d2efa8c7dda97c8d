package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
	"github.com/Carmen-Shannon/oxy-present/engine/profiler"
	"github.com/Carmen-Shannon/oxy-present/engine/render_target"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/surface"
	"github.com/Carmen-Shannon/oxy-present/engine/swapchain"
)

var (
	// ErrRendererDestroyed is returned by every operation after Destroy.
	ErrRendererDestroyed = errors.New("renderer: destroyed")

	// ErrInvalidPipelineSpec is returned when a pipeline spec has no key.
	ErrInvalidPipelineSpec = errors.New("renderer: invalid pipeline spec")
)

// Stage names recorded by the renderer's profiler.
const (
	StageWaitIdle     = "wait_idle"
	StageNegotiate    = "negotiate"
	StageFrameRing    = "frame_ring"
	StageRenderTarget = "render_target"
	StagePipelines    = "pipelines"
	StageRebuild      = "rebuild"
)

// SizeSource reports the current pixel size of the presentation window.
type SizeSource interface {
	Width() int
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu sync.Mutex

	provider device.Provider
	target   device.Target
	size     SizeSource

	negotiator surface.Negotiator
	manager    swapchain.Manager
	profiler   *profiler.Profiler
	logger     *slog.Logger

	config       surface.PresentationConfig
	ring         *swapchain.FrameRing
	desc         *render_target.Description
	framebuffers *render_target.FramebufferSet

	specs         []pipeline.Spec
	pipelineCache map[string]*pipeline.PipelineState

	// Pre-creation config collected from builder options
	presentMode  device.PresentMode
	fallbackMode device.PresentMode
	retireOld    bool

	destroyed bool
}

// Renderer owns one generation of presentation resources for a device/surface pair: the
// negotiated config, the frame ring, the render target and every registered pipeline.
//
// Stages are always built in the same order (negotiate, frame ring, render target, pipelines)
// and a rebuild replaces the generation atomically. If any stage fails the whole generation
// is released, so the renderer never holds a partially built set of resources.
type Renderer interface {
	// Pipeline retrieves the built pipeline registered under key.
	// If the key is unknown, or the renderer is torn down after a failed rebuild, this returns nil.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - *pipeline.PipelineState: the pipeline, or nil
	Pipeline(key string) *pipeline.PipelineState

	// Pipelines retrieves a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]*pipeline.PipelineState: pipeline keys to built pipelines
	Pipelines() map[string]*pipeline.PipelineState

	// RegisterPipelines builds one or more pipelines against the current render target and
	// caches them by key. Specs whose keys are already registered are skipped. The specs are
	// retained so the pipelines can be rebuilt when the render target changes.
	//
	// Parameters:
	//   - specs: the pipeline specs to register
	//
	// Returns:
	//   - error: the joined build errors; specs that failed are not registered
	RegisterPipelines(specs ...pipeline.Spec) error

	// Resize rebuilds the presentation resources for a new window size. A zero or negative
	// size, as reported by a minimized window, is ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: the stage error; use gpuerr.IsSurfaceInvalidated to tell whether the surface
	//     must be re-acquired
	Resize(width, height int) error

	// Rebuild rebuilds the presentation resources at the size currently reported by the
	// SizeSource, for example after the driver reported the swapchain out of date.
	//
	// Returns:
	//   - error: the stage error
	Rebuild() error

	// Config returns the negotiated presentation config of the current generation.
	//
	// Returns:
	//   - surface.PresentationConfig: the config
	Config() surface.PresentationConfig

	// FrameRing returns the current frame ring, or nil when torn down.
	//
	// Returns:
	//   - *swapchain.FrameRing: the ring
	FrameRing() *swapchain.FrameRing

	// RenderTarget returns the current render target description, or nil when torn down.
	//
	// Returns:
	//   - *render_target.Description: the description
	RenderTarget() *render_target.Description

	// Framebuffers returns the current framebuffer set, or nil when torn down.
	//
	// Returns:
	//   - *render_target.FramebufferSet: the framebuffers
	Framebuffers() *render_target.FramebufferSet

	// Generation returns the generation of the current frame ring, or 0 when torn down.
	//
	// Returns:
	//   - uint64: the generation
	Generation() uint64

	// Target returns the device context the renderer builds against.
	//
	// Returns:
	//   - device.Target: the device context
	Target() device.Target

	// Profiler returns the stage profiler, or nil when profiling is disabled.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// Destroy waits for the device to go idle and releases every resource the renderer built,
	// in reverse build order. The provider itself is not destroyed. Calling Destroy more than
	// once does nothing.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer and builds the first generation of presentation resources,
// including every pipeline passed with WithPipelines.
//
// Parameters:
//   - provider: the device provider whose target is rendered to
//   - size: reports the window's pixel size
//   - opts: a variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer
//   - error: the first stage error; nothing is left allocated on error
func NewRenderer(provider device.Provider, size SizeSource, opts ...RendererBuilderOption) (Renderer, error) {
	if provider == nil {
		return nil, errors.New("renderer: nil device provider")
	}
	if size == nil {
		return nil, errors.New("renderer: nil size source")
	}

	r := &renderer{
		provider:      provider,
		target:        provider.Target(),
		size:          size,
		pipelineCache: make(map[string]*pipeline.PipelineState),
		presentMode:   device.PresentModeMailbox,
		fallbackMode:  device.PresentModeFifo,
		retireOld:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = common.ComponentLogger("renderer")
	}
	if r.negotiator == nil {
		r.negotiator = surface.NewNegotiator(
			surface.WithPreferredPresentMode(r.presentMode),
			surface.WithFallbackPresentMode(r.fallbackMode),
			surface.WithLogger(r.logger.With("stage", "surface")),
		)
	}
	if r.manager == nil {
		r.manager = swapchain.NewManager(
			swapchain.WithRetireOldSwapchain(r.retireOld),
			swapchain.WithLogger(r.logger.With("stage", "swapchain")),
		)
	}

	r.logger.Info("building presentation resources", "device", provider.Name())

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.rebuild(size.Width(), size.Height()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *renderer) Pipeline(key string) *pipeline.PipelineState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]*pipeline.PipelineState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelineCache)
}

func (r *renderer) RegisterPipelines(specs ...pipeline.Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrRendererDestroyed
	}

	var errs []error
	for _, spec := range specs {
		if spec.Key == "" {
			errs = append(errs, fmt.Errorf("%w: empty key", ErrInvalidPipelineSpec))
			continue
		}
		if r.hasSpec(spec.Key) {
			r.logger.Debug("pipeline already registered, skipping", "key", spec.Key)
			continue
		}
		// Torn down after a failed rebuild: keep the spec, the next rebuild builds it.
		if r.desc == nil || r.ring == nil {
			r.specs = append(r.specs, spec)
			continue
		}
		state, err := pipeline.BuildSpec(r.target, r.desc, r.ring.Extent(), spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.specs = append(r.specs, spec)
		r.pipelineCache[spec.Key] = state
		r.logger.Debug("pipeline registered", "key", spec.Key)
	}
	return errors.Join(errs...)
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		r.logger.Debug("ignoring resize to empty surface", "width", width, "height", height)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuild(width, height)
}

func (r *renderer) Rebuild() error {
	w, h := r.size.Width(), r.size.Height()
	if w <= 0 || h <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuild(w, h)
}

func (r *renderer) Config() surface.PresentationConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

func (r *renderer) FrameRing() *swapchain.FrameRing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring
}

func (r *renderer) RenderTarget() *render_target.Description {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.desc
}

func (r *renderer) Framebuffers() *render_target.FramebufferSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.framebuffers
}

func (r *renderer) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring == nil {
		return 0
	}
	return r.ring.Generation()
}

func (r *renderer) Target() device.Target {
	return r.target
}

func (r *renderer) Profiler() *profiler.Profiler {
	return r.profiler
}

func (r *renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	if err := r.target.Device.WaitIdle(); err != nil {
		r.logger.Warn("wait idle failed during destroy", "error", err)
	}
	r.teardown()
	r.destroyed = true
	r.profiler.Report()
	r.logger.Info("presentation resources destroyed")
}

// rebuild replaces the current generation. The caller holds r.mu.
func (r *renderer) rebuild(width, height int) error {
	if r.destroyed {
		return ErrRendererDestroyed
	}
	defer r.profiler.Measure(StageRebuild)()

	if err := r.waitIdle(); err != nil {
		return r.fail(err)
	}

	cfg, err := r.negotiate(width, height)
	if err != nil {
		return r.fail(err)
	}

	// The old framebuffers reference the old views, which Recreate releases.
	r.framebuffers.Destroy(r.target)
	r.framebuffers = nil

	if err := r.recreateRing(cfg); err != nil {
		return r.fail(err)
	}
	if err := r.buildRenderTarget(); err != nil {
		return r.fail(err)
	}
	if err := r.buildPipelines(); err != nil {
		return r.fail(err)
	}

	r.config = cfg
	r.logger.Info("presentation resources built",
		"generation", r.ring.Generation(),
		"images", r.ring.Len(),
		"config", cfg,
		"pipelines", len(r.pipelineCache),
	)
	return nil
}

func (r *renderer) waitIdle() error {
	defer r.profiler.Measure(StageWaitIdle)()
	if err := r.target.Device.WaitIdle(); err != nil {
		return fmt.Errorf("renderer: wait idle: %w", err)
	}
	return nil
}

func (r *renderer) negotiate(width, height int) (surface.PresentationConfig, error) {
	defer r.profiler.Measure(StageNegotiate)()
	return r.negotiator.Negotiate(r.target, width, height)
}

func (r *renderer) recreateRing(cfg surface.PresentationConfig) error {
	defer r.profiler.Measure(StageFrameRing)()
	ring, err := r.manager.Recreate(r.target, r.ring, cfg)
	r.ring = ring
	return err
}

// buildRenderTarget rebuilds the framebuffers against the new ring. The render pass, and with it
// every pipeline, is only rebuilt when the ring's format no longer matches it.
func (r *renderer) buildRenderTarget() error {
	defer r.profiler.Measure(StageRenderTarget)()

	if r.desc == nil || r.desc.Released() || r.desc.Format() != r.ring.Format() {
		if r.desc != nil {
			r.logger.Debug("render target format changed", "from", r.desc.Format(), "to", r.ring.Format())
		}
		r.destroyPipelines()
		r.desc.Destroy(r.target)
		desc, err := render_target.BuildDescription(r.target, r.ring.Format())
		r.desc = desc
		if err != nil {
			return err
		}
	}

	set, err := render_target.RebuildForRing(r.target, r.desc, r.ring)
	if err != nil {
		return err
	}
	r.framebuffers = set
	return nil
}

// buildPipelines builds every registered spec that has no pipeline yet and rebuilds every
// pipeline that is stale against the current render target and extent.
func (r *renderer) buildPipelines() error {
	defer r.profiler.Measure(StagePipelines)()

	extent := r.ring.Extent()
	for _, spec := range r.specs {
		state := r.pipelineCache[spec.Key]
		if state != nil && !state.NeedsRebuild(r.desc, extent) {
			continue
		}
		state.Destroy(r.target)
		delete(r.pipelineCache, spec.Key)

		rebuilt, err := pipeline.BuildSpec(r.target, r.desc, extent, spec)
		if err != nil {
			return err
		}
		r.pipelineCache[spec.Key] = rebuilt
		r.logger.Debug("pipeline built", "key", spec.Key, "extent", extent)
	}
	return nil
}

func (r *renderer) destroyPipelines() {
	for key, state := range r.pipelineCache {
		state.Destroy(r.target)
		delete(r.pipelineCache, key)
	}
}

// teardown releases the generation in reverse build order: pipelines, framebuffers, render
// pass, then the frame ring's views and swapchain.
func (r *renderer) teardown() {
	r.destroyPipelines()
	r.framebuffers.Destroy(r.target)
	r.framebuffers = nil
	r.desc.Destroy(r.target)
	r.desc = nil
	r.manager.Destroy(r.target, r.ring)
	r.ring = nil
	r.config = surface.PresentationConfig{}
}

// fail releases whatever the failed rebuild left behind and returns err.
func (r *renderer) fail(err error) error {
	r.teardown()
	r.logger.Error("presentation rebuild failed",
		"error", err,
		"category", gpuerr.CategoryOf(err),
		"surfaceInvalidated", gpuerr.IsSurfaceInvalidated(err),
	)
	return err
}

func (r *renderer) hasSpec(key string) bool {
	for _, s := range r.specs {
		if s.Key == key {
			return true
		}
	}
	return false
}
