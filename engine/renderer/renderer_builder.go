package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/profiler"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/surface"
	"github.com/Carmen-Shannon/oxy-present/engine/swapchain"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline pre-registers a single pipeline spec. It is built with the first generation.
//
// Parameters:
//   - spec: the pipeline spec
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(spec pipeline.Spec) RendererBuilderOption {
	return WithPipelines(spec)
}

// WithPipelines pre-registers pipeline specs. They are built with the first generation.
// Specs whose keys are already registered are skipped.
//
// Parameters:
//   - specs: the pipeline specs
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipelines option to a renderer
func WithPipelines(specs ...pipeline.Spec) RendererBuilderOption {
	return func(r *renderer) {
		for _, spec := range specs {
			if spec.Key == "" || r.hasSpec(spec.Key) {
				continue
			}
			r.specs = append(r.specs, spec)
		}
	}
}

// WithPresentMode sets the present mode the surface negotiation tries first.
// When not specified, the default is device.PresentModeMailbox.
//
// Parameters:
//   - mode: the preferred present mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode device.PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithFallbackPresentMode sets the present mode used when the preferred one is unsupported.
// When not specified, the default is device.PresentModeFifo.
//
// Parameters:
//   - mode: the fallback present mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the fallback option to a renderer
func WithFallbackPresentMode(mode device.PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.fallbackMode = mode
	}
}

// WithRetireOldSwapchain controls whether a rebuild hands the previous swapchain to the driver
// as the retired predecessor. Enabled by default.
//
// Parameters:
//   - enabled: whether to pass the old swapchain
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithRetireOldSwapchain(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.retireOld = enabled
	}
}

// WithNegotiator replaces the surface negotiator. WithPresentMode and WithFallbackPresentMode
// have no effect when a negotiator is supplied.
//
// Parameters:
//   - n: the negotiator
//
// Returns:
//   - RendererBuilderOption: a function that applies the negotiator option to a renderer
func WithNegotiator(n surface.Negotiator) RendererBuilderOption {
	return func(r *renderer) {
		r.negotiator = n
	}
}

// WithManager replaces the frame ring manager. WithRetireOldSwapchain has no effect when a
// manager is supplied.
//
// Parameters:
//   - m: the manager
//
// Returns:
//   - RendererBuilderOption: a function that applies the manager option to a renderer
func WithManager(m swapchain.Manager) RendererBuilderOption {
	return func(r *renderer) {
		r.manager = m
	}
}

// WithProfiler records per-stage build durations on p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler option to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// WithLogger sets the renderer's logger. Defaults to the engine logger tagged "renderer".
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(l *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = l
	}
}
