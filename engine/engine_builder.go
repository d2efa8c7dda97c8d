package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-present/engine/config"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration the window, provider and renderer are built from.
//
// Parameters:
//   - cfg: the configuration, already validated
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithProfiling enables or disables stage profiling and loop statistics.
//
// Parameters:
//   - enabled: true to enable profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
//
// Parameters:
//   - fps: target ticks per second (defaults to 60 if <= 0)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetTickRate(fps)
	}
}

// WithWindow supplies an existing window instead of creating one from the configuration.
// The engine closes it in Close.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithProvider supplies an existing device provider instead of creating one from the
// configuration. The engine destroys it in Close.
//
// Parameters:
//   - p: the provider
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProvider(p device.Provider) EngineBuilderOption {
	return func(e *engine) {
		e.provider = p
	}
}

// WithPipelines registers pipelines to build with the renderer.
//
// Parameters:
//   - specs: the pipeline specs
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPipelines(specs ...pipeline.Spec) EngineBuilderOption {
	return func(e *engine) {
		e.specs = append(e.specs, specs...)
	}
}

// WithRendererOptions appends renderer options. They are applied after the configuration's.
//
// Parameters:
//   - opts: the renderer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(opts ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOpts = append(e.rendererOpts, opts...)
	}
}

// WithLogger sets the engine's logger. Defaults to the engine logger tagged "engine".
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = l
	}
}
