package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/engine/renderer"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-present/engine/window"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, window.DefaultTitle, cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, renderer.BackendTypeVulkan, cfg.Backend())
	assert.Equal(t, "mailbox", cfg.Renderer.PresentMode)
	assert.Equal(t, "fifo", cfg.Renderer.FallbackPresentMode)
	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation"}, cfg.Renderer.ValidationLayers)
	assert.Equal(t, shader.DefaultEntryPoint, cfg.Shaders.VertexEntry)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.True(t, cfg.Renderer.DynamicViewport)
}

func TestDefaultPipelineUsesDynamicViewport(t *testing.T) {
	p := pipeline.NewPipeline(Default().PipelineOptions()...)
	assert.True(t, p.DynamicViewport())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
title = "triangle"
width = 1024

[renderer]
backend = "webgpu"
present_mode = "immediate"
dynamic_viewport = false
profile = true

[log]
level = "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, "triangle", cfg.Window.Title)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height, "keys left out keep their defaults")
	assert.Equal(t, renderer.BackendTypeWebGPU, cfg.Backend())
	assert.Equal(t, "fifo", cfg.Renderer.FallbackPresentMode)
	assert.False(t, cfg.Renderer.DynamicViewport)
	assert.True(t, cfg.Renderer.Profile)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Len(t, cfg.RendererOptions(), 2, "the engine supplies the profiler")
	assert.Len(t, cfg.PipelineOptions(), 1)
	assert.Len(t, cfg.WindowOptions(), 7)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Window, cfg.Window)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[window]\nfullscreen = true\n"))
	assert.Error(t, err)
}

func TestParseRejectsMalformedToml(t *testing.T) {
	_, err := Parse([]byte("[window\nwidth = 1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }, "must be positive"},
		{"max below min", func(c *Config) { c.Window.MinWidth, c.Window.MaxWidth = 500, 400 }, "max_width"},
		{"negative limit", func(c *Config) { c.Window.MinHeight = -1 }, "must not be negative"},
		{"unknown backend", func(c *Config) { c.Renderer.Backend = "metal" }, "unknown backend"},
		{"unknown present mode", func(c *Config) { c.Renderer.PresentMode = "vsync" }, "present_mode"},
		{"unknown fallback", func(c *Config) { c.Renderer.FallbackPresentMode = "" }, "fallback_present_mode"},
		{"unknown shader format", func(c *Config) { c.Shaders.Format = "glsl" }, "unknown format"},
		{"spirv missing fragment", func(c *Config) { c.Shaders.Fragment = "" }, "both vertex and fragment"},
		{"wgsl split modules", func(c *Config) {
			c.Shaders.Format = ShaderFormatWGSL
			c.Shaders.Vertex, c.Shaders.Fragment = "a.wgsl", "b.wgsl"
		}, "share one module"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Window.Height = 0
	cfg.Renderer.Backend = "metal"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestLoadResolvesShaderPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[shaders]
vertex = "shaders/vert.spv"
fragment = "/abs/frag.spv"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shaders/vert.spv"), cfg.resolve(cfg.Shaders.Vertex))
	assert.Equal(t, "/abs/frag.spv", cfg.resolve(cfg.Shaders.Fragment))

	src, err := cfg.ShaderSource()
	require.NoError(t, err)
	_, err = src.Source(shader.ShaderTypeVertex)
	assert.ErrorContains(t, err, filepath.Join(dir, "shaders/vert.spv"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShaderSourceWGSL(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "triangle.wgsl")
	require.NoError(t, os.WriteFile(src, []byte("@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }"), 0o644))

	cfg := Default()
	cfg.Shaders = ShaderConfig{Format: ShaderFormatWGSL, Vertex: src}
	require.NoError(t, cfg.Validate())

	provider, err := cfg.ShaderSource()
	require.NoError(t, err)
	assert.NotNil(t, provider)

	cfg.Shaders.Vertex = filepath.Join(dir, "missing.wgsl")
	_, err = cfg.ShaderSource()
	assert.Error(t, err)
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.Renderer.ForceFallbackAdapter = true
	pc := cfg.ProviderConfig(nil)

	assert.Equal(t, window.DefaultTitle, pc.ApplicationName)
	assert.True(t, pc.Validation)
	assert.True(t, pc.ForceFallbackAdapter)
	assert.Equal(t, cfg.Renderer.ValidationLayers, pc.ValidationLayers)
}
