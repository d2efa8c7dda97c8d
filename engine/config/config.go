// Package config loads the engine's TOML configuration file and converts it into the option
// values the window, device provider, renderer and shader loader are built from.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/device/vulkan"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-present/engine/window"
)

// Shader source formats.
const (
	ShaderFormatSPIRV = "spirv"
	ShaderFormatWGSL  = "wgsl"
)

// Config is the root of the configuration file.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShaderConfig   `toml:"shaders"`
	Log      LogConfig      `toml:"log"`

	// baseDir resolves relative shader paths. Set by Load to the file's directory.
	baseDir string
}

// WindowConfig is the [window] table.
type WindowConfig struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	MinWidth  int    `toml:"min_width"`
	MinHeight int    `toml:"min_height"`
	MaxWidth  int    `toml:"max_width"`
	MaxHeight int    `toml:"max_height"`
}

// RendererConfig is the [renderer] table.
type RendererConfig struct {
	Backend              string   `toml:"backend"`
	PresentMode          string   `toml:"present_mode"`
	FallbackPresentMode  string   `toml:"fallback_present_mode"`
	Validation           bool     `toml:"validation"`
	ValidationLayers     []string `toml:"validation_layers"`
	ForceFallbackAdapter bool     `toml:"force_fallback_adapter"`
	DynamicViewport      bool     `toml:"dynamic_viewport"`
	Profile              bool     `toml:"profile"`
}

// ShaderConfig is the [shaders] table. For the wgsl format both stages come from one module,
// so fragment may be left empty and the entry points are read from the source.
type ShaderConfig struct {
	Format        string `toml:"format"`
	Vertex        string `toml:"vertex"`
	Fragment      string `toml:"fragment"`
	VertexEntry   string `toml:"vertex_entry"`
	FragmentEntry string `toml:"fragment_entry"`
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used for every key the file leaves out.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     window.DefaultTitle,
			Width:     window.DefaultWidth,
			Height:    window.DefaultHeight,
			MinWidth:  1,
			MinHeight: 1,
		},
		Renderer: RendererConfig{
			Backend:             renderer.BackendTypeVulkan.String(),
			PresentMode:         "mailbox",
			FallbackPresentMode: "fifo",
			Validation:          true,
			ValidationLayers:    []string{vulkan.DefaultValidationLayer},
			DynamicViewport:     true,
		},
		Shaders: ShaderConfig{
			Format:        ShaderFormatSPIRV,
			Vertex:        "shaders/vert.spv",
			Fragment:      "shaders/frag.spv",
			VertexEntry:   shader.DefaultEntryPoint,
			FragmentEntry: shader.DefaultEntryPoint,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the file at path. Relative shader paths are resolved against the
// file's directory.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Config: the parsed configuration
//   - error: an error if the file could not be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: a decode error or the joined validation errors
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("decode error at %d:%d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
//
// Returns:
//   - error: the joined problems, or nil
func (c Config) Validate() error {
	var errs []error
	w := c.Window
	if w.Width <= 0 || w.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: size %dx%d must be positive", w.Width, w.Height))
	}
	if w.MinWidth < 0 || w.MinHeight < 0 || w.MaxWidth < 0 || w.MaxHeight < 0 {
		errs = append(errs, errors.New("window: size limits must not be negative"))
	}
	if w.MaxWidth > 0 && w.MaxWidth < w.MinWidth {
		errs = append(errs, fmt.Errorf("window: max_width %d below min_width %d", w.MaxWidth, w.MinWidth))
	}
	if w.MaxHeight > 0 && w.MaxHeight < w.MinHeight {
		errs = append(errs, fmt.Errorf("window: max_height %d below min_height %d", w.MaxHeight, w.MinHeight))
	}

	r := c.Renderer
	if _, err := renderer.ParseBackendType(r.Backend); err != nil {
		errs = append(errs, fmt.Errorf("renderer: %w", err))
	}
	if _, err := device.ParsePresentMode(r.PresentMode); err != nil {
		errs = append(errs, fmt.Errorf("renderer: present_mode: %w", err))
	}
	if _, err := device.ParsePresentMode(r.FallbackPresentMode); err != nil {
		errs = append(errs, fmt.Errorf("renderer: fallback_present_mode: %w", err))
	}

	s := c.Shaders
	switch s.Format {
	case ShaderFormatSPIRV:
		if s.Vertex == "" || s.Fragment == "" {
			errs = append(errs, errors.New("shaders: spirv needs both vertex and fragment paths"))
		}
	case ShaderFormatWGSL:
		if s.Vertex == "" {
			errs = append(errs, errors.New("shaders: wgsl needs a vertex path"))
		}
		if s.Fragment != "" && s.Fragment != s.Vertex {
			errs = append(errs, errors.New("shaders: wgsl stages must share one module"))
		}
	default:
		errs = append(errs, fmt.Errorf("shaders: unknown format %q", s.Format))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}

// WindowOptions converts the [window] table.
//
// Returns:
//   - []window.WindowBuilderOption: options for window.NewWindow
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithWidth(c.Window.Width),
		window.WithHeight(c.Window.Height),
		window.WithMinWidth(c.Window.MinWidth),
		window.WithMinHeight(c.Window.MinHeight),
		window.WithMaxWidth(c.Window.MaxWidth),
		window.WithMaxHeight(c.Window.MaxHeight),
	}
}

// Backend returns the configured backend. Validate has already rejected unknown names.
//
// Returns:
//   - renderer.BackendType: the backend
func (c Config) Backend() renderer.BackendType {
	b, _ := renderer.ParseBackendType(c.Renderer.Backend)
	return b
}

// ProviderConfig converts the bootstrap settings of the [renderer] table.
//
// Parameters:
//   - logger: the logger handed to the backend, may be nil
//
// Returns:
//   - renderer.ProviderConfig: the provider settings
func (c Config) ProviderConfig(logger *slog.Logger) renderer.ProviderConfig {
	return renderer.ProviderConfig{
		ApplicationName:      c.Window.Title,
		Validation:           c.Renderer.Validation,
		ValidationLayers:     c.Renderer.ValidationLayers,
		ForceFallbackAdapter: c.Renderer.ForceFallbackAdapter,
		Logger:               logger,
	}
}

// RendererOptions converts the present mode settings of the [renderer] table. The profile flag
// is read by the engine, which owns the profiler it hands to the renderer.
//
// Returns:
//   - []renderer.RendererBuilderOption: options for renderer.NewRenderer
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	preferred, _ := device.ParsePresentMode(c.Renderer.PresentMode)
	fallback, _ := device.ParsePresentMode(c.Renderer.FallbackPresentMode)
	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(preferred),
		renderer.WithFallbackPresentMode(fallback),
	}
}

// PipelineOptions converts the fixed-function settings of the [renderer] table.
//
// Returns:
//   - []pipeline.PipelineBuilderOption: options for a pipeline.Spec
func (c Config) PipelineOptions() []pipeline.PipelineBuilderOption {
	return []pipeline.PipelineBuilderOption{
		pipeline.WithDynamicViewport(c.Renderer.DynamicViewport),
	}
}

// LogLevel returns the configured level. Validate has already rejected unknown names.
//
// Returns:
//   - slog.Level: the level
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Log.Level))
	return level
}

// ShaderSource builds the provider for the [shaders] table.
//
// Returns:
//   - shader.SourceProvider: the provider
//   - error: an error if a WGSL module could not be read
func (c Config) ShaderSource() (shader.SourceProvider, error) {
	s := c.Shaders
	if s.Format == ShaderFormatWGSL {
		return shader.NewWGSLFileSource(c.resolve(s.Vertex))
	}
	return shader.NewFileSource(
		map[shader.ShaderType]string{
			shader.ShaderTypeVertex:   c.resolve(s.Vertex),
			shader.ShaderTypeFragment: c.resolve(s.Fragment),
		},
		map[shader.ShaderType]string{
			shader.ShaderTypeVertex:   s.VertexEntry,
			shader.ShaderTypeFragment: s.FragmentEntry,
		},
	), nil
}

func (c Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}
