package renderer

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/device/vulkan"
	"github.com/Carmen-Shannon/oxy-present/engine/device/webgpu"
	"github.com/Carmen-Shannon/oxy-present/engine/window"
)

// BackendType identifies the GPU API a device provider is built on.
type BackendType int

const (
	// BackendTypeVulkan selects the Vulkan backend. This is the default.
	BackendTypeVulkan BackendType = iota

	// BackendTypeWebGPU selects the WebGPU (wgpu-native) backend.
	BackendTypeWebGPU
)

func (b BackendType) String() string {
	switch b {
	case BackendTypeVulkan:
		return "vulkan"
	case BackendTypeWebGPU:
		return "webgpu"
	default:
		return fmt.Sprintf("BackendType(%d)", int(b))
	}
}

// ParseBackendType converts "vulkan" or "webgpu" to a BackendType.
//
// Parameters:
//   - name: the backend name
//
// Returns:
//   - BackendType: the parsed backend
//   - error: an error if the name is not recognized
func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "vulkan":
		return BackendTypeVulkan, nil
	case "webgpu":
		return BackendTypeWebGPU, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", name)
	}
}

// ProviderConfig carries the bootstrap settings shared by the backends. Fields a backend has no
// use for are ignored.
type ProviderConfig struct {
	// ApplicationName is reported to the driver (Vulkan) or used as the device label (WebGPU).
	ApplicationName string
	// Validation enables the Vulkan validation layers.
	Validation bool
	// ValidationLayers overrides the requested validation layers.
	ValidationLayers []string
	// ForceFallbackAdapter requests the WebGPU software adapter.
	ForceFallbackAdapter bool
	// Logger overrides the backend's logger.
	Logger *slog.Logger
}

// NewProvider bootstraps a device for win on the selected backend.
//
// Parameters:
//   - backend: the GPU API to use
//   - win: the window to present to
//   - cfg: the bootstrap settings
//
// Returns:
//   - device.Provider: the provider, owning instance, device and surface
//   - error: an error if the backend is unknown or could not be initialized
func NewProvider(backend BackendType, win window.Window, cfg ProviderConfig) (device.Provider, error) {
	if win == nil {
		return nil, fmt.Errorf("renderer: nil window")
	}
	switch backend {
	case BackendTypeVulkan:
		opts := []vulkan.ProviderBuilderOption{vulkan.WithValidation(cfg.Validation)}
		if cfg.ApplicationName != "" {
			opts = append(opts, vulkan.WithApplicationName(cfg.ApplicationName))
		}
		if len(cfg.ValidationLayers) > 0 {
			opts = append(opts, vulkan.WithValidationLayers(cfg.ValidationLayers...))
		}
		if cfg.Logger != nil {
			opts = append(opts, vulkan.WithLogger(cfg.Logger))
		}
		return vulkan.NewProvider(win, opts...)
	case BackendTypeWebGPU:
		opts := []webgpu.ProviderBuilderOption{webgpu.WithForceFallbackAdapter(cfg.ForceFallbackAdapter)}
		if cfg.ApplicationName != "" {
			opts = append(opts, webgpu.WithName(cfg.ApplicationName))
		}
		if cfg.Logger != nil {
			opts = append(opts, webgpu.WithLogger(cfg.Logger))
		}
		return webgpu.NewProvider(win, opts...)
	default:
		return nil, fmt.Errorf("renderer: %w: backend %s", device.ErrUnsupported, backend)
	}
}
