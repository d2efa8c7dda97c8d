package vulkan

import (
	"log/slog"

	vk "github.com/goki/vulkan"
)

// ProviderBuilderOption is a functional option applied to a provider during construction via NewProvider.
type ProviderBuilderOption func(*provider)

// WithApplicationName sets the application name reported to the driver.
//
// Parameters:
//   - name: the application name
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithApplicationName(name string) ProviderBuilderOption {
	return func(p *provider) {
		p.appName = name
	}
}

// WithValidation enables the validation layers and routes their reports to the logger.
// Layers the loader does not know are skipped with a warning.
//
// Parameters:
//   - enabled: whether to request validation
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithValidation(enabled bool) ProviderBuilderOption {
	return func(p *provider) {
		p.validation = enabled
	}
}

// WithValidationLayers replaces the requested validation layers. Defaults to
// VK_LAYER_KHRONOS_validation. Has no effect unless validation is enabled.
//
// Parameters:
//   - layers: the layer names
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithValidationLayers(layers ...string) ProviderBuilderOption {
	return func(p *provider) {
		p.validationLayers = layers
	}
}

// WithDeviceExtensions adds device extensions a physical device must support to be selected.
// VK_KHR_swapchain is always required.
//
// Parameters:
//   - exts: the extension names
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithDeviceExtensions(exts ...string) ProviderBuilderOption {
	return func(p *provider) {
		p.deviceExts = append(p.deviceExts, exts...)
	}
}

// WithRequiredQueueFlags sets the capabilities the selected queue family must have besides
// presentation. Defaults to graphics.
//
// Parameters:
//   - flags: the required queue flags
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithRequiredQueueFlags(flags vk.QueueFlags) ProviderBuilderOption {
	return func(p *provider) {
		p.queueFlags = flags
	}
}

// WithLogger sets the provider's logger. Defaults to the engine logger tagged "vulkan".
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithLogger(l *slog.Logger) ProviderBuilderOption {
	return func(p *provider) {
		p.logger = l
	}
}
