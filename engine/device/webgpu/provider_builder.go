package webgpu

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// ProviderBuilderOption is a functional option applied to a provider during construction via NewProvider.
type ProviderBuilderOption func(*provider)

// WithName sets the name the provider reports and labels its device with.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithName(name string) ProviderBuilderOption {
	return func(p *provider) {
		p.name = name
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithForceFallbackAdapter(force bool) ProviderBuilderOption {
	return func(p *provider) {
		p.forceFallbackAdapter = force
	}
}

// WithPowerPreference sets the adapter power preference. Defaults to high performance.
//
// Parameters:
//   - pref: the power preference
//
// Returns:
//   - ProviderBuilderOption: a function that applies the option to a provider
func WithPowerPreference(pref wgpu.PowerPreference) ProviderBuilderOption {
	return func(p *provider) {
		p.powerPreference = pref
	}
}

// WithLogger sets the provider's logger. Defaults to the engine logger tagged "webgpu".
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
