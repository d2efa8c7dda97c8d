package swapchain

import "log/slog"

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*manager)

// WithRetireOldSwapchain sets whether Recreate hands the old swapchain to the driver as the
// retired predecessor of the new one, which lets the driver reuse its resources. When disabled,
// the old swapchain is destroyed before the new one is created.
//
// Parameters:
//   - enabled: true to pass the old swapchain along (default true)
//
// Returns:
//   - ManagerBuilderOption: a function that sets the retire behavior
func WithRetireOldSwapchain(enabled bool) ManagerBuilderOption {
	return func(m *manager) {
		m.retireOld = enabled
	}
}

// WithLogger sets the logger used for frame ring lifecycle reporting.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ManagerBuilderOption: a function that sets the logger
func WithLogger(l *slog.Logger) ManagerBuilderOption {
	return func(m *manager) {
		m.logger = l
	}
}
