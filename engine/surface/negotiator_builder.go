package surface

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// NegotiatorBuilderOption is a functional option used to configure a Negotiator during construction.
type NegotiatorBuilderOption func(*negotiator)

// WithPreferredPresentMode sets the present mode the negotiator tries first.
//
// Parameters:
//   - mode: the preferred present mode (default device.PresentModeMailbox)
//
// Returns:
//   - NegotiatorBuilderOption: a function that sets the preferred present mode
func WithPreferredPresentMode(mode device.PresentMode) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.preferredMode = mode
	}
}

// WithFallbackPresentMode sets the present mode used when the preferred one is unsupported.
// When the fallback is unsupported too, Fifo is used.
//
// Parameters:
//   - mode: the fallback present mode (default device.PresentModeFifo)
//
// Returns:
//   - NegotiatorBuilderOption: a function that sets the fallback present mode
func WithFallbackPresentMode(mode device.PresentMode) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.fallbackMode = mode
	}
}

// WithLogger sets the logger used for capability and fallback reporting.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - NegotiatorBuilderOption: a function that sets the logger
func WithLogger(l *slog.Logger) NegotiatorBuilderOption {
	return func(n *negotiator) {
		n.logger = l
	}
}
