package surface

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
)

var (
	// ErrCapabilityQueryFailed is returned when the device could not answer a surface query,
	// typically because the surface was destroyed or the device lost.
	ErrCapabilityQueryFailed = gpuerr.New(gpuerr.QueryFailure, "surface: capability query failed")

	// ErrNoCompatibleFormat is returned when the surface reports no formats at all.
	ErrNoCompatibleFormat = gpuerr.New(gpuerr.NoCompatibleConfig, "surface: no compatible format")
)

// PresentationConfig is the concrete (format, present mode, extent, image count) tuple resolved
// for one device/surface pair. It is an immutable value; the frame ring built from it owns it.
type PresentationConfig struct {
	// Format is the swapchain image format.
	Format device.Format
	// ColorSpace is the color space paired with Format.
	ColorSpace device.ColorSpace
	// PresentMode is the selected present mode.
	PresentMode device.PresentMode
	// Extent is the swapchain image size.
	Extent common.Extent2D
	// ImageCount is the minimum number of images requested from the driver.
	ImageCount uint32
	// Transform is the surface's current transform, passed through to the swapchain unmodified.
	Transform device.SurfaceTransform
}

func (c PresentationConfig) String() string {
	return fmt.Sprintf("%s/%d %s %s x%d", c.Format, c.ColorSpace, c.PresentMode, c.Extent, c.ImageCount)
}

// negotiator is the implementation of the Negotiator interface.
type negotiator struct {
	preferredMode device.PresentMode
	fallbackMode  device.PresentMode
	logger        *slog.Logger
}

// Negotiator resolves a PresentationConfig from what a device reports about a surface.
type Negotiator interface {
	// Negotiate queries capabilities, formats and present modes fresh and resolves a config.
	//
	// Parameters:
	//   - target: the device context whose surface is negotiated
	//   - width: the window's current pixel width
	//   - height: the window's current pixel height
	//
	// Returns:
	//   - PresentationConfig: the resolved config
	//   - error: ErrCapabilityQueryFailed or ErrNoCompatibleFormat
	Negotiate(target device.Target, width, height int) (PresentationConfig, error)

	// PreferredPresentMode returns the present mode the negotiator tries first.
	//
	// Returns:
	//   - device.PresentMode: the preferred mode
	PreferredPresentMode() device.PresentMode

	// FallbackPresentMode returns the present mode used when the preferred one is unsupported.
	//
	// Returns:
	//   - device.PresentMode: the fallback mode
	FallbackPresentMode() device.PresentMode
}

var _ Negotiator = &negotiator{}

// NewNegotiator creates a Negotiator. By default it prefers Mailbox and falls back to Fifo.
//
// Parameters:
//   - opts: a variadic list of NegotiatorBuilderOption functions
//
// Returns:
//   - Negotiator: the configured negotiator
func NewNegotiator(opts ...NegotiatorBuilderOption) Negotiator {
	n := &negotiator{
		preferredMode: device.PresentModeMailbox,
		fallbackMode:  device.PresentModeFifo,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = common.ComponentLogger("surface")
	}
	return n
}

func (n *negotiator) PreferredPresentMode() device.PresentMode {
	return n.preferredMode
}

func (n *negotiator) FallbackPresentMode() device.PresentMode {
	return n.fallbackMode
}

func (n *negotiator) Negotiate(target device.Target, width, height int) (PresentationConfig, error) {
	dev := target.Device

	caps, err := dev.SurfaceCapabilities(target.Surface)
	if err != nil {
		return PresentationConfig{}, fmt.Errorf("%w: capabilities: %w", ErrCapabilityQueryFailed, err)
	}
	formats, err := dev.SurfaceFormats(target.Surface)
	if err != nil {
		return PresentationConfig{}, fmt.Errorf("%w: formats: %w", ErrCapabilityQueryFailed, err)
	}
	modes, err := dev.PresentModes(target.Surface)
	if err != nil {
		return PresentationConfig{}, fmt.Errorf("%w: present modes: %w", ErrCapabilityQueryFailed, err)
	}

	n.logger.Debug("surface capabilities",
		"minImageCount", caps.MinImageCount,
		"maxImageCount", caps.MaxImageCount,
		"currentExtent", caps.CurrentExtent,
		"minExtent", caps.MinImageExtent,
		"maxExtent", caps.MaxImageExtent,
		"formats", len(formats),
		"presentModes", modes,
	)

	format, err := SelectFormat(formats)
	if err != nil {
		return PresentationConfig{}, err
	}

	mode := SelectPresentMode(modes, n.preferredMode, n.fallbackMode)
	if mode != n.preferredMode {
		n.logger.Warn("preferred present mode unsupported, falling back",
			"preferred", n.preferredMode, "selected", mode)
	}

	cfg := PresentationConfig{
		Format:      format.Format,
		ColorSpace:  format.ColorSpace,
		PresentMode: mode,
		Extent:      ResolveExtent(caps, common.NewExtent2D(width, height)),
		ImageCount:  ResolveImageCount(caps),
		Transform:   caps.CurrentTransform,
	}
	n.logger.Debug("negotiated presentation config", "config", cfg)
	return cfg, nil
}

// SelectFormat picks the first format the surface reports. The first entry is not necessarily
// the best one; the policy is kept because it is deterministic.
//
// Parameters:
//   - formats: the supported formats in driver order
//
// Returns:
//   - device.SurfaceFormat: the selected format
//   - error: ErrNoCompatibleFormat if formats is empty
func SelectFormat(formats []device.SurfaceFormat) (device.SurfaceFormat, error) {
	if len(formats) == 0 {
		return device.SurfaceFormat{}, ErrNoCompatibleFormat
	}
	return formats[0], nil
}

// SelectPresentMode returns preferred if the surface supports it, otherwise fallback if supported,
// otherwise Fifo, which every conformant driver must support.
//
// Parameters:
//   - supported: the supported present modes
//   - preferred: the mode to try first
//   - fallback: the mode to try second
//
// Returns:
//   - device.PresentMode: the selected mode
func SelectPresentMode(supported []device.PresentMode, preferred, fallback device.PresentMode) device.PresentMode {
	switch {
	case slices.Contains(supported, preferred):
		return preferred
	case slices.Contains(supported, fallback):
		return fallback
	default:
		return device.PresentModeFifo
	}
}

// ResolveExtent returns the surface's current extent when it is defined. Otherwise the window
// size is clamped per axis into [MinImageExtent, MaxImageExtent].
//
// Parameters:
//   - caps: the surface capabilities
//   - window: the window's current pixel size
//
// Returns:
//   - common.Extent2D: the resolved extent
func ResolveExtent(caps device.SurfaceCapabilities, window common.Extent2D) common.Extent2D {
	if caps.HasDefinedExtent() {
		return caps.CurrentExtent
	}
	return window.Clamp(caps.MinImageExtent, caps.MaxImageExtent)
}

// ResolveImageCount returns min(MinImageCount, MaxImageCount) when the maximum is bounded and
// MinImageCount+1 when it is not, leaving headroom for non-blocking present modes.
//
// Parameters:
//   - caps: the surface capabilities
//
// Returns:
//   - uint32: the image count to request
func ResolveImageCount(caps device.SurfaceCapabilities) uint32 {
	if caps.MaxImageCount > 0 {
		return min(caps.MinImageCount, caps.MaxImageCount)
	}
	return caps.MinImageCount + 1
}
