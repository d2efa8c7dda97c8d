// Package gpuerr defines the error categories shared by every presentation stage.
//
// Each stage declares its own sentinel errors with New, bound to one Category. A stage error
// then matches, through errors.Is, its own sentinel, its Category and whatever driver error
// caused it:
//
//	err := fmt.Errorf("%w: %w", swapchain.ErrSurfaceLost, cause)
//	errors.Is(err, swapchain.ErrSurfaceLost)      // true
//	errors.Is(err, gpuerr.SurfaceInvalidated)     // true
//	errors.Is(err, device.ErrSurfaceLost)         // true when cause wraps it
package gpuerr

import "errors"

// Category classifies a failure by the recovery it calls for.
type Category int

const (
	// QueryFailure means a capability, format or present mode enumeration failed.
	QueryFailure Category = iota + 1
	// NoCompatibleConfig means the device offered no usable format, extent or image count.
	NoCompatibleConfig
	// ResourceCreationFailure means the driver rejected a create call.
	ResourceCreationFailure
	// SurfaceInvalidated means the surface was lost or the window destroyed. The surface must be
	// re-acquired upstream; retrying locally will not help.
	SurfaceInvalidated
	// MalformedShaderBinary means a shader blob failed validation before reaching the driver.
	MalformedShaderBinary
)

func (c Category) Error() string {
	switch c {
	case QueryFailure:
		return "query failure"
	case NoCompatibleConfig:
		return "no compatible configuration"
	case ResourceCreationFailure:
		return "resource creation failure"
	case SurfaceInvalidated:
		return "surface invalidated"
	case MalformedShaderBinary:
		return "malformed shader binary"
	default:
		return "unknown gpu error"
	}
}

// sentinel is a stage-specific error bound to a Category.
type sentinel struct {
	msg      string
	category Category
}

func (s *sentinel) Error() string {
	return s.msg
}

// Is lets errors.Is match the sentinel's category as well as the sentinel itself.
func (s *sentinel) Is(target error) bool {
	c, ok := target.(Category)
	return ok && c == s.category
}

// New returns a sentinel error that also matches category under errors.Is.
//
// Parameters:
//   - category: the category the sentinel belongs to
//   - msg: the error text
//
// Returns:
//   - error: the sentinel
func New(category Category, msg string) error {
	return &sentinel{msg: msg, category: category}
}

// CategoryOf returns the first Category found in err's chain, or 0 when there is none.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - Category: the category, or 0
func CategoryOf(err error) Category {
	if err == nil {
		return 0
	}
	for _, c := range []Category{SurfaceInvalidated, MalformedShaderBinary, NoCompatibleConfig, QueryFailure, ResourceCreationFailure} {
		if errors.Is(err, c) {
			return c
		}
	}
	return 0
}

// IsSurfaceInvalidated reports whether err requires the surface to be re-acquired.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - bool: true if err carries the SurfaceInvalidated category
func IsSurfaceInvalidated(err error) bool {
	return errors.Is(err, SurfaceInvalidated)
}
