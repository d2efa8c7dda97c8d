package device

import "errors"

// Driver-level errors. Backends translate native result codes into these so that the
// presentation stages can react without knowing which API produced them.
var (
	// ErrSurfaceLost reports that the surface is no longer usable and must be re-created.
	ErrSurfaceLost = errors.New("device: surface lost")
	// ErrOutOfDate reports that the surface changed and the swapchain no longer matches it.
	ErrOutOfDate = errors.New("device: swapchain out of date")
	// ErrDeviceLost reports that the logical device was lost.
	ErrDeviceLost = errors.New("device: device lost")
	// ErrOutOfHostMemory reports a host allocation failure.
	ErrOutOfHostMemory = errors.New("device: out of host memory")
	// ErrOutOfDeviceMemory reports a device allocation failure.
	ErrOutOfDeviceMemory = errors.New("device: out of device memory")
	// ErrInitializationFailed reports a failure to initialize an object.
	ErrInitializationFailed = errors.New("device: initialization failed")
	// ErrNativeWindowInUse reports that the window already backs another surface.
	ErrNativeWindowInUse = errors.New("device: native window in use")
	// ErrUnknownHandle reports a handle that is not live in the backend's table.
	ErrUnknownHandle = errors.New("device: unknown handle")
	// ErrNoSuitableDevice reports that no adapter satisfied the selection requirements.
	ErrNoSuitableDevice = errors.New("device: no suitable device")
	// ErrUnsupported reports a request the backend cannot express.
	ErrUnsupported = errors.New("device: unsupported")
	// ErrUnknown wraps result codes with no specific mapping.
	ErrUnknown = errors.New("device: unknown error")
)
