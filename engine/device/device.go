// Package device defines the narrow interface the presentation stages use to talk to a GPU.
//
// A Device issues resource-creation calls and answers surface queries. A Provider owns the
// bootstrap (instance, adapter, queue family, surface) and hands out a Target, which is the
// read-only context threaded through every stage. Backends live in sub-packages.
package device

// Device is the set of driver calls the presentation stages need. Implementations translate
// to a concrete API. All methods are synchronous; none wait on GPU work except WaitIdle.
type Device interface {
	// Name returns a human-readable adapter name.
	//
	// Returns:
	//   - string: the device name
	Name() string

	// SurfaceCapabilities queries the capabilities of surface on this device.
	//
	// Parameters:
	//   - surface: the surface to query
	//
	// Returns:
	//   - SurfaceCapabilities: a fresh snapshot
	//   - error: an error if the query failed
	SurfaceCapabilities(surface SurfaceHandle) (SurfaceCapabilities, error)

	// SurfaceFormats lists the formats surface supports, in driver order.
	//
	// Parameters:
	//   - surface: the surface to query
	//
	// Returns:
	//   - []SurfaceFormat: supported formats
	//   - error: an error if the query failed
	SurfaceFormats(surface SurfaceHandle) ([]SurfaceFormat, error)

	// PresentModes lists the present modes surface supports, in driver order.
	//
	// Parameters:
	//   - surface: the surface to query
	//
	// Returns:
	//   - []PresentMode: supported present modes
	//   - error: an error if the query failed
	PresentModes(surface SurfaceHandle) ([]PresentMode, error)

	// CreateSwapchain creates a swapchain. If desc.OldSwapchain is set it is retired but not destroyed.
	//
	// Parameters:
	//   - desc: the swapchain description
	//
	// Returns:
	//   - SwapchainHandle: the new swapchain
	//   - error: an error wrapping ErrSurfaceLost or another driver error
	CreateSwapchain(desc SwapchainDescriptor) (SwapchainHandle, error)

	// SwapchainImages returns the images owned by swapchain, in presentation index order.
	// The count may differ from the requested minimum.
	//
	// Parameters:
	//   - swapchain: the swapchain to query
	//
	// Returns:
	//   - []ImageHandle: the images
	//   - error: an error if enumeration failed
	SwapchainImages(swapchain SwapchainHandle) ([]ImageHandle, error)

	// DestroySwapchain destroys swapchain and invalidates its images.
	//
	// Parameters:
	//   - swapchain: the swapchain to destroy
	DestroySwapchain(swapchain SwapchainHandle)

	// CreateImageView creates a view onto a swapchain image.
	//
	// Parameters:
	//   - desc: the view description
	//
	// Returns:
	//   - ImageViewHandle: the new view
	//   - error: an error if the driver rejected the request
	CreateImageView(desc ImageViewDescriptor) (ImageViewHandle, error)

	// DestroyImageView destroys view.
	//
	// Parameters:
	//   - view: the view to destroy
	DestroyImageView(view ImageViewHandle)

	// CreateRenderPass creates a render pass.
	//
	// Parameters:
	//   - desc: the render pass description
	//
	// Returns:
	//   - RenderPassHandle: the new render pass
	//   - error: an error if the driver rejected the request
	CreateRenderPass(desc RenderPassDescriptor) (RenderPassHandle, error)

	// DestroyRenderPass destroys renderPass.
	//
	// Parameters:
	//   - renderPass: the render pass to destroy
	DestroyRenderPass(renderPass RenderPassHandle)

	// CreateFramebuffer creates a framebuffer.
	//
	// Parameters:
	//   - desc: the framebuffer description
	//
	// Returns:
	//   - FramebufferHandle: the new framebuffer
	//   - error: an error if the driver rejected the request
	CreateFramebuffer(desc FramebufferDescriptor) (FramebufferHandle, error)

	// DestroyFramebuffer destroys framebuffer.
	//
	// Parameters:
	//   - framebuffer: the framebuffer to destroy
	DestroyFramebuffer(framebuffer FramebufferHandle)

	// CreateShaderModule creates a shader module from SPIR-V words.
	//
	// Parameters:
	//   - desc: the module description
	//
	// Returns:
	//   - ShaderModuleHandle: the new module
	//   - error: an error if the driver rejected the request
	CreateShaderModule(desc ShaderModuleDescriptor) (ShaderModuleHandle, error)

	// DestroyShaderModule destroys module.
	//
	// Parameters:
	//   - module: the module to destroy
	DestroyShaderModule(module ShaderModuleHandle)

	// CreatePipelineLayout creates a pipeline layout.
	//
	// Parameters:
	//   - desc: the layout description
	//
	// Returns:
	//   - PipelineLayoutHandle: the new layout
	//   - error: an error if the driver rejected the request
	CreatePipelineLayout(desc PipelineLayoutDescriptor) (PipelineLayoutHandle, error)

	// DestroyPipelineLayout destroys layout.
	//
	// Parameters:
	//   - layout: the layout to destroy
	DestroyPipelineLayout(layout PipelineLayoutHandle)

	// CreateGraphicsPipeline assembles a graphics pipeline.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - PipelineHandle: the new pipeline
	//   - error: an error if the driver rejected the request
	CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (PipelineHandle, error)

	// DestroyPipeline destroys pipeline.
	//
	// Parameters:
	//   - pipeline: the pipeline to destroy
	DestroyPipeline(pipeline PipelineHandle)

	// WaitIdle blocks until the device has finished all submitted work. Callers use it before
	// tearing down resources that in-flight commands may reference.
	//
	// Returns:
	//   - error: an error if the device was lost
	WaitIdle() error
}

// Target is the read-only device context threaded through every presentation stage.
// It pairs a Device with the surface being presented to and the queue family that
// supports both graphics and presentation on it.
type Target struct {
	// Device issues the driver calls.
	Device Device
	// Surface is the presentation surface.
	Surface SurfaceHandle
	// QueueFamily is the index of the graphics+present queue family.
	QueueFamily uint32
}

// Provider bootstraps a device for one surface and owns it for its lifetime.
type Provider interface {
	// Target returns the device context for the provider's surface.
	//
	// Returns:
	//   - Target: the device context
	Target() Target

	// Name returns the selected adapter's name.
	//
	// Returns:
	//   - string: the device name
	Name() string

	// Destroy releases the device, surface and instance. Every resource created from Target
	// must be destroyed first.
	Destroy()
}
