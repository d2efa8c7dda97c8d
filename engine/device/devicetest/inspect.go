package devicetest

import "github.com/Carmen-Shannon/oxy-present/engine/device"

// Live reports how many objects of each kind are currently alive on the fake.
type Live struct {
	Swapchains      int
	Images          int
	ImageViews      int
	RenderPasses    int
	Framebuffers    int
	ShaderModules   int
	PipelineLayouts int
	Pipelines       int
}

// Total returns the number of live objects that must be destroyed explicitly.
// Images are excluded because they belong to their swapchain.
func (l Live) Total() int {
	return l.Swapchains + l.ImageViews + l.RenderPasses + l.Framebuffers + l.ShaderModules + l.PipelineLayouts + l.Pipelines
}

// Live returns the current live object counts.
func (d *Device) Live() Live {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Live{
		Swapchains:      d.swapchains.Len(),
		Images:          len(d.liveImages),
		ImageViews:      d.views.Len(),
		RenderPasses:    d.renderPass.Len(),
		Framebuffers:    d.framebuffer.Len(),
		ShaderModules:   d.modules.Len(),
		PipelineLayouts: d.layouts.Len(),
		Pipelines:       d.pipelines.Len(),
	}
}

// BadDestroys returns how many destroy calls named a handle that was not live.
// A non-zero value means something was destroyed twice or never created.
func (d *Device) BadDestroys() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.badDestroys
}

// SwapchainRequests returns every swapchain descriptor received, in order.
func (d *Device) SwapchainRequests() []device.SwapchainDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]device.SwapchainDescriptor(nil), d.swapchainLog...)
}

// PipelineRequests returns every graphics pipeline descriptor accepted, in order.
func (d *Device) PipelineRequests() []device.GraphicsPipelineDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]device.GraphicsPipelineDescriptor(nil), d.pipelineLog...)
}

// RenderPass returns the descriptor a live render pass was created with.
func (d *Device) RenderPass(h device.RenderPassHandle) (device.RenderPassDescriptor, bool) {
	return d.renderPass.Get(h)
}

// Framebuffer returns the descriptor a live framebuffer was created with.
func (d *Device) Framebuffer(h device.FramebufferHandle) (device.FramebufferDescriptor, bool) {
	return d.framebuffer.Get(h)
}

// ImageView returns the descriptor a live image view was created with.
func (d *Device) ImageView(h device.ImageViewHandle) (device.ImageViewDescriptor, bool) {
	return d.views.Get(h)
}

// ShaderModule returns the descriptor a live shader module was created with.
func (d *Device) ShaderModule(h device.ShaderModuleHandle) (device.ShaderModuleDescriptor, bool) {
	return d.modules.Get(h)
}

// IsLive reports whether a swapchain handle is still alive.
func (d *Device) IsLive(h device.SwapchainHandle) bool {
	_, ok := d.swapchains.Get(h)
	return ok
}
