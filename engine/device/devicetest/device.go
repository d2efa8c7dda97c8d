// Package devicetest provides an in-memory device.Device for tests.
//
// The fake issues real handles from device.HandleTable arenas, validates that referenced
// handles are live, records every descriptor it receives and can be told to fail any
// operation. Live counts make leak checks one assertion each.
package devicetest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// Op names a Device operation for failure injection and call counting.
type Op string

const (
	OpSurfaceCapabilities    Op = "SurfaceCapabilities"
	OpSurfaceFormats         Op = "SurfaceFormats"
	OpPresentModes           Op = "PresentModes"
	OpCreateSwapchain        Op = "CreateSwapchain"
	OpSwapchainImages        Op = "SwapchainImages"
	OpCreateImageView        Op = "CreateImageView"
	OpCreateRenderPass       Op = "CreateRenderPass"
	OpCreateFramebuffer      Op = "CreateFramebuffer"
	OpCreateShaderModule     Op = "CreateShaderModule"
	OpCreatePipelineLayout   Op = "CreatePipelineLayout"
	OpCreateGraphicsPipeline Op = "CreateGraphicsPipeline"
	OpWaitIdle               Op = "WaitIdle"
)

// failure is a pending injected error. It triggers once skip calls have passed.
type failure struct {
	skip int
	err  error
}

type swapchainRecord struct {
	desc   device.SwapchainDescriptor
	images []device.ImageHandle
}

// Device is a fake device.Device. The zero value is not usable; call NewDevice.
type Device struct {
	mu sync.Mutex

	// Caps is returned by SurfaceCapabilities.
	Caps device.SurfaceCapabilities
	// Formats is returned by SurfaceFormats.
	Formats []device.SurfaceFormat
	// Modes is returned by PresentModes.
	Modes []device.PresentMode
	// ImageCount, when non-zero, overrides the number of images a swapchain reports,
	// emulating drivers that allocate more than requested.
	ImageCount int
	// DeviceName is returned by Name.
	DeviceName string

	failures map[Op]*failure
	calls    map[Op]int

	nextImage   device.ImageHandle
	liveImages  map[device.ImageHandle]device.SwapchainHandle
	onSurface   map[device.SurfaceHandle]int
	swapchains  *device.HandleTable[device.SwapchainHandle, *swapchainRecord]
	views       *device.HandleTable[device.ImageViewHandle, device.ImageViewDescriptor]
	renderPass  *device.HandleTable[device.RenderPassHandle, device.RenderPassDescriptor]
	framebuffer *device.HandleTable[device.FramebufferHandle, device.FramebufferDescriptor]
	modules     *device.HandleTable[device.ShaderModuleHandle, device.ShaderModuleDescriptor]
	layouts     *device.HandleTable[device.PipelineLayoutHandle, device.PipelineLayoutDescriptor]
	pipelines   *device.HandleTable[device.PipelineHandle, device.GraphicsPipelineDescriptor]

	swapchainLog []device.SwapchainDescriptor
	pipelineLog  []device.GraphicsPipelineDescriptor
	badDestroys  int
}

var _ device.Device = &Device{}

// NewDevice returns a fake device reporting a typical desktop surface: a defined 800x600 extent,
// 2..8 images, B8G8R8A8Srgb first and Fifo+Mailbox present modes.
//
// Returns:
//   - *Device: the fake
func NewDevice() *Device {
	return &Device{
		Caps: device.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           8,
			CurrentExtent:           common.Extent2D{Width: 800, Height: 600},
			MinImageExtent:          common.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          common.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform:        device.SurfaceTransformIdentity,
			SupportedCompositeAlpha: device.CompositeAlphaOpaque,
		},
		Formats: []device.SurfaceFormat{
			{Format: device.FormatB8G8R8A8Srgb, ColorSpace: device.ColorSpaceSrgbNonlinear},
			{Format: device.FormatB8G8R8A8Unorm, ColorSpace: device.ColorSpaceSrgbNonlinear},
		},
		Modes:       []device.PresentMode{device.PresentModeFifo, device.PresentModeMailbox},
		DeviceName:  "devicetest",
		failures:    make(map[Op]*failure),
		calls:       make(map[Op]int),
		liveImages:  make(map[device.ImageHandle]device.SwapchainHandle),
		onSurface:   make(map[device.SurfaceHandle]int),
		swapchains:  device.NewHandleTable[device.SwapchainHandle, *swapchainRecord](),
		views:       device.NewHandleTable[device.ImageViewHandle, device.ImageViewDescriptor](),
		renderPass:  device.NewHandleTable[device.RenderPassHandle, device.RenderPassDescriptor](),
		framebuffer: device.NewHandleTable[device.FramebufferHandle, device.FramebufferDescriptor](),
		modules:     device.NewHandleTable[device.ShaderModuleHandle, device.ShaderModuleDescriptor](),
		layouts:     device.NewHandleTable[device.PipelineLayoutHandle, device.PipelineLayoutDescriptor](),
		pipelines:   device.NewHandleTable[device.PipelineHandle, device.GraphicsPipelineDescriptor](),
	}
}

// Target returns a device.Target bound to this fake, surface 1 and queue family 0.
//
// Returns:
//   - device.Target: the target
func (d *Device) Target() device.Target {
	return device.Target{Device: d, Surface: 1, QueueFamily: 0}
}

// Fail makes the next call to op return err.
//
// Parameters:
//   - op: the operation to fail
//   - err: the error to return
func (d *Device) Fail(op Op, err error) {
	d.FailAfter(op, 0, err)
}

// FailAfter lets skip calls to op succeed, then makes the following call return err.
//
// Parameters:
//   - op: the operation to fail
//   - skip: the number of successful calls before the failure
//   - err: the error to return
func (d *Device) FailAfter(op Op, skip int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = &failure{skip: skip, err: err}
}

// Calls returns how many times op has been invoked, failed calls included.
//
// Parameters:
//   - op: the operation
//
// Returns:
//   - int: the call count
func (d *Device) Calls(op Op) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// check counts a call and returns the injected error, if one is due. Callers hold d.mu.
func (d *Device) check(op Op) error {
	d.calls[op]++
	f, ok := d.failures[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(d.failures, op)
	return fmt.Errorf("devicetest: %s: %w", op, f.err)
}

func (d *Device) Name() string {
	return d.DeviceName
}

func (d *Device) SurfaceCapabilities(device.SurfaceHandle) (device.SurfaceCapabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpSurfaceCapabilities); err != nil {
		return device.SurfaceCapabilities{}, err
	}
	return d.Caps, nil
}

func (d *Device) SurfaceFormats(device.SurfaceHandle) ([]device.SurfaceFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpSurfaceFormats); err != nil {
		return nil, err
	}
	return append([]device.SurfaceFormat(nil), d.Formats...), nil
}

func (d *Device) PresentModes(device.SurfaceHandle) ([]device.PresentMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpPresentModes); err != nil {
		return nil, err
	}
	return append([]device.PresentMode(nil), d.Modes...), nil
}

func (d *Device) CreateSwapchain(desc device.SwapchainDescriptor) (device.SwapchainHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateSwapchain); err != nil {
		return 0, err
	}
	if desc.OldSwapchain != 0 {
		if _, ok := d.swapchains.Get(desc.OldSwapchain); !ok {
			return 0, fmt.Errorf("devicetest: old swapchain %d: %w", desc.OldSwapchain, device.ErrUnknownHandle)
		}
	} else if d.onSurface[desc.Surface] > 0 {
		// A surface holds one swapchain unless the new one retires it.
		return 0, fmt.Errorf("devicetest: surface %d already has a swapchain: %w", desc.Surface, device.ErrNativeWindowInUse)
	}
	count := int(desc.MinImageCount)
	if d.ImageCount > 0 {
		count = d.ImageCount
	}
	rec := &swapchainRecord{desc: desc}
	h := d.swapchains.Insert(rec)
	d.onSurface[desc.Surface]++
	for range count {
		d.nextImage++
		rec.images = append(rec.images, d.nextImage)
		d.liveImages[d.nextImage] = h
	}
	d.swapchainLog = append(d.swapchainLog, desc)
	return h, nil
}

func (d *Device) SwapchainImages(swapchain device.SwapchainHandle) ([]device.ImageHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpSwapchainImages); err != nil {
		return nil, err
	}
	rec, ok := d.swapchains.Get(swapchain)
	if !ok {
		return nil, fmt.Errorf("devicetest: swapchain %d: %w", swapchain, device.ErrUnknownHandle)
	}
	return append([]device.ImageHandle(nil), rec.images...), nil
}

func (d *Device) DestroySwapchain(swapchain device.SwapchainHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.swapchains.Remove(swapchain)
	if !ok {
		d.badDestroys++
		return
	}
	d.onSurface[rec.desc.Surface]--
	for _, img := range rec.images {
		delete(d.liveImages, img)
	}
}

func (d *Device) CreateImageView(desc device.ImageViewDescriptor) (device.ImageViewHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateImageView); err != nil {
		return 0, err
	}
	if _, ok := d.liveImages[desc.Image]; !ok {
		return 0, fmt.Errorf("devicetest: image %d: %w", desc.Image, device.ErrUnknownHandle)
	}
	return d.views.Insert(desc), nil
}

func (d *Device) DestroyImageView(view device.ImageViewHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.views.Remove(view); !ok {
		d.badDestroys++
	}
}

func (d *Device) CreateRenderPass(desc device.RenderPassDescriptor) (device.RenderPassHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateRenderPass); err != nil {
		return 0, err
	}
	return d.renderPass.Insert(desc), nil
}

func (d *Device) DestroyRenderPass(renderPass device.RenderPassHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.renderPass.Remove(renderPass); !ok {
		d.badDestroys++
	}
}

func (d *Device) CreateFramebuffer(desc device.FramebufferDescriptor) (device.FramebufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateFramebuffer); err != nil {
		return 0, err
	}
	if _, ok := d.renderPass.Get(desc.RenderPass); !ok {
		return 0, fmt.Errorf("devicetest: render pass %d: %w", desc.RenderPass, device.ErrUnknownHandle)
	}
	for _, v := range desc.Attachments {
		if _, ok := d.views.Get(v); !ok {
			return 0, fmt.Errorf("devicetest: image view %d: %w", v, device.ErrUnknownHandle)
		}
	}
	return d.framebuffer.Insert(desc), nil
}

func (d *Device) DestroyFramebuffer(framebuffer device.FramebufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.framebuffer.Remove(framebuffer); !ok {
		d.badDestroys++
	}
}

func (d *Device) CreateShaderModule(desc device.ShaderModuleDescriptor) (device.ShaderModuleHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateShaderModule); err != nil {
		return 0, err
	}
	return d.modules.Insert(desc), nil
}

func (d *Device) DestroyShaderModule(module device.ShaderModuleHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.modules.Remove(module); !ok {
		d.badDestroys++
	}
}

func (d *Device) CreatePipelineLayout(desc device.PipelineLayoutDescriptor) (device.PipelineLayoutHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreatePipelineLayout); err != nil {
		return 0, err
	}
	return d.layouts.Insert(desc), nil
}

func (d *Device) DestroyPipelineLayout(layout device.PipelineLayoutHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layouts.Remove(layout); !ok {
		d.badDestroys++
	}
}

func (d *Device) CreateGraphicsPipeline(desc device.GraphicsPipelineDescriptor) (device.PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateGraphicsPipeline); err != nil {
		return 0, err
	}
	if _, ok := d.renderPass.Get(desc.RenderPass); !ok {
		return 0, fmt.Errorf("devicetest: render pass %d: %w", desc.RenderPass, device.ErrUnknownHandle)
	}
	if _, ok := d.layouts.Get(desc.Layout); !ok {
		return 0, fmt.Errorf("devicetest: pipeline layout %d: %w", desc.Layout, device.ErrUnknownHandle)
	}
	for _, s := range desc.Stages {
		if _, ok := d.modules.Get(s.Module); !ok {
			return 0, fmt.Errorf("devicetest: shader module %d: %w", s.Module, device.ErrUnknownHandle)
		}
	}
	d.pipelineLog = append(d.pipelineLog, desc)
	return d.pipelines.Insert(desc), nil
}

func (d *Device) DestroyPipeline(pipeline device.PipelineHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines.Remove(pipeline); !ok {
		d.badDestroys++
	}
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.check(OpWaitIdle)
}
