// Package webgpu implements device.Provider and device.Device on top of WebGPU (wgpu-native).
//
// It is the portable alternative to the Vulkan backend. WebGPU owns the swapchain, so the
// frame ring maps to a surface configuration and its images are virtual handles.
package webgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// SurfaceSource is the window side of the bootstrap.
type SurfaceSource interface {
	// SurfaceDescriptor returns the platform surface descriptor, or nil if the window is gone.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	// Width returns the framebuffer width in pixels.
	Width() int
	// Height returns the framebuffer height in pixels.
	Height() int
}

// Provider is a device.Provider backed by a WebGPU instance, adapter and device.
type Provider interface {
	device.Provider

	// Instance returns the WebGPU instance.
	//
	// Returns:
	//   - *wgpu.Instance: the instance
	Instance() *wgpu.Instance

	// Adapter returns the selected adapter.
	//
	// Returns:
	//   - *wgpu.Adapter: the adapter
	Adapter() *wgpu.Adapter

	// Queue returns the device queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue
}

// provider is the implementation of the Provider interface.
type provider struct {
	src SurfaceSource

	name                 string
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference
	logger               *slog.Logger

	instance      *wgpu.Instance
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	dev           *wgpuDevice
	surfaceHandle device.SurfaceHandle
	destroyed     bool
}

var _ Provider = &provider{}

// NewProvider boots WebGPU for the window behind src. The calling goroutine is locked to its
// OS thread, as the window's is.
//
// Parameters:
//   - src: the window providing the surface
//   - opts: a variadic list of ProviderBuilderOption functions
//
// Returns:
//   - Provider: the provider
//   - error: device.ErrInitializationFailed or device.ErrNoSuitableDevice; everything created so
//     far is released on error
func NewProvider(src SurfaceSource, opts ...ProviderBuilderOption) (Provider, error) {
	if src == nil {
		return nil, errors.New("webgpu: nil surface source")
	}
	runtime.LockOSThread()

	p := &provider{
		src:             src,
		name:            "webgpu",
		powerPreference: wgpu.PowerPreferenceHighPerformance,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = common.ComponentLogger("webgpu")
	}

	if err := p.init(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *provider) init() error {
	desc := p.src.SurfaceDescriptor()
	if desc == nil {
		return fmt.Errorf("webgpu: window has no surface descriptor: %w", device.ErrInitializationFailed)
	}

	p.instance = wgpu.CreateInstance(nil)
	p.surface = p.instance.CreateSurface(desc)
	if p.surface == nil {
		return fmt.Errorf("webgpu: create surface: %w", device.ErrInitializationFailed)
	}

	a, err := p.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: p.forceFallbackAdapter,
		PowerPreference:      p.powerPreference,
		CompatibleSurface:    p.surface,
	})
	if err != nil {
		return fmt.Errorf("webgpu: request adapter: %w: %w", device.ErrNoSuitableDevice, err)
	}
	p.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: p.name + " device",
	})
	if err != nil {
		return fmt.Errorf("webgpu: request device: %w: %w", device.ErrInitializationFailed, err)
	}
	p.device = d
	p.queue = d.GetQueue()

	p.dev = newDevice(p.name, p.adapter, p.device, p.src, p.logger)
	p.surfaceHandle = p.dev.surfaces.Insert(p.surface)

	caps := p.surface.GetCapabilities(p.adapter)
	if len(caps.Formats) == 0 || len(caps.PresentModes) == 0 {
		return fmt.Errorf("webgpu: adapter cannot present to the surface: %w", device.ErrNoSuitableDevice)
	}
	p.logger.Info("webgpu device ready", "name", p.name, "fallback", p.forceFallbackAdapter, "formats", len(caps.Formats), "presentModes", len(caps.PresentModes))
	return nil
}

func (p *provider) Target() device.Target {
	return device.Target{
		Device:  p.dev,
		Surface: p.surfaceHandle,
	}
}

func (p *provider) Name() string {
	return p.name
}

func (p *provider) Instance() *wgpu.Instance {
	return p.instance
}

func (p *provider) Adapter() *wgpu.Adapter {
	return p.adapter
}

func (p *provider) Queue() *wgpu.Queue {
	return p.queue
}

// Destroy releases leaked resources, then the queue, device, adapter, surface and instance.
// It is safe to call more than once.
func (p *provider) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true

	if p.dev != nil {
		if leaked := p.dev.releaseAll(); leaked > 0 {
			p.logger.Warn("released leaked resources at teardown", "count", leaked)
		}
		p.dev.surfaces.Drain()
	}
	if p.queue != nil {
		p.queue.Release()
	}
	if p.device != nil {
		p.device.Release()
	}
	if p.adapter != nil {
		p.adapter.Release()
	}
	if p.surface != nil {
		p.surface.Release()
	}
	if p.instance != nil {
		p.instance.Release()
	}
	p.logger.Debug("webgpu provider destroyed")
}
