package webgpu

import (
	"fmt"
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// sizeSource reports the framebuffer size WebGPU cannot query from the surface.
type sizeSource interface {
	Width() int
	Height() int
}

type swapchainEntry struct {
	surface device.SurfaceHandle
	images  []device.ImageHandle
}

type framebufferEntry struct {
	renderPass device.RenderPassHandle
	views      []device.ImageViewHandle
}

// wgpuDevice is the WebGPU implementation of device.Device.
//
// A configured surface stands in for the swapchain. Its images, their views, the render pass
// and the framebuffers have no WebGPU object behind them and only exist in the handle tables;
// shader modules, layouts and pipelines are real.
type wgpuDevice struct {
	name    string
	adapter *wgpu.Adapter
	device  *wgpu.Device
	size    sizeSource
	logger  *slog.Logger

	surfaces     *device.HandleTable[device.SurfaceHandle, *wgpu.Surface]
	swapchains   *device.HandleTable[device.SwapchainHandle, *swapchainEntry]
	images       *device.HandleTable[device.ImageHandle, device.SwapchainHandle]
	views        *device.HandleTable[device.ImageViewHandle, device.ImageHandle]
	renderPasses *device.HandleTable[device.RenderPassHandle, wgpu.TextureFormat]
	framebuffers *device.HandleTable[device.FramebufferHandle, framebufferEntry]
	modules      *device.HandleTable[device.ShaderModuleHandle, *wgpu.ShaderModule]
	layouts      *device.HandleTable[device.PipelineLayoutHandle, *wgpu.PipelineLayout]
	pipelines    *device.HandleTable[device.PipelineHandle, *wgpu.RenderPipeline]
}

var _ device.Device = &wgpuDevice{}

func newDevice(name string, adapter *wgpu.Adapter, dev *wgpu.Device, size sizeSource, logger *slog.Logger) *wgpuDevice {
	return &wgpuDevice{
		name:         name,
		adapter:      adapter,
		device:       dev,
		size:         size,
		logger:       logger,
		surfaces:     device.NewHandleTable[device.SurfaceHandle, *wgpu.Surface](),
		swapchains:   device.NewHandleTable[device.SwapchainHandle, *swapchainEntry](),
		images:       device.NewHandleTable[device.ImageHandle, device.SwapchainHandle](),
		views:        device.NewHandleTable[device.ImageViewHandle, device.ImageHandle](),
		renderPasses: device.NewHandleTable[device.RenderPassHandle, wgpu.TextureFormat](),
		framebuffers: device.NewHandleTable[device.FramebufferHandle, framebufferEntry](),
		modules:      device.NewHandleTable[device.ShaderModuleHandle, *wgpu.ShaderModule](),
		layouts:      device.NewHandleTable[device.PipelineLayoutHandle, *wgpu.PipelineLayout](),
		pipelines:    device.NewHandleTable[device.PipelineHandle, *wgpu.RenderPipeline](),
	}
}

func unknown[H ~uint64](kind string, h H) error {
	return fmt.Errorf("webgpu: %s %d: %w", kind, uint64(h), device.ErrUnknownHandle)
}

// driverErr classifies a WebGPU error. The API reports validation failures as plain errors.
func driverErr(op string, err error) error {
	return fmt.Errorf("webgpu: %s: %w: %w", op, device.ErrInitializationFailed, err)
}

func (d *wgpuDevice) Name() string {
	return d.name
}

func (d *wgpuDevice) capabilities(surface device.SurfaceHandle) (wgpu.SurfaceCapabilities, error) {
	s, ok := d.surfaces.Get(surface)
	if !ok {
		return wgpu.SurfaceCapabilities{}, unknown("surface", surface)
	}
	return s.GetCapabilities(d.adapter), nil
}

func (d *wgpuDevice) SurfaceCapabilities(surface device.SurfaceHandle) (device.SurfaceCapabilities, error) {
	caps, err := d.capabilities(surface)
	if err != nil {
		return device.SurfaceCapabilities{}, err
	}
	if len(caps.Formats) == 0 {
		return device.SurfaceCapabilities{}, fmt.Errorf("webgpu: surface reports no formats: %w", device.ErrSurfaceLost)
	}
	return toCapabilities(d.size.Width(), d.size.Height(), caps), nil
}

func (d *wgpuDevice) SurfaceFormats(surface device.SurfaceHandle) ([]device.SurfaceFormat, error) {
	caps, err := d.capabilities(surface)
	if err != nil {
		return nil, err
	}
	formats := make([]device.SurfaceFormat, 0, len(caps.Formats))
	for _, f := range caps.Formats {
		if format, ok := fromTextureFormat(f); ok {
			formats = append(formats, device.SurfaceFormat{Format: format, ColorSpace: device.ColorSpaceSrgbNonlinear})
		}
	}
	return formats, nil
}

func (d *wgpuDevice) PresentModes(surface device.SurfaceHandle) ([]device.PresentMode, error) {
	caps, err := d.capabilities(surface)
	if err != nil {
		return nil, err
	}
	modes := make([]device.PresentMode, 0, len(caps.PresentModes))
	for _, m := range caps.PresentModes {
		if mode, ok := fromPresentMode(m); ok {
			modes = append(modes, mode)
		}
	}
	return modes, nil
}

// CreateSwapchain configures the surface. Reconfiguring replaces whatever configuration the
// retired swapchain held, so the old entry only keeps its handles alive until destroyed.
func (d *wgpuDevice) CreateSwapchain(desc device.SwapchainDescriptor) (device.SwapchainHandle, error) {
	s, ok := d.surfaces.Get(desc.Surface)
	if !ok {
		return 0, unknown("surface", desc.Surface)
	}
	if desc.OldSwapchain != 0 {
		if _, ok := d.swapchains.Get(desc.OldSwapchain); !ok {
			return 0, unknown("swapchain", desc.OldSwapchain)
		}
	}
	format, err := toTextureFormat(desc.Format)
	if err != nil {
		return 0, err
	}
	mode, err := toPresentMode(desc.PresentMode)
	if err != nil {
		return 0, err
	}
	if desc.Extent.IsZero() {
		return 0, fmt.Errorf("webgpu: zero swapchain extent %s: %w", desc.Extent, device.ErrOutOfDate)
	}

	caps := s.GetCapabilities(d.adapter)
	s.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       desc.Extent.Width,
		Height:      desc.Extent.Height,
		PresentMode: mode,
		AlphaMode:   alphaMode(caps.AlphaModes),
	})

	entry := &swapchainEntry{surface: desc.Surface}
	h := d.swapchains.Insert(entry)
	count := common.Clamp(desc.MinImageCount, minImageCount, maxImageCount)
	for range count {
		entry.images = append(entry.images, d.images.Insert(h))
	}
	d.logger.Debug("surface configured", "handle", h, "format", desc.Format, "presentMode", desc.PresentMode, "extent", desc.Extent.String(), "retired", desc.OldSwapchain)
	return h, nil
}

func (d *wgpuDevice) SwapchainImages(swapchain device.SwapchainHandle) ([]device.ImageHandle, error) {
	entry, ok := d.swapchains.Get(swapchain)
	if !ok {
		return nil, unknown("swapchain", swapchain)
	}
	return append([]device.ImageHandle(nil), entry.images...), nil
}

func (d *wgpuDevice) DestroySwapchain(swapchain device.SwapchainHandle) {
	entry, ok := d.swapchains.Remove(swapchain)
	if !ok {
		d.logger.Warn("destroy of unknown swapchain", "handle", swapchain)
		return
	}
	for _, img := range entry.images {
		d.images.Remove(img)
	}
}

func (d *wgpuDevice) CreateImageView(desc device.ImageViewDescriptor) (device.ImageViewHandle, error) {
	if _, ok := d.images.Get(desc.Image); !ok {
		return 0, unknown("image", desc.Image)
	}
	if _, err := toTextureFormat(desc.Format); err != nil {
		return 0, err
	}
	return d.views.Insert(desc.Image), nil
}

func (d *wgpuDevice) DestroyImageView(view device.ImageViewHandle) {
	d.views.Remove(view)
}

// CreateRenderPass records the color format. WebGPU render passes are begun per frame, so
// only single color attachment, single subpass descriptions are accepted.
func (d *wgpuDevice) CreateRenderPass(desc device.RenderPassDescriptor) (device.RenderPassHandle, error) {
	if len(desc.Attachments) != 1 || len(desc.Subpasses) > 1 {
		return 0, fmt.Errorf("webgpu: render pass with %d attachments and %d subpasses: %w",
			len(desc.Attachments), len(desc.Subpasses), device.ErrUnsupported)
	}
	format, err := toTextureFormat(desc.Attachments[0].Format)
	if err != nil {
		return 0, err
	}
	return d.renderPasses.Insert(format), nil
}

func (d *wgpuDevice) DestroyRenderPass(renderPass device.RenderPassHandle) {
	d.renderPasses.Remove(renderPass)
}

func (d *wgpuDevice) CreateFramebuffer(desc device.FramebufferDescriptor) (device.FramebufferHandle, error) {
	if _, ok := d.renderPasses.Get(desc.RenderPass); !ok {
		return 0, unknown("render pass", desc.RenderPass)
	}
	for _, v := range desc.Attachments {
		if _, ok := d.views.Get(v); !ok {
			return 0, unknown("image view", v)
		}
	}
	return d.framebuffers.Insert(framebufferEntry{
		renderPass: desc.RenderPass,
		views:      append([]device.ImageViewHandle(nil), desc.Attachments...),
	}), nil
}

func (d *wgpuDevice) DestroyFramebuffer(framebuffer device.FramebufferHandle) {
	d.framebuffers.Remove(framebuffer)
}

func (d *wgpuDevice) CreateShaderModule(desc device.ShaderModuleDescriptor) (device.ShaderModuleHandle, error) {
	if len(desc.Code) == 0 {
		return 0, fmt.Errorf("webgpu: shader module %q: empty code: %w", desc.Label, device.ErrInitializationFailed)
	}
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		SPIRVDescriptor: &wgpu.ShaderModuleSPIRVDescriptor{
			Code: common.SliceToBytes(desc.Code),
		},
	})
	if err != nil {
		return 0, driverErr("create shader module "+desc.Label, err)
	}
	return d.modules.Insert(m), nil
}

func (d *wgpuDevice) DestroyShaderModule(module device.ShaderModuleHandle) {
	if m, ok := d.modules.Remove(module); ok {
		m.Release()
	}
}

func (d *wgpuDevice) CreatePipelineLayout(desc device.PipelineLayoutDescriptor) (device.PipelineLayoutHandle, error) {
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: desc.Label,
	})
	if err != nil {
		return 0, driverErr("create pipeline layout", err)
	}
	return d.layouts.Insert(layout), nil
}

func (d *wgpuDevice) DestroyPipelineLayout(layout device.PipelineLayoutHandle) {
	if l, ok := d.layouts.Remove(layout); ok {
		l.Release()
	}
}

// CreateGraphicsPipeline builds a render pipeline. Viewport and scissor are always pass state in
// WebGPU, so desc.Viewport and desc.Scissor are not baked in.
func (d *wgpuDevice) CreateGraphicsPipeline(desc device.GraphicsPipelineDescriptor) (device.PipelineHandle, error) {
	layout, ok := d.layouts.Get(desc.Layout)
	if !ok {
		return 0, unknown("pipeline layout", desc.Layout)
	}
	format, ok := d.renderPasses.Get(desc.RenderPass)
	if !ok {
		return 0, unknown("render pass", desc.RenderPass)
	}

	var vertex *wgpu.VertexState
	var fragment *wgpu.FragmentState
	for _, s := range desc.Stages {
		m, ok := d.modules.Get(s.Module)
		if !ok {
			return 0, unknown("shader module", s.Module)
		}
		switch s.Stage {
		case device.ShaderStageVertex:
			vertex = &wgpu.VertexState{Module: m, EntryPoint: s.EntryPoint}
		case device.ShaderStageFragment:
			fragment = &wgpu.FragmentState{Module: m, EntryPoint: s.EntryPoint}
		default:
			return 0, fmt.Errorf("webgpu: stage %s: %w", s.Stage, device.ErrUnsupported)
		}
	}
	if vertex == nil {
		return 0, fmt.Errorf("webgpu: pipeline %q has no vertex stage: %w", desc.Label, device.ErrInitializationFailed)
	}

	buffers, err := toVertexLayouts(desc.VertexInput)
	if err != nil {
		return 0, err
	}
	vertex.Buffers = buffers
	primitive, err := toPrimitive(desc.Topology, desc.Rasterization)
	if err != nil {
		return 0, err
	}

	if fragment != nil {
		target := wgpu.ColorTargetState{
			Format:    format,
			WriteMask: toWriteMask(desc.ColorBlend.WriteMask),
		}
		if desc.ColorBlend.BlendEnable {
			target.Blend = &wgpu.BlendState{
				Color: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorSrcAlpha,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					Operation: wgpu.BlendOperationAdd,
				},
				Alpha: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorZero,
					Operation: wgpu.BlendOperationAdd,
				},
			}
		}
		fragment.Targets = []wgpu.ColorTargetState{target}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:     desc.Label,
		Layout:    layout,
		Vertex:    *vertex,
		Fragment:  fragment,
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: max(uint32(desc.Samples), 1),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return 0, driverErr("create render pipeline "+desc.Label, err)
	}
	return d.pipelines.Insert(created), nil
}

func (d *wgpuDevice) DestroyPipeline(pipeline device.PipelineHandle) {
	if p, ok := d.pipelines.Remove(pipeline); ok {
		p.Release()
	}
}

// WaitIdle returns immediately. wgpu keeps released objects alive until the queue is done with
// them, so teardown never races in-flight work.
func (d *wgpuDevice) WaitIdle() error {
	return nil
}

// releaseAll destroys whatever the caller leaked, dependents first, and reports how many
// objects were still alive.
func (d *wgpuDevice) releaseAll() int {
	leaked := 0
	for _, p := range d.pipelines.Drain() {
		p.Release()
		leaked++
	}
	for _, l := range d.layouts.Drain() {
		l.Release()
		leaked++
	}
	for _, m := range d.modules.Drain() {
		m.Release()
		leaked++
	}
	leaked += len(d.framebuffers.Drain())
	leaked += len(d.renderPasses.Drain())
	leaked += len(d.views.Drain())
	leaked += len(d.swapchains.Drain())
	d.images.Drain()
	return leaked
}
