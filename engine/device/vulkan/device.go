package vulkan

import (
	"fmt"
	"log/slog"

	vk "github.com/goki/vulkan"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

type swapchainEntry struct {
	swapchain vk.Swapchain
	images    []device.ImageHandle
}

// vkDevice is the Vulkan implementation of device.Device. Every native object it creates is
// kept in a typed HandleTable; callers only ever see the handles.
type vkDevice struct {
	name   string
	gpu    vk.PhysicalDevice
	device vk.Device
	logger *slog.Logger

	surfaces     *device.HandleTable[device.SurfaceHandle, vk.Surface]
	swapchains   *device.HandleTable[device.SwapchainHandle, *swapchainEntry]
	images       *device.HandleTable[device.ImageHandle, vk.Image]
	views        *device.HandleTable[device.ImageViewHandle, vk.ImageView]
	renderPasses *device.HandleTable[device.RenderPassHandle, vk.RenderPass]
	framebuffers *device.HandleTable[device.FramebufferHandle, vk.Framebuffer]
	modules      *device.HandleTable[device.ShaderModuleHandle, vk.ShaderModule]
	layouts      *device.HandleTable[device.PipelineLayoutHandle, vk.PipelineLayout]
	pipelines    *device.HandleTable[device.PipelineHandle, vk.Pipeline]
}

var _ device.Device = &vkDevice{}

func newDevice(name string, gpu vk.PhysicalDevice, dev vk.Device, logger *slog.Logger) *vkDevice {
	return &vkDevice{
		name:         name,
		gpu:          gpu,
		device:       dev,
		logger:       logger,
		surfaces:     device.NewHandleTable[device.SurfaceHandle, vk.Surface](),
		swapchains:   device.NewHandleTable[device.SwapchainHandle, *swapchainEntry](),
		images:       device.NewHandleTable[device.ImageHandle, vk.Image](),
		views:        device.NewHandleTable[device.ImageViewHandle, vk.ImageView](),
		renderPasses: device.NewHandleTable[device.RenderPassHandle, vk.RenderPass](),
		framebuffers: device.NewHandleTable[device.FramebufferHandle, vk.Framebuffer](),
		modules:      device.NewHandleTable[device.ShaderModuleHandle, vk.ShaderModule](),
		layouts:      device.NewHandleTable[device.PipelineLayoutHandle, vk.PipelineLayout](),
		pipelines:    device.NewHandleTable[device.PipelineHandle, vk.Pipeline](),
	}
}

func unknown[H ~uint64](kind string, h H) error {
	return fmt.Errorf("vulkan: %s %d: %w", kind, uint64(h), device.ErrUnknownHandle)
}

func (d *vkDevice) Name() string {
	return d.name
}

func (d *vkDevice) SurfaceCapabilities(surface device.SurfaceHandle) (device.SurfaceCapabilities, error) {
	s, ok := d.surfaces.Get(surface)
	if !ok {
		return device.SurfaceCapabilities{}, unknown("surface", surface)
	}
	var caps vk.SurfaceCapabilities
	if err := checkResult(vk.GetPhysicalDeviceSurfaceCapabilities(d.gpu, s, &caps)); err != nil {
		return device.SurfaceCapabilities{}, err
	}
	return toCapabilities(caps), nil
}

func (d *vkDevice) SurfaceFormats(surface device.SurfaceHandle) ([]device.SurfaceFormat, error) {
	s, ok := d.surfaces.Get(surface)
	if !ok {
		return nil, unknown("surface", surface)
	}
	var count uint32
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.gpu, s, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := checkResult(vk.GetPhysicalDeviceSurfaceFormats(d.gpu, s, &count, formats)); err != nil {
		return nil, err
	}
	out := make([]device.SurfaceFormat, 0, count)
	for i := range formats[:count] {
		formats[i].Deref()
		out = append(out, device.SurfaceFormat{
			Format:     device.Format(formats[i].Format),
			ColorSpace: device.ColorSpace(formats[i].ColorSpace),
		})
	}
	return out, nil
}

func (d *vkDevice) PresentModes(surface device.SurfaceHandle) ([]device.PresentMode, error) {
	s, ok := d.surfaces.Get(surface)
	if !ok {
		return nil, unknown("surface", surface)
	}
	var count uint32
	if err := checkResult(vk.GetPhysicalDeviceSurfacePresentModes(d.gpu, s, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := checkResult(vk.GetPhysicalDeviceSurfacePresentModes(d.gpu, s, &count, modes)); err != nil {
		return nil, err
	}
	out := make([]device.PresentMode, 0, count)
	for _, m := range modes[:count] {
		out = append(out, device.PresentMode(m))
	}
	return out, nil
}

func (d *vkDevice) CreateSwapchain(desc device.SwapchainDescriptor) (device.SwapchainHandle, error) {
	s, ok := d.surfaces.Get(desc.Surface)
	if !ok {
		return 0, unknown("surface", desc.Surface)
	}
	old := vk.NullSwapchain
	if desc.OldSwapchain != 0 {
		entry, ok := d.swapchains.Get(desc.OldSwapchain)
		if !ok {
			return 0, unknown("swapchain", desc.OldSwapchain)
		}
		old = entry.swapchain
	}

	var sc vk.Swapchain
	res := vk.CreateSwapchain(d.device, &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               s,
		MinImageCount:         desc.MinImageCount,
		ImageFormat:           vk.Format(desc.Format),
		ImageColorSpace:       vk.ColorSpace(desc.ColorSpace),
		ImageExtent:           fromExtent(desc.Extent),
		ImageArrayLayers:      desc.ArrayLayers,
		ImageUsage:            vk.ImageUsageFlags(desc.Usage),
		ImageSharingMode:      vk.SharingMode(desc.SharingMode),
		QueueFamilyIndexCount: uint32(len(desc.QueueFamilies)),
		PQueueFamilyIndices:   desc.QueueFamilies,
		PreTransform:          vk.SurfaceTransformFlagBits(desc.PreTransform),
		CompositeAlpha:        vk.CompositeAlphaFlagBits(desc.CompositeAlpha),
		PresentMode:           vk.PresentMode(desc.PresentMode),
		Clipped:               vkBool(desc.Clipped),
		OldSwapchain:          old,
	}, nil, &sc)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	h := d.swapchains.Insert(&swapchainEntry{swapchain: sc})
	d.logger.Debug("swapchain created", "handle", h, "retired", desc.OldSwapchain)
	return h, nil
}

func (d *vkDevice) SwapchainImages(swapchain device.SwapchainHandle) ([]device.ImageHandle, error) {
	entry, ok := d.swapchains.Get(swapchain)
	if !ok {
		return nil, unknown("swapchain", swapchain)
	}
	if entry.images != nil {
		return append([]device.ImageHandle(nil), entry.images...), nil
	}

	var count uint32
	if err := checkResult(vk.GetSwapchainImages(d.device, entry.swapchain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := checkResult(vk.GetSwapchainImages(d.device, entry.swapchain, &count, images)); err != nil {
		return nil, err
	}
	handles := make([]device.ImageHandle, 0, count)
	for _, img := range images[:count] {
		handles = append(handles, d.images.Insert(img))
	}
	entry.images = handles
	return append([]device.ImageHandle(nil), handles...), nil
}

func (d *vkDevice) DestroySwapchain(swapchain device.SwapchainHandle) {
	entry, ok := d.swapchains.Remove(swapchain)
	if !ok {
		d.logger.Warn("destroy of unknown swapchain", "handle", swapchain)
		return
	}
	for _, img := range entry.images {
		d.images.Remove(img)
	}
	vk.DestroySwapchain(d.device, entry.swapchain, nil)
}

func (d *vkDevice) CreateImageView(desc device.ImageViewDescriptor) (device.ImageViewHandle, error) {
	img, ok := d.images.Get(desc.Image)
	if !ok {
		return 0, unknown("image", desc.Image)
	}
	var view vk.ImageView
	res := vk.CreateImageView(d.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType(desc.ViewType),
		Format:   vk.Format(desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzle(desc.Components.R),
			G: vk.ComponentSwizzle(desc.Components.G),
			B: vk.ComponentSwizzle(desc.Components.B),
			A: vk.ComponentSwizzle(desc.Components.A),
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(desc.SubresourceRange.Aspect),
			BaseMipLevel:   desc.SubresourceRange.BaseMipLevel,
			LevelCount:     desc.SubresourceRange.LevelCount,
			BaseArrayLayer: desc.SubresourceRange.BaseArrayLayer,
			LayerCount:     desc.SubresourceRange.LayerCount,
		},
	}, nil, &view)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	return d.views.Insert(view), nil
}

func (d *vkDevice) DestroyImageView(view device.ImageViewHandle) {
	if v, ok := d.views.Remove(view); ok {
		vk.DestroyImageView(d.device, v, nil)
	}
}

func (d *vkDevice) CreateRenderPass(desc device.RenderPassDescriptor) (device.RenderPassHandle, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = toAttachment(a)
	}
	subpasses := make([]vk.SubpassDescription, len(desc.Subpasses))
	for i, s := range desc.Subpasses {
		subpasses[i] = toSubpass(s)
	}

	var rp vk.RenderPass
	res := vk.CreateRenderPass(d.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
	}, nil, &rp)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	return d.renderPasses.Insert(rp), nil
}

func (d *vkDevice) DestroyRenderPass(renderPass device.RenderPassHandle) {
	if rp, ok := d.renderPasses.Remove(renderPass); ok {
		vk.DestroyRenderPass(d.device, rp, nil)
	}
}

func (d *vkDevice) CreateFramebuffer(desc device.FramebufferDescriptor) (device.FramebufferHandle, error) {
	rp, ok := d.renderPasses.Get(desc.RenderPass)
	if !ok {
		return 0, unknown("render pass", desc.RenderPass)
	}
	attachments := make([]vk.ImageView, len(desc.Attachments))
	for i, h := range desc.Attachments {
		v, ok := d.views.Get(h)
		if !ok {
			return 0, unknown("image view", h)
		}
		attachments[i] = v
	}

	var fb vk.Framebuffer
	res := vk.CreateFramebuffer(d.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           desc.Width,
		Height:          desc.Height,
		Layers:          desc.Layers,
	}, nil, &fb)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	return d.framebuffers.Insert(fb), nil
}

func (d *vkDevice) DestroyFramebuffer(framebuffer device.FramebufferHandle) {
	if fb, ok := d.framebuffers.Remove(framebuffer); ok {
		vk.DestroyFramebuffer(d.device, fb, nil)
	}
}

func (d *vkDevice) CreateShaderModule(desc device.ShaderModuleDescriptor) (device.ShaderModuleHandle, error) {
	if len(desc.Code) == 0 {
		return 0, fmt.Errorf("vulkan: shader module %q: empty code: %w", desc.Label, device.ErrInitializationFailed)
	}
	var module vk.ShaderModule
	res := vk.CreateShaderModule(d.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(desc.Code) * 4),
		PCode:    desc.Code,
	}, nil, &module)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	return d.modules.Insert(module), nil
}

func (d *vkDevice) DestroyShaderModule(module device.ShaderModuleHandle) {
	if m, ok := d.modules.Remove(module); ok {
		vk.DestroyShaderModule(d.device, m, nil)
	}
}

func (d *vkDevice) CreatePipelineLayout(desc device.PipelineLayoutDescriptor) (device.PipelineLayoutHandle, error) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.device, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}, nil, &layout)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	return d.layouts.Insert(layout), nil
}

func (d *vkDevice) DestroyPipelineLayout(layout device.PipelineLayoutHandle) {
	if l, ok := d.layouts.Remove(layout); ok {
		vk.DestroyPipelineLayout(d.device, l, nil)
	}
}

func (d *vkDevice) CreateGraphicsPipeline(desc device.GraphicsPipelineDescriptor) (device.PipelineHandle, error) {
	layout, ok := d.layouts.Get(desc.Layout)
	if !ok {
		return 0, unknown("pipeline layout", desc.Layout)
	}
	rp, ok := d.renderPasses.Get(desc.RenderPass)
	if !ok {
		return 0, unknown("render pass", desc.RenderPass)
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(desc.Stages))
	for i, s := range desc.Stages {
		m, ok := d.modules.Get(s.Module)
		if !ok {
			return 0, unknown("shader module", s.Module)
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(s.Stage),
			Module: m,
			PName:  safeString(s.EntryPoint),
		}
	}

	vertexInput := toVertexInput(desc.VertexInput)
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopology(desc.Topology),
		PrimitiveRestartEnable: vk.False,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			X:        desc.Viewport.X,
			Y:        desc.Viewport.Y,
			Width:    desc.Viewport.Width,
			Height:   desc.Viewport.Height,
			MinDepth: desc.Viewport.MinDepth,
			MaxDepth: desc.Viewport.MaxDepth,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Offset: vk.Offset2D{X: desc.Scissor.X, Y: desc.Scissor.Y},
			Extent: fromExtent(desc.Scissor.Extent),
		}},
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonMode(desc.Rasterization.PolygonMode),
		CullMode:                vk.CullModeFlags(desc.Rasterization.CullMode),
		FrontFace:               vk.FrontFace(desc.Rasterization.FrontFace),
		DepthBiasEnable:         vk.False,
		LineWidth:               desc.Rasterization.LineWidth,
	}
	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCountFlagBits(desc.Samples),
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}
	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			BlendEnable:         vkBool(desc.ColorBlend.BlendEnable),
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask:      vk.ColorComponentFlags(desc.ColorBlend.WriteMask),
		}},
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		Layout:              layout,
		RenderPass:          rp,
		Subpass:             desc.Subpass,
	}
	if desc.DynamicViewport {
		dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
		info.PDynamicState = &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		}
	}

	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := checkResult(res); err != nil {
		return 0, err
	}
	return d.pipelines.Insert(pipelines[0]), nil
}

func (d *vkDevice) DestroyPipeline(pipeline device.PipelineHandle) {
	if p, ok := d.pipelines.Remove(pipeline); ok {
		vk.DestroyPipeline(d.device, p, nil)
	}
}

func (d *vkDevice) WaitIdle() error {
	return checkResult(vk.DeviceWaitIdle(d.device))
}

// releaseAll destroys whatever the caller leaked, dependents first, and reports how many
// objects were still alive. Swapchain images go with their swapchains.
func (d *vkDevice) releaseAll() int {
	leaked := 0
	for _, p := range d.pipelines.Drain() {
		vk.DestroyPipeline(d.device, p, nil)
		leaked++
	}
	for _, l := range d.layouts.Drain() {
		vk.DestroyPipelineLayout(d.device, l, nil)
		leaked++
	}
	for _, m := range d.modules.Drain() {
		vk.DestroyShaderModule(d.device, m, nil)
		leaked++
	}
	for _, fb := range d.framebuffers.Drain() {
		vk.DestroyFramebuffer(d.device, fb, nil)
		leaked++
	}
	for _, rp := range d.renderPasses.Drain() {
		vk.DestroyRenderPass(d.device, rp, nil)
		leaked++
	}
	for _, v := range d.views.Drain() {
		vk.DestroyImageView(d.device, v, nil)
		leaked++
	}
	for _, sc := range d.swapchains.Drain() {
		vk.DestroySwapchain(d.device, sc.swapchain, nil)
		leaked++
	}
	d.images.Drain()
	return leaked
}
