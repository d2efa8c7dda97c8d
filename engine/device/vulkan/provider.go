// Package vulkan implements device.Provider and device.Device on top of Vulkan.
//
// The provider owns the whole bootstrap: loader, instance, optional validation layers and
// debug report callback, window surface, physical device and queue family selection, and the
// logical device. The device it hands out translates every device.Device call to Vulkan and
// keeps native objects in typed handle tables.
package vulkan

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// SurfaceSource is the window side of the bootstrap.
type SurfaceSource interface {
	// RequiredInstanceExtensions lists the instance extensions the window system needs.
	RequiredInstanceExtensions() []string
	// CreateWindowSurface creates a VkSurfaceKHR for the window on instance and returns it
	// as a raw pointer.
	CreateWindowSurface(instance any) (uintptr, error)
	// VulkanProcAddr returns vkGetInstanceProcAddr as resolved by the window system.
	VulkanProcAddr() unsafe.Pointer
}

// provider is the implementation of the Provider interface.
type provider struct {
	src SurfaceSource

	appName          string
	validation       bool
	validationLayers []string
	deviceExts       []string
	queueFlags       vk.QueueFlags
	logger           *slog.Logger

	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	hasDebug      bool
	surface       vk.Surface
	hasSurface    bool
	gpu           vk.PhysicalDevice
	queueFamily   uint32
	queue         vk.Queue
	logical       vk.Device
	dev           *vkDevice
	surfaceHandle device.SurfaceHandle
	enabledLayers []string
	destroyed     bool
}

// Provider is a device.Provider backed by a Vulkan instance and logical device.
type Provider interface {
	device.Provider

	// Instance returns the Vulkan instance.
	//
	// Returns:
	//   - vk.Instance: the instance
	Instance() vk.Instance

	// PhysicalDevice returns the selected physical device.
	//
	// Returns:
	//   - vk.PhysicalDevice: the physical device
	PhysicalDevice() vk.PhysicalDevice

	// Queue returns the graphics+present queue retrieved from the logical device.
	//
	// Returns:
	//   - vk.Queue: the queue
	Queue() vk.Queue

	// EnabledLayers returns the validation layers that were actually enabled.
	//
	// Returns:
	//   - []string: the layer names
	EnabledLayers() []string
}

var _ Provider = &provider{}

// NewProvider boots Vulkan for the window behind src.
//
// The first physical device exposing a queue family with the required flags that can present
// to the surface, supporting every required device extension and reporting at least one
// surface format and present mode, is selected. Discrete GPUs are preferred over integrated
// ones. The logical device enables the required extensions and one queue at priority 1.0.
//
// Parameters:
//   - src: the window providing the surface
//   - opts: a variadic list of ProviderBuilderOption functions
//
// Returns:
//   - Provider: the provider
//   - error: device.ErrInitializationFailed, device.ErrNoSuitableDevice or a mapped driver
//     error; everything created so far is released on error
func NewProvider(src SurfaceSource, opts ...ProviderBuilderOption) (Provider, error) {
	if src == nil {
		return nil, errors.New("vulkan: nil surface source")
	}
	p := &provider{
		src:              src,
		appName:          "oxy-present",
		validationLayers: []string{DefaultValidationLayer},
		deviceExts:       []string{SwapchainExtension},
		queueFlags:       vk.QueueFlags(vk.QueueGraphicsBit),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = common.ComponentLogger("vulkan")
	}
	if !slices.Contains(p.deviceExts, SwapchainExtension) {
		p.deviceExts = append(p.deviceExts, SwapchainExtension)
	}

	if err := p.init(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *provider) init() error {
	vk.SetGetInstanceProcAddr(p.src.VulkanProcAddr())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("vulkan: loader: %w: %w", device.ErrInitializationFailed, err)
	}
	if err := p.createInstance(); err != nil {
		return err
	}
	if err := p.createDebugCallback(); err != nil {
		return err
	}
	if err := p.createSurface(); err != nil {
		return err
	}
	if err := p.pickPhysicalDevice(); err != nil {
		return err
	}
	if err := p.createLogicalDevice(); err != nil {
		return err
	}
	p.logger.Info("vulkan device ready",
		"device", p.dev.Name(),
		"queueFamily", p.queueFamily,
		"layers", p.enabledLayers,
	)
	return nil
}

func (p *provider) createInstance() error {
	extensions := slices.Clone(p.src.RequiredInstanceExtensions())

	if p.validation {
		available, err := instanceLayers()
		if err != nil {
			return fmt.Errorf("vulkan: enumerate layers: %w", err)
		}
		var missing []string
		p.enabledLayers, missing = partition(p.validationLayers, available)
		if len(missing) > 0 {
			p.logger.Warn("validation layers unavailable", "missing", missing)
		}
		if len(p.enabledLayers) > 0 {
			exts, err := instanceExtensions()
			if err != nil {
				return fmt.Errorf("vulkan: enumerate instance extensions: %w", err)
			}
			if slices.Contains(exts, debugReportExtension) {
				extensions = append(extensions, debugReportExtension)
				p.hasDebug = true
			}
		}
	}

	extensions = safeStrings(extensions)
	layers := safeStrings(p.enabledLayers)

	var instance vk.Instance
	res := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(p.appName),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        safeString("oxy-present"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance)
	if err := checkResult(res); err != nil {
		p.hasDebug = false
		return fmt.Errorf("vulkan: create instance: %w", err)
	}
	p.instance = instance
	vk.InitInstance(instance)
	p.logger.Debug("instance created", "extensions", len(extensions), "layers", p.enabledLayers)
	return nil
}

// createDebugCallback routes validation layer reports to the logger. It only runs when a
// validation layer and the debug report extension were both enabled.
func (p *provider) createDebugCallback() error {
	if !p.hasDebug {
		return nil
	}
	p.hasDebug = false
	log := p.logger.With("source", "validation")
	var cb vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(p.instance, &vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vk.Bool32 {
			switch {
			case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
				log.Error(message, "layer", layerPrefix, "code", messageCode)
			case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
				log.Warn(message, "layer", layerPrefix, "code", messageCode)
			default:
				log.Debug(message, "layer", layerPrefix, "code", messageCode)
			}
			return vk.False
		},
	}, nil, &cb)
	if err := checkResult(res); err != nil {
		return fmt.Errorf("vulkan: create debug callback: %w", err)
	}
	p.debugCallback = cb
	p.hasDebug = true
	return nil
}

func (p *provider) createSurface() error {
	ptr, err := p.src.CreateWindowSurface(p.instance)
	if err != nil {
		return fmt.Errorf("vulkan: create window surface: %w: %w", device.ErrInitializationFailed, err)
	}
	p.surface = vk.SurfaceFromPointer(ptr)
	p.hasSurface = true
	return nil
}

func (p *provider) pickPhysicalDevice() error {
	var count uint32
	if err := checkResult(vk.EnumeratePhysicalDevices(p.instance, &count, nil)); err != nil {
		return fmt.Errorf("vulkan: enumerate physical devices: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("vulkan: no physical devices: %w", device.ErrNoSuitableDevice)
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := checkResult(vk.EnumeratePhysicalDevices(p.instance, &count, gpus)); err != nil {
		return fmt.Errorf("vulkan: enumerate physical devices: %w", err)
	}

	cands := make([]candidate, 0, count)
	for _, gpu := range gpus[:count] {
		c := inspect(gpu, p.surface, p.queueFlags, p.deviceExts)
		p.logger.Debug("physical device",
			"name", c.name,
			"discrete", c.discrete,
			"queueFamily", c.queueFamily,
			"missingExtensions", c.missingExts,
			"formats", c.formats,
			"presentModes", c.modes,
		)
		cands = append(cands, c)
	}

	best, err := pickCandidate(cands)
	if err != nil {
		return err
	}
	p.gpu = best.gpu
	p.queueFamily = uint32(best.queueFamily)
	p.dev = newDevice(best.name, best.gpu, nil, p.logger)
	return nil
}

func (p *provider) createLogicalDevice() error {
	exts := safeStrings(p.deviceExts)
	layers := safeStrings(p.enabledLayers)

	var logical vk.Device
	res := vk.CreateDevice(p.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: p.queueFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &logical)
	if err := checkResult(res); err != nil {
		return fmt.Errorf("vulkan: create device: %w", err)
	}
	p.logical = logical
	p.dev.device = logical

	var queue vk.Queue
	vk.GetDeviceQueue(logical, p.queueFamily, 0, &queue)
	p.queue = queue

	p.surfaceHandle = p.dev.surfaces.Insert(p.surface)
	return nil
}

func (p *provider) Target() device.Target {
	return device.Target{
		Device:      p.dev,
		Surface:     p.surfaceHandle,
		QueueFamily: p.queueFamily,
	}
}

func (p *provider) Name() string {
	if p.dev == nil {
		return ""
	}
	return p.dev.Name()
}

func (p *provider) Instance() vk.Instance {
	return p.instance
}

func (p *provider) PhysicalDevice() vk.PhysicalDevice {
	return p.gpu
}

func (p *provider) Queue() vk.Queue {
	return p.queue
}

func (p *provider) EnabledLayers() []string {
	return slices.Clone(p.enabledLayers)
}

// Destroy releases the logical device, the surface, the debug callback and the instance, in
// that order. Objects still alive on the device are destroyed first and reported.
func (p *provider) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true

	if p.logical != nil {
		vk.DeviceWaitIdle(p.logical)
		if leaked := p.dev.releaseAll(); leaked > 0 {
			p.logger.Warn("device objects still alive at teardown", "count", leaked)
		}
		vk.DestroyDevice(p.logical, nil)
		p.logical = nil
	}
	if p.hasSurface {
		vk.DestroySurface(p.instance, p.surface, nil)
		p.hasSurface = false
	}
	if p.hasDebug {
		vk.DestroyDebugReportCallback(p.instance, p.debugCallback, nil)
		p.hasDebug = false
	}
	if p.instance != nil {
		vk.DestroyInstance(p.instance, nil)
		p.instance = nil
	}
	p.logger.Debug("vulkan provider destroyed")
}
