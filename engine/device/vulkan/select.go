package vulkan

import (
	"fmt"
	"slices"

	vk "github.com/goki/vulkan"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// DefaultValidationLayer is the Khronos validation layer enabled when validation is requested.
const DefaultValidationLayer = "VK_LAYER_KHRONOS_validation"

// SwapchainExtension is the device extension every presenting device must support.
const SwapchainExtension = "VK_KHR_swapchain"

const debugReportExtension = "VK_EXT_debug_report"

// candidate is what device selection knows about one physical device.
type candidate struct {
	gpu         vk.PhysicalDevice
	name        string
	discrete    bool
	integrated  bool
	queueFamily int
	missingExts []string
	formats     int
	modes       int
}

// suitable reports whether the device can present to the surface at all.
func (c candidate) suitable() bool {
	return c.queueFamily >= 0 && len(c.missingExts) == 0 && c.formats > 0 && c.modes > 0
}

func (c candidate) score() int {
	switch {
	case c.discrete:
		return 1000
	case c.integrated:
		return 500
	default:
		return 100
	}
}

// pickCandidate returns the highest scoring suitable candidate. Ties go to enumeration order.
func pickCandidate(cands []candidate) (candidate, error) {
	best := -1
	for i, c := range cands {
		if !c.suitable() {
			continue
		}
		if best < 0 || c.score() > cands[best].score() {
			best = i
		}
	}
	if best < 0 {
		return candidate{}, fmt.Errorf("vulkan: %d physical devices, none suitable: %w", len(cands), device.ErrNoSuitableDevice)
	}
	return cands[best], nil
}

// partition splits requested names into those present in available and those missing,
// keeping the requested order.
func partition(requested, available []string) (present, missing []string) {
	for _, name := range requested {
		if slices.Contains(available, name) {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}
	return present, missing
}

func instanceLayers() ([]string, error) {
	var count uint32
	if err := checkResult(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.LayerProperties, count)
	if err := checkResult(vk.EnumerateInstanceLayerProperties(&count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range list[:count] {
		list[i].Deref()
		names = append(names, vk.ToString(list[i].LayerName[:]))
	}
	return names, nil
}

func instanceExtensions() ([]string, error) {
	var count uint32
	if err := checkResult(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := checkResult(vk.EnumerateInstanceExtensionProperties("", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range list[:count] {
		list[i].Deref()
		names = append(names, vk.ToString(list[i].ExtensionName[:]))
	}
	return names, nil
}

func deviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := checkResult(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)); err != nil {
		return nil, err
	}
	list := make([]vk.ExtensionProperties, count)
	if err := checkResult(vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range list[:count] {
		list[i].Deref()
		names = append(names, vk.ToString(list[i].ExtensionName[:]))
	}
	return names, nil
}

// inspect gathers what selection needs to know about gpu. The queue family is the first one
// supporting flags and presentation to surface, or -1.
func inspect(gpu vk.PhysicalDevice, surface vk.Surface, flags vk.QueueFlags, requiredExts []string) candidate {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()

	c := candidate{
		gpu:         gpu,
		name:        vk.ToString(props.DeviceName[:]),
		discrete:    props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		integrated:  props.DeviceType == vk.PhysicalDeviceTypeIntegratedGpu,
		queueFamily: -1,
	}

	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, nil)
	families := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, families)
	for i := range families[:queueCount] {
		families[i].Deref()
		if families[i].QueueFlags&flags != flags {
			continue
		}
		var present vk.Bool32
		if checkResult(vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &present)) != nil {
			continue
		}
		if present.B() {
			c.queueFamily = i
			break
		}
	}

	available, err := deviceExtensions(gpu)
	if err != nil {
		c.missingExts = requiredExts
	} else {
		_, c.missingExts = partition(requiredExts, available)
	}

	var formatCount, modeCount uint32
	if checkResult(vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)) == nil {
		c.formats = int(formatCount)
	}
	if checkResult(vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)) == nil {
		c.modes = int(modeCount)
	}
	return c
}
