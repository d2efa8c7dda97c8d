package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// checkResult maps a VkResult to nil or to the matching device error. Suboptimal and
// Incomplete are successes: the call produced a usable object.
func checkResult(res vk.Result) error {
	switch res {
	case vk.Success, vk.Suboptimal, vk.Incomplete:
		return nil
	case vk.ErrorOutOfHostMemory:
		return resultError(device.ErrOutOfHostMemory, res)
	case vk.ErrorOutOfDeviceMemory:
		return resultError(device.ErrOutOfDeviceMemory, res)
	case vk.ErrorInitializationFailed:
		return resultError(device.ErrInitializationFailed, res)
	case vk.ErrorDeviceLost:
		return resultError(device.ErrDeviceLost, res)
	case vk.ErrorSurfaceLost:
		return resultError(device.ErrSurfaceLost, res)
	case vk.ErrorNativeWindowInUse:
		return resultError(device.ErrNativeWindowInUse, res)
	case vk.ErrorOutOfDate:
		return resultError(device.ErrOutOfDate, res)
	case vk.ErrorLayerNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorFeatureNotPresent, vk.ErrorIncompatibleDriver:
		return resultError(device.ErrUnsupported, res)
	default:
		return resultError(device.ErrUnknown, res)
	}
}

func resultError(err error, res vk.Result) error {
	return fmt.Errorf("%w (VkResult %d)", err, int32(res))
}

// safeString null-terminates s for the C side.
func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func toExtent(e vk.Extent2D) common.Extent2D {
	e.Deref()
	return common.Extent2D{Width: e.Width, Height: e.Height}
}

func fromExtent(e common.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func toCapabilities(caps vk.SurfaceCapabilities) device.SurfaceCapabilities {
	caps.Deref()
	return device.SurfaceCapabilities{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		CurrentExtent:           toExtent(caps.CurrentExtent),
		MinImageExtent:          toExtent(caps.MinImageExtent),
		MaxImageExtent:          toExtent(caps.MaxImageExtent),
		CurrentTransform:        device.SurfaceTransform(caps.CurrentTransform),
		SupportedCompositeAlpha: device.CompositeAlpha(caps.SupportedCompositeAlpha),
	}
}

func toAttachment(a device.AttachmentDescription) vk.AttachmentDescription {
	return vk.AttachmentDescription{
		Format:         vk.Format(a.Format),
		Samples:        vk.SampleCountFlagBits(a.Samples),
		LoadOp:         vk.AttachmentLoadOp(a.LoadOp),
		StoreOp:        vk.AttachmentStoreOp(a.StoreOp),
		StencilLoadOp:  vk.AttachmentLoadOp(a.StencilLoadOp),
		StencilStoreOp: vk.AttachmentStoreOp(a.StencilStoreOp),
		InitialLayout:  vk.ImageLayout(a.InitialLayout),
		FinalLayout:    vk.ImageLayout(a.FinalLayout),
	}
}

func toSubpass(s device.SubpassDescription) vk.SubpassDescription {
	refs := make([]vk.AttachmentReference, len(s.ColorAttachments))
	for i, r := range s.ColorAttachments {
		refs[i] = vk.AttachmentReference{
			Attachment: r.Attachment,
			Layout:     vk.ImageLayout(r.Layout),
		}
	}
	return vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPoint(s.BindPoint),
		ColorAttachmentCount: uint32(len(refs)),
		PColorAttachments:    refs,
	}
}

func toVertexInput(in device.VertexInputState) vk.PipelineVertexInputStateCreateInfo {
	bindings := make([]vk.VertexInputBindingDescription, len(in.Bindings))
	for i, b := range in.Bindings {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: vk.VertexInputRate(b.InputRate),
		}
	}
	attrs := make([]vk.VertexInputAttributeDescription, len(in.Attributes))
	for i, a := range in.Attributes {
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	return vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}
}
