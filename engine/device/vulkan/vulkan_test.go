package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

func TestCheckResult(t *testing.T) {
	tests := []struct {
		name string
		res  vk.Result
		want error
	}{
		{"out of host memory", vk.ErrorOutOfHostMemory, device.ErrOutOfHostMemory},
		{"out of device memory", vk.ErrorOutOfDeviceMemory, device.ErrOutOfDeviceMemory},
		{"initialization failed", vk.ErrorInitializationFailed, device.ErrInitializationFailed},
		{"device lost", vk.ErrorDeviceLost, device.ErrDeviceLost},
		{"surface lost", vk.ErrorSurfaceLost, device.ErrSurfaceLost},
		{"native window in use", vk.ErrorNativeWindowInUse, device.ErrNativeWindowInUse},
		{"out of date", vk.ErrorOutOfDate, device.ErrOutOfDate},
		{"layer not present", vk.ErrorLayerNotPresent, device.ErrUnsupported},
		{"extension not present", vk.ErrorExtensionNotPresent, device.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkResult(tt.res)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckResultSuccessCodes(t *testing.T) {
	assert.NoError(t, checkResult(vk.Success))
	assert.NoError(t, checkResult(vk.Suboptimal))
	assert.NoError(t, checkResult(vk.Incomplete))
}

func TestCheckResultUnknown(t *testing.T) {
	err := checkResult(vk.Result(-12345))
	assert.ErrorIs(t, err, device.ErrUnknown)
	assert.Contains(t, err.Error(), "-12345")
}

func TestSafeString(t *testing.T) {
	assert.Equal(t, "main\x00", safeString("main"))
	assert.Equal(t, "main\x00", safeString("main\x00"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestPartition(t *testing.T) {
	present, missing := partition(
		[]string{DefaultValidationLayer, "VK_LAYER_missing"},
		[]string{"VK_LAYER_other", DefaultValidationLayer},
	)
	assert.Equal(t, []string{DefaultValidationLayer}, present)
	assert.Equal(t, []string{"VK_LAYER_missing"}, missing)

	present, missing = partition(nil, []string{"x"})
	assert.Empty(t, present)
	assert.Empty(t, missing)
}

func TestPickCandidate(t *testing.T) {
	ok := func(name string) candidate {
		return candidate{name: name, queueFamily: 0, formats: 1, modes: 1}
	}

	integrated := ok("integrated")
	integrated.integrated = true
	discrete := ok("discrete")
	discrete.discrete = true
	noQueue := ok("no queue")
	noQueue.discrete = true
	noQueue.queueFamily = -1
	noSwapchain := ok("no swapchain")
	noSwapchain.discrete = true
	noSwapchain.missingExts = []string{SwapchainExtension}
	noFormats := ok("no formats")
	noFormats.discrete = true
	noFormats.formats = 0

	tests := []struct {
		name  string
		cands []candidate
		want  string
	}{
		{"discrete preferred", []candidate{integrated, discrete}, "discrete"},
		{"first of equal score", []candidate{ok("a"), ok("b")}, "a"},
		{"unsuitable discrete skipped", []candidate{noQueue, noSwapchain, noFormats, integrated}, "integrated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickCandidate(tt.cands)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.name)
		})
	}
}

func TestPickCandidateNoneSuitable(t *testing.T) {
	_, err := pickCandidate([]candidate{{name: "cpu", queueFamily: -1}})
	assert.ErrorIs(t, err, device.ErrNoSuitableDevice)

	_, err = pickCandidate(nil)
	assert.ErrorIs(t, err, device.ErrNoSuitableDevice)
}
