package surface

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
)

func undefinedCaps() device.SurfaceCapabilities {
	return device.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  0,
		CurrentExtent:  common.Extent2D{Width: device.UndefinedExtent, Height: device.UndefinedExtent},
		MinImageExtent: common.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: common.Extent2D{Width: 4096, Height: 4096},
	}
}

func TestResolveImageCountBounded(t *testing.T) {
	for minCount := uint32(1); minCount <= 8; minCount++ {
		for maxCount := minCount; maxCount <= 16; maxCount++ {
			caps := device.SurfaceCapabilities{MinImageCount: minCount, MaxImageCount: maxCount}
			got := ResolveImageCount(caps)
			assert.GreaterOrEqual(t, got, minCount)
			assert.LessOrEqual(t, got, maxCount)
		}
	}
}

func TestResolveImageCountUnbounded(t *testing.T) {
	for minCount := uint32(0); minCount <= 8; minCount++ {
		caps := device.SurfaceCapabilities{MinImageCount: minCount, MaxImageCount: 0}
		assert.Equal(t, minCount+1, ResolveImageCount(caps))
	}
}

func TestResolveExtent(t *testing.T) {
	defined := undefinedCaps()
	defined.CurrentExtent = common.Extent2D{Width: 800, Height: 600}

	tests := []struct {
		name   string
		caps   device.SurfaceCapabilities
		window common.Extent2D
		want   common.Extent2D
	}{
		{
			name:   "defined extent wins over window",
			caps:   defined,
			window: common.Extent2D{Width: 1920, Height: 1080},
			want:   common.Extent2D{Width: 800, Height: 600},
		},
		{
			name:   "defined extent with zero window",
			caps:   defined,
			window: common.Extent2D{},
			want:   common.Extent2D{Width: 800, Height: 600},
		},
		{
			name:   "undefined extent clamps width only",
			caps:   undefinedCaps(),
			window: common.Extent2D{Width: 8000, Height: 600},
			want:   common.Extent2D{Width: 4096, Height: 600},
		},
		{
			name:   "undefined extent raises to minimum",
			caps:   undefinedCaps(),
			window: common.Extent2D{Width: 0, Height: 0},
			want:   common.Extent2D{Width: 1, Height: 1},
		},
		{
			name:   "undefined extent passes through in range",
			caps:   undefinedCaps(),
			window: common.Extent2D{Width: 1024, Height: 768},
			want:   common.Extent2D{Width: 1024, Height: 768},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveExtent(tt.caps, tt.window))
		})
	}
}

func TestSelectPresentMode(t *testing.T) {
	tests := []struct {
		name      string
		supported []device.PresentMode
		preferred device.PresentMode
		fallback  device.PresentMode
		want      device.PresentMode
	}{
		{
			name:      "preferred available",
			supported: []device.PresentMode{device.PresentModeFifo, device.PresentModeMailbox},
			preferred: device.PresentModeMailbox,
			fallback:  device.PresentModeFifo,
			want:      device.PresentModeMailbox,
		},
		{
			name:      "mailbox missing falls back to fifo",
			supported: []device.PresentMode{device.PresentModeFifo, device.PresentModeImmediate},
			preferred: device.PresentModeMailbox,
			fallback:  device.PresentModeFifo,
			want:      device.PresentModeFifo,
		},
		{
			name:      "custom fallback",
			supported: []device.PresentMode{device.PresentModeFifo, device.PresentModeImmediate},
			preferred: device.PresentModeMailbox,
			fallback:  device.PresentModeImmediate,
			want:      device.PresentModeImmediate,
		},
		{
			name:      "fallback missing too",
			supported: []device.PresentMode{device.PresentModeFifo},
			preferred: device.PresentModeMailbox,
			fallback:  device.PresentModeImmediate,
			want:      device.PresentModeFifo,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPresentMode(tt.supported, tt.preferred, tt.fallback))
		})
	}
}

func TestNegotiateDefinedExtent(t *testing.T) {
	dev := devicetest.NewDevice()

	cfg, err := NewNegotiator().Negotiate(dev.Target(), 1234, 321)
	require.NoError(t, err)

	assert.Equal(t, common.Extent2D{Width: 800, Height: 600}, cfg.Extent)
	assert.Equal(t, device.FormatB8G8R8A8Srgb, cfg.Format)
	assert.Equal(t, device.ColorSpaceSrgbNonlinear, cfg.ColorSpace)
	assert.Equal(t, device.PresentModeMailbox, cfg.PresentMode)
	assert.Equal(t, uint32(2), cfg.ImageCount)
	assert.Equal(t, device.SurfaceTransformIdentity, cfg.Transform)
}

func TestNegotiateUndefinedExtentAndUnboundedCount(t *testing.T) {
	dev := devicetest.NewDevice()
	dev.Caps = undefinedCaps()
	dev.Modes = []device.PresentMode{device.PresentModeFifo}

	cfg, err := NewNegotiator().Negotiate(dev.Target(), 8000, 600)
	require.NoError(t, err)

	assert.Equal(t, common.Extent2D{Width: 4096, Height: 600}, cfg.Extent)
	assert.Equal(t, uint32(3), cfg.ImageCount)
	assert.Equal(t, device.PresentModeFifo, cfg.PresentMode)
}

func TestNegotiateNegativeWindowSize(t *testing.T) {
	dev := devicetest.NewDevice()
	dev.Caps = undefinedCaps()

	cfg, err := NewNegotiator().Negotiate(dev.Target(), -5, 300)
	require.NoError(t, err)
	assert.Equal(t, common.Extent2D{Width: 1, Height: 300}, cfg.Extent)
}

func TestNegotiatePreferredOption(t *testing.T) {
	dev := devicetest.NewDevice()
	dev.Modes = []device.PresentMode{device.PresentModeImmediate, device.PresentModeFifo}

	n := NewNegotiator(WithPreferredPresentMode(device.PresentModeImmediate))
	cfg, err := n.Negotiate(dev.Target(), 800, 600)
	require.NoError(t, err)
	assert.Equal(t, device.PresentModeImmediate, cfg.PresentMode)
	assert.Equal(t, device.PresentModeImmediate, n.PreferredPresentMode())
	assert.Equal(t, device.PresentModeFifo, n.FallbackPresentMode())
}

func TestNegotiateNoFormats(t *testing.T) {
	dev := devicetest.NewDevice()
	dev.Formats = nil

	_, err := NewNegotiator().Negotiate(dev.Target(), 800, 600)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCompatibleFormat)
	assert.ErrorIs(t, err, gpuerr.NoCompatibleConfig)
}

func TestNegotiateQueryFailures(t *testing.T) {
	for _, op := range []devicetest.Op{
		devicetest.OpSurfaceCapabilities,
		devicetest.OpSurfaceFormats,
		devicetest.OpPresentModes,
	} {
		t.Run(string(op), func(t *testing.T) {
			dev := devicetest.NewDevice()
			dev.Fail(op, device.ErrSurfaceLost)

			_, err := NewNegotiator().Negotiate(dev.Target(), 800, 600)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCapabilityQueryFailed)
			assert.ErrorIs(t, err, gpuerr.QueryFailure)
			assert.True(t, errors.Is(err, device.ErrSurfaceLost))
		})
	}
}

func TestNegotiateQueriesFreshEachTime(t *testing.T) {
	dev := devicetest.NewDevice()
	n := NewNegotiator()

	first, err := n.Negotiate(dev.Target(), 800, 600)
	require.NoError(t, err)

	dev.Caps.CurrentExtent = common.Extent2D{Width: 1024, Height: 768}
	second, err := n.Negotiate(dev.Target(), 800, 600)
	require.NoError(t, err)

	assert.Equal(t, common.Extent2D{Width: 800, Height: 600}, first.Extent)
	assert.Equal(t, common.Extent2D{Width: 1024, Height: 768}, second.Extent)
	assert.Equal(t, 2, dev.Calls(devicetest.OpSurfaceCapabilities))
}
