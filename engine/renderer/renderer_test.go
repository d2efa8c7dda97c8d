package renderer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/device/devicetest"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
	"github.com/Carmen-Shannon/oxy-present/engine/profiler"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-present/engine/swapchain"
)

type fixedSize struct {
	w, h int
}

func (s *fixedSize) Width() int  { return s.w }
func (s *fixedSize) Height() int { return s.h }

func spirv(words ...uint32) []byte {
	out := binary.LittleEndian.AppendUint32(nil, shader.SPIRVMagic)
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func triangleSpec(key string, opts ...pipeline.PipelineBuilderOption) pipeline.Spec {
	return pipeline.Spec{
		Key: key,
		Binaries: shader.StageBinaries{
			shader.ShaderTypeVertex:   {Stage: shader.ShaderTypeVertex, Code: spirv(0x00010000, 1)},
			shader.ShaderTypeFragment: {Stage: shader.ShaderTypeFragment, Code: spirv(0x00010000, 2)},
		},
		Options: opts,
	}
}

func newTestRenderer(t *testing.T, dev *devicetest.Device, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(devicetest.NewProvider(dev), &fixedSize{w: 800, h: 600}, opts...)
	require.NoError(t, err)
	return r
}

func TestNewRendererBuildsFirstGeneration(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithPipelines(triangleSpec("triangle")))

	ring := r.FrameRing()
	require.NotNil(t, ring)
	assert.Equal(t, 2, ring.Len())
	assert.Equal(t, uint64(1), r.Generation())
	assert.Equal(t, device.PresentModeMailbox, r.Config().PresentMode)

	fbs := r.Framebuffers()
	require.NotNil(t, fbs)
	assert.Equal(t, ring.Len(), fbs.Len())
	assert.Equal(t, ring.Generation(), fbs.Generation())

	desc := r.RenderTarget()
	require.NotNil(t, desc)
	assert.Equal(t, ring.Format(), desc.Format())

	state := r.Pipeline("triangle")
	require.NotNil(t, state)
	assert.Equal(t, desc.RenderPass(), state.RenderPass())
	assert.Len(t, r.Pipelines(), 1)

	assert.Equal(t, devicetest.Live{
		Swapchains:      1,
		Images:          2,
		ImageViews:      2,
		RenderPasses:    1,
		Framebuffers:    2,
		ShaderModules:   2,
		PipelineLayouts: 1,
		Pipelines:       1,
	}, dev.Live())
}

func TestNewRendererRejectsNilCollaborators(t *testing.T) {
	_, err := NewRenderer(nil, &fixedSize{w: 1, h: 1})
	assert.Error(t, err)

	_, err = NewRenderer(devicetest.NewProvider(devicetest.NewDevice()), nil)
	assert.Error(t, err)
}

func TestNewRendererFailureLeaksNothing(t *testing.T) {
	dev := devicetest.NewDevice()
	dev.Fail(devicetest.OpCreateGraphicsPipeline, device.ErrOutOfDeviceMemory)

	r, err := NewRenderer(devicetest.NewProvider(dev), &fixedSize{w: 800, h: 600},
		WithPipelines(triangleSpec("triangle")))
	require.Error(t, err)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, pipeline.ErrPipelineAssemblyFailed)
	assert.ErrorIs(t, err, device.ErrOutOfDeviceMemory)
	assert.Zero(t, dev.Live().Total())
	assert.Zero(t, dev.BadDestroys())
}

func TestResizeRebuildsFramebuffersAndKeepsDynamicPipelines(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithPipelines(triangleSpec("triangle")))

	oldRing := r.FrameRing()
	oldFbs := r.Framebuffers()
	oldDesc := r.RenderTarget()
	oldState := r.Pipeline("triangle")

	dev.Caps.CurrentExtent = common.Extent2D{Width: 1024, Height: 768}
	require.NoError(t, r.Resize(1024, 768))

	assert.True(t, oldRing.Released())
	assert.True(t, oldFbs.Released())
	assert.Equal(t, uint64(2), r.Generation())

	fbs := r.Framebuffers()
	assert.Equal(t, common.Extent2D{Width: 1024, Height: 768}, fbs.Extent())
	assert.Equal(t, r.FrameRing().Len(), fbs.Len())
	assert.Equal(t, uint64(2), fbs.Generation())

	assert.Same(t, oldDesc, r.RenderTarget())
	assert.Same(t, oldState, r.Pipeline("triangle"))
	assert.Equal(t, 1, dev.Calls(devicetest.OpCreateGraphicsPipeline))

	assert.Equal(t, 1, dev.Live().Swapchains)
	assert.Equal(t, 2, dev.Live().Framebuffers)
	assert.Zero(t, dev.BadDestroys())
}

func TestResizeRebuildsStaticViewportPipelines(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithPipelines(
		triangleSpec("static", pipeline.WithDynamicViewport(false)),
		triangleSpec("dynamic"),
	))

	oldStatic := r.Pipeline("static")
	oldDynamic := r.Pipeline("dynamic")

	dev.Caps.CurrentExtent = common.Extent2D{Width: 640, Height: 480}
	require.NoError(t, r.Resize(640, 480))

	assert.True(t, oldStatic.Released())
	newStatic := r.Pipeline("static")
	require.NotNil(t, newStatic)
	assert.Equal(t, common.Extent2D{Width: 640, Height: 480}, newStatic.Extent())
	assert.Same(t, oldDynamic, r.Pipeline("dynamic"))

	assert.Equal(t, 2, dev.Live().Pipelines)
	assert.Zero(t, dev.BadDestroys())
}

func TestResizeFormatChangeRebuildsRenderPassAndPipelines(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithPipelines(triangleSpec("triangle")))

	oldDesc := r.RenderTarget()
	oldState := r.Pipeline("triangle")

	dev.Formats = []device.SurfaceFormat{
		{Format: device.FormatB8G8R8A8Unorm, ColorSpace: device.ColorSpaceSrgbNonlinear},
	}
	require.NoError(t, r.Resize(800, 600))

	assert.True(t, oldDesc.Released())
	assert.True(t, oldState.Released())

	desc := r.RenderTarget()
	assert.Equal(t, device.FormatB8G8R8A8Unorm, desc.Format())
	state := r.Pipeline("triangle")
	require.NotNil(t, state)
	assert.Equal(t, desc.RenderPass(), state.RenderPass())

	assert.Equal(t, 1, dev.Live().RenderPasses)
	assert.Equal(t, 1, dev.Live().Pipelines)
	assert.Zero(t, dev.BadDestroys())
}

func TestResizeIgnoresEmptySurface(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev)
	waits := dev.Calls(devicetest.OpWaitIdle)

	require.NoError(t, r.Resize(0, 600))
	require.NoError(t, r.Resize(800, -1))

	assert.Equal(t, uint64(1), r.Generation())
	assert.Equal(t, waits, dev.Calls(devicetest.OpWaitIdle))
}

func TestResizeWaitsForIdleFirst(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev)
	require.Equal(t, 1, dev.Calls(devicetest.OpWaitIdle))

	require.NoError(t, r.Resize(800, 600))
	assert.Equal(t, 2, dev.Calls(devicetest.OpWaitIdle))
}

func TestRebuildFailureTearsDownGeneration(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithPipelines(triangleSpec("triangle")))

	dev.Fail(devicetest.OpCreateSwapchain, device.ErrSurfaceLost)
	err := r.Resize(800, 600)
	require.Error(t, err)
	assert.ErrorIs(t, err, swapchain.ErrSurfaceLost)
	assert.True(t, gpuerr.IsSurfaceInvalidated(err))

	assert.Nil(t, r.FrameRing())
	assert.Nil(t, r.Framebuffers())
	assert.Nil(t, r.RenderTarget())
	assert.Nil(t, r.Pipeline("triangle"))
	assert.Zero(t, r.Generation())
	assert.Zero(t, dev.Live().Total())
	assert.Zero(t, dev.BadDestroys())

	// The surface came back: the next resize rebuilds everything, pipelines included.
	require.NoError(t, r.Resize(800, 600))
	assert.NotNil(t, r.FrameRing())
	assert.NotNil(t, r.Pipeline("triangle"))
	assert.Equal(t, 1, dev.Live().Swapchains)
}

func TestRebuildWaitIdleFailure(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev)

	dev.Fail(devicetest.OpWaitIdle, device.ErrDeviceLost)
	err := r.Rebuild()
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrDeviceLost)
	assert.False(t, gpuerr.IsSurfaceInvalidated(err))
	assert.Zero(t, dev.Live().Total())
}

func TestRegisterPipelines(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev)

	require.NoError(t, r.RegisterPipelines(triangleSpec("a")))
	require.NoError(t, r.RegisterPipelines(triangleSpec("a"), triangleSpec("b")))
	assert.Equal(t, 2, dev.Calls(devicetest.OpCreateGraphicsPipeline))
	assert.Len(t, r.Pipelines(), 2)

	err := r.RegisterPipelines(pipeline.Spec{})
	assert.ErrorIs(t, err, ErrInvalidPipelineSpec)

	bad := triangleSpec("bad")
	bad.Binaries[shader.ShaderTypeVertex] = shader.Binary{Stage: shader.ShaderTypeVertex, Code: make([]byte, 17)}
	err = r.RegisterPipelines(bad)
	assert.ErrorIs(t, err, shader.ErrMalformedShaderBinary)
	assert.Nil(t, r.Pipeline("bad"))

	// The failed spec was not retained: a corrected one under the same key is accepted.
	require.NoError(t, r.RegisterPipelines(triangleSpec("bad")))
	assert.NotNil(t, r.Pipeline("bad"))
}

func TestPipelinesReturnsCopy(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithPipelines(triangleSpec("triangle")))

	cache := r.Pipelines()
	delete(cache, "triangle")
	assert.NotNil(t, r.Pipeline("triangle"))
}

func TestPresentModeOptions(t *testing.T) {
	dev := devicetest.NewDevice()
	dev.Modes = []device.PresentMode{device.PresentModeFifo, device.PresentModeImmediate}

	r := newTestRenderer(t, dev)
	assert.Equal(t, device.PresentModeFifo, r.Config().PresentMode)
	r.Destroy()

	r = newTestRenderer(t, dev, WithFallbackPresentMode(device.PresentModeImmediate))
	assert.Equal(t, device.PresentModeImmediate, r.Config().PresentMode)
	r.Destroy()

	r = newTestRenderer(t, dev, WithPresentMode(device.PresentModeImmediate))
	assert.Equal(t, device.PresentModeImmediate, r.Config().PresentMode)
	assert.Equal(t, device.PresentModeImmediate, dev.SwapchainRequests()[2].PresentMode)
}

func TestRetireOldSwapchainOption(t *testing.T) {
	dev := devicetest.NewDevice()
	r := newTestRenderer(t, dev, WithRetireOldSwapchain(false))
	require.NoError(t, r.Resize(800, 600))

	reqs := dev.SwapchainRequests()
	require.Len(t, reqs, 2)
	assert.Zero(t, reqs[1].OldSwapchain)
}

func TestProfilerRecordsStages(t *testing.T) {
	dev := devicetest.NewDevice()
	p := profiler.NewProfiler()
	r := newTestRenderer(t, dev, WithProfiler(p), WithPipelines(triangleSpec("triangle")))
	assert.Same(t, p, r.Profiler())

	require.NoError(t, r.Resize(800, 600))

	stats, ok := p.Stats(StageRebuild)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Count)
	for _, stage := range []string{StageWaitIdle, StageNegotiate, StageFrameRing, StageRenderTarget, StagePipelines} {
		s, ok := p.Stats(stage)
		assert.True(t, ok, stage)
		assert.Equal(t, 2, s.Count, stage)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	dev := devicetest.NewDevice()
	provider := devicetest.NewProvider(dev)
	r, err := NewRenderer(provider, &fixedSize{w: 800, h: 600}, WithPipelines(triangleSpec("triangle")))
	require.NoError(t, err)

	r.Destroy()
	r.Destroy()

	assert.Zero(t, dev.Live().Total())
	assert.Zero(t, dev.BadDestroys())
	assert.Zero(t, provider.Destroyed())
	assert.Nil(t, r.FrameRing())

	assert.ErrorIs(t, r.Resize(800, 600), ErrRendererDestroyed)
	assert.ErrorIs(t, r.RegisterPipelines(triangleSpec("other")), ErrRendererDestroyed)
}

func TestParseBackendType(t *testing.T) {
	b, err := ParseBackendType("vulkan")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeVulkan, b)

	b, err = ParseBackendType("webgpu")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeWebGPU, b)
	assert.Equal(t, "webgpu", b.String())

	_, err = ParseBackendType("metal")
	assert.Error(t, err)
}

func TestNewProviderRejectsBadInput(t *testing.T) {
	_, err := NewProvider(BackendTypeVulkan, nil, ProviderConfig{})
	assert.Error(t, err)
}
