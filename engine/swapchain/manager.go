package swapchain

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/gpuerr"
	"github.com/Carmen-Shannon/oxy-present/engine/surface"
)

var (
	// ErrSwapchainCreationFailed is returned when the driver rejects the swapchain, its image
	// enumeration or one of its views.
	ErrSwapchainCreationFailed = gpuerr.New(gpuerr.ResourceCreationFailure, "swapchain: creation failed")

	// ErrSurfaceLost is returned when the driver reports the surface lost. The surface must be
	// re-acquired by its provider before another frame ring can be created.
	ErrSurfaceLost = gpuerr.New(gpuerr.SurfaceInvalidated, "swapchain: surface lost")
)

// manager is the implementation of the Manager interface.
type manager struct {
	mu         sync.Mutex
	generation uint64
	retireOld  bool
	logger     *slog.Logger
}

// Manager creates, destroys and recreates frame rings.
//
// The Manager never waits on the GPU. Before Recreate or Destroy the caller must guarantee that
// no in-flight command references the old ring, for example with device.Device.WaitIdle.
type Manager interface {
	// Create builds a new frame ring from a negotiated config.
	//
	// Parameters:
	//   - target: the device context
	//   - cfg: the negotiated presentation config
	//
	// Returns:
	//   - *FrameRing: the new ring
	//   - error: ErrSurfaceLost or ErrSwapchainCreationFailed; nothing is left allocated on error
	Create(target device.Target, cfg surface.PresentationConfig) (*FrameRing, error)

	// Destroy releases the ring's views and then its swapchain. Calling it on a released or
	// nil ring does nothing.
	//
	// Parameters:
	//   - target: the device context the ring was created with
	//   - ring: the ring to destroy
	Destroy(target device.Target, ring *FrameRing)

	// Recreate releases old's views, creates a new ring from cfg, then destroys old's swapchain.
	// old is released whether or not the new ring could be created.
	//
	// Parameters:
	//   - target: the device context
	//   - old: the ring being replaced, may be nil
	//   - cfg: the newly negotiated config
	//
	// Returns:
	//   - *FrameRing: the new ring
	//   - error: ErrSurfaceLost or ErrSwapchainCreationFailed
	Recreate(target device.Target, old *FrameRing, cfg surface.PresentationConfig) (*FrameRing, error)
}

var _ Manager = &manager{}

// NewManager creates a frame ring Manager.
//
// Parameters:
//   - opts: a variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the configured manager
func NewManager(opts ...ManagerBuilderOption) Manager {
	m := &manager{
		retireOld: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = common.ComponentLogger("swapchain")
	}
	return m
}

func (m *manager) Create(target device.Target, cfg surface.PresentationConfig) (*FrameRing, error) {
	return m.create(target, cfg, 0)
}

func (m *manager) Destroy(target device.Target, ring *FrameRing) {
	if ring == nil || ring.released {
		return
	}
	m.releaseViews(target.Device, ring)
	if ring.swapchain != 0 {
		target.Device.DestroySwapchain(ring.swapchain)
		ring.swapchain = 0
	}
	ring.released = true
	m.logger.Debug("frame ring destroyed", "generation", ring.generation)
}

func (m *manager) Recreate(target device.Target, old *FrameRing, cfg surface.PresentationConfig) (*FrameRing, error) {
	if old == nil || old.released {
		return m.create(target, cfg, 0)
	}

	// Views go first; the images they reference are invalidated once the old swapchain is retired.
	m.releaseViews(target.Device, old)

	// Without retirement the surface must be free before the new swapchain is created.
	if !m.retireOld && old.swapchain != 0 {
		target.Device.DestroySwapchain(old.swapchain)
		old.swapchain = 0
	}
	retired := old.swapchain
	ring, err := m.create(target, cfg, retired)

	if retired != 0 {
		target.Device.DestroySwapchain(retired)
		old.swapchain = 0
	}
	old.released = true

	if err != nil {
		return nil, err
	}
	m.logger.Debug("frame ring recreated", "from", old.generation, "to", ring.generation)
	return ring, nil
}

func (m *manager) create(target device.Target, cfg surface.PresentationConfig, oldSwapchain device.SwapchainHandle) (*FrameRing, error) {
	dev := target.Device
	if cfg.Extent.IsZero() {
		return nil, fmt.Errorf("%w: zero extent %s", ErrSwapchainCreationFailed, cfg.Extent)
	}

	sc, err := dev.CreateSwapchain(device.SwapchainDescriptor{
		Surface:        target.Surface,
		MinImageCount:  cfg.ImageCount,
		Format:         cfg.Format,
		ColorSpace:     cfg.ColorSpace,
		Extent:         cfg.Extent,
		ArrayLayers:    1,
		Usage:          device.ImageUsageColorAttachment,
		SharingMode:    device.SharingModeExclusive,
		QueueFamilies:  []uint32{target.QueueFamily},
		PreTransform:   cfg.Transform,
		CompositeAlpha: device.CompositeAlphaOpaque,
		PresentMode:    cfg.PresentMode,
		Clipped:        true,
		OldSwapchain:   oldSwapchain,
	})
	if err != nil {
		return nil, classify(err)
	}

	images, err := dev.SwapchainImages(sc)
	if err != nil {
		dev.DestroySwapchain(sc)
		return nil, fmt.Errorf("%w: images: %w", ErrSwapchainCreationFailed, err)
	}

	views := make([]device.ImageViewHandle, 0, len(images))
	for i, img := range images {
		v, err := dev.CreateImageView(device.ImageViewDescriptor{
			Image:    img,
			ViewType: device.ImageViewType2D,
			Format:   cfg.Format,
			Components: device.ComponentMapping{
				R: device.ComponentSwizzleIdentity,
				G: device.ComponentSwizzleIdentity,
				B: device.ComponentSwizzleIdentity,
				A: device.ComponentSwizzleIdentity,
			},
			SubresourceRange: device.SubresourceRange{
				Aspect:     device.ImageAspectColor,
				LevelCount: 1,
				LayerCount: 1,
			},
		})
		if err != nil {
			for _, made := range views {
				dev.DestroyImageView(made)
			}
			dev.DestroySwapchain(sc)
			return nil, fmt.Errorf("%w: view %d: %w", ErrSwapchainCreationFailed, i, err)
		}
		views = append(views, v)
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if uint32(len(images)) != cfg.ImageCount {
		m.logger.Debug("driver returned a different image count", "requested", cfg.ImageCount, "actual", len(images))
	}
	m.logger.Debug("frame ring created", "generation", gen, "images", len(images), "config", cfg)

	return &FrameRing{
		config:     cfg,
		swapchain:  sc,
		images:     images,
		views:      views,
		generation: gen,
	}, nil
}

// releaseViews destroys every view of ring and forgets them.
func (m *manager) releaseViews(dev device.Device, ring *FrameRing) {
	for _, v := range ring.views {
		dev.DestroyImageView(v)
	}
	ring.views = nil
}

// classify maps a swapchain creation error to the stage sentinel matching its recovery path.
func classify(err error) error {
	if errors.Is(err, device.ErrSurfaceLost) || errors.Is(err, device.ErrNativeWindowInUse) {
		return fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	return fmt.Errorf("%w: %w", ErrSwapchainCreationFailed, err)
}
