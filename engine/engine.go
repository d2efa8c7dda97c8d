package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-present/common"
	"github.com/Carmen-Shannon/oxy-present/engine/config"
	"github.com/Carmen-Shannon/oxy-present/engine/device"
	"github.com/Carmen-Shannon/oxy-present/engine/profiler"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer"
	"github.com/Carmen-Shannon/oxy-present/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-present/engine/window"
)

// engine implements the Engine interface.
// Owns the window, the device provider and the renderer, and coordinates the tick goroutine
// with the window's message loop.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	closeOnce   sync.Once

	cfg          config.Config
	window       window.Window
	provider     device.Provider
	renderer     renderer.Renderer
	specs        []pipeline.Spec
	rendererOpts []renderer.RendererBuilderOption
	logger       *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	updateCallback func()
}

// Engine is the main entry point for the engine.
// It keeps the presentation resources current while the window's message loop runs.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Provider returns the device provider the renderer was built on.
	//
	// Returns:
	//   - device.Provider: the provider
	Provider() device.Provider

	// Renderer returns the renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick on the tick goroutine.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetUpdateCallback registers the function called each message loop iteration on the
	// window's thread. GPU work belongs here.
	//
	// Parameters:
	//   - callback: function to call each iteration
	SetUpdateCallback(callback func())

	// Run pumps window messages until the window closes or Quit is called.
	Run()

	// Quit stops the message loop and the tick goroutine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Close destroys the renderer, then the provider, then the window.
	// Safe to call multiple times; subsequent calls are no-ops.
	//
	// Returns:
	//   - error: error if the window failed to close
	Close() error
}

// NewEngine creates a new Engine with the provided options.
// A window and provider not supplied through options are created from the configuration
// (config.Default unless WithConfig is given). The renderer is always built here.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the window, provider or renderer could not be created; anything the
//     engine created is released first
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		cfg:             config.Default(),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.logger == nil {
		e.logger = common.ComponentLogger("engine")
	}
	if e.cfg.Renderer.Profile {
		e.profilingEnabled = true
	}

	var ownWindow, ownProvider bool
	if e.window == nil {
		w, err := window.NewWindow(e.cfg.WindowOptions()...)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.window = w
		ownWindow = true
	}
	if e.provider == nil {
		p, err := renderer.NewProvider(e.cfg.Backend(), e.window, e.cfg.ProviderConfig(nil))
		if err != nil {
			if ownWindow {
				_ = e.window.Close()
			}
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.provider = p
		ownProvider = true
	}

	opts := e.cfg.RendererOptions()
	opts = append(opts, renderer.WithPipelines(e.specs...))
	if e.profilingEnabled {
		opts = append(opts, renderer.WithProfiler(e.profiler))
	}
	opts = append(opts, e.rendererOpts...)
	r, err := renderer.NewRenderer(e.provider, e.window, opts...)
	if err != nil {
		if ownProvider {
			e.provider.Destroy()
		}
		if ownWindow {
			_ = e.window.Close()
		}
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.renderer = r
	e.logger.Info("engine ready", "device", e.provider.Name(), "generation", r.Generation())

	e.window.SetResizeCallback(e.resize)
	e.window.SetUpdateCallback(e.update)
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Provider() device.Provider {
	return e.provider
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

// resize forwards framebuffer size changes to the renderer. Failures are logged; the renderer
// has already released its resources and the next resize retries.
func (e *engine) resize(width, height int) {
	if err := e.renderer.Resize(width, height); err != nil {
		e.logger.Error("rebuild after resize failed", "width", width, "height", height, "err", err)
	}
}

// update runs once per message loop iteration.
func (e *engine) update() {
	select {
	case <-e.quitChannel:
		e.window.RequestClose()
		return
	default:
	}
	if e.updateCallback != nil {
		e.updateCallback()
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.handleEngine()

	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
}

// Quit signals the message loop and tick goroutine to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetUpdateCallback(callback func()) {
	e.updateCallback = callback
}

func (e *engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.signalQuit()
		e.wg.Wait()
		e.renderer.Destroy()
		e.provider.Destroy()
		if cerr := e.window.Close(); cerr != nil {
			err = fmt.Errorf("engine: %w", cerr)
		}
	})
	return err
}
