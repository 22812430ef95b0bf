package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/platform"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
	"github.com/spaghettifunk/framecore/engine/renderer/vulkan"
	"github.com/spaghettifunk/framecore/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// metrics are logged every this many ticks
const metricsInterval = 300

type Option func(*Engine)

// WithDevice makes the engine render with device instead of creating one from the config.
// The engine takes ownership of it.
func WithDevice(device renderer.Device) Option {
	return func(e *Engine) {
		e.device = device
	}
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig
	isRunning    atomic.Bool
	isSuspended  bool
	platform     *platform.Platform
	device       renderer.Device
	ring         *renderer.FrameRing
	registry     *renderer.Registry
	events       *core.EventBus
	input        *core.Input
	ctx          *Context
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.FrameMetrics
	lastTime     time.Duration
	ticks        uint64
}

func New(g *Game, opts ...Option) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	config := g.ApplicationConfig
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if config.LogLevel != "" {
		_ = core.SetLogLevel(config.LogLevel)
	}

	events := core.NewEventBus()
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		events:       events,
		input:        core.NewInput(events),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        config.StartWidth,
		height:       config.StartHeight,
	}
	for _, opt := range opts {
		opt(e)
	}

	// the vulkan backend renders into a window, the software one runs headless
	if e.device == nil && config.Renderer.Backend == renderer.BackendVulkan {
		p, err := platform.New(e.input)
		if err != nil {
			return nil, err
		}
		e.platform = p
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return fmt.Errorf("engine cannot be initialized in stage %d: %w", e.currentStage, core.ErrFrameState)
	}
	e.currentStage = EngineStageInitializing
	config := e.config

	e.events.Register(core.EventCodeApplicationQuit, e, e.onEvent)
	e.events.Register(core.EventCodeKeyPressed, e, e.onKey)
	e.events.Register(core.EventCodeResized, e, e.onResized)

	if e.platform != nil {
		if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
			return err
		}
		e.width, e.height = e.platform.FramebufferSize()
	}

	if err := e.createDevice(); err != nil {
		return err
	}

	ring, err := renderer.NewFrameRing(e.device, config.Renderer)
	if err != nil {
		return err
	}
	e.ring = ring
	registry, err := renderer.NewRegistry(e.device, config.Renderer.ArenaBlockCapacity)
	if err != nil {
		return err
	}
	e.registry = registry

	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		Workers:         config.Workers,
		AssetDir:        config.AssetDir,
		MaxTextureCount: config.MaxTextureCount,
		MaxMeshCount:    config.MaxMeshCount,
		FlipY:           config.FlipTextures,
	}, registry, ring)
	if err != nil {
		return err
	}
	if err := sm.Initialize(); err != nil {
		return err
	}

	e.ctx = &Context{
		Device:        e.device,
		Ring:          ring,
		Registry:      registry,
		SystemManager: sm,
		Events:        e.events,
		Input:         e.input,
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.ctx); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.ctx, e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with the %s device, %d frames in flight", e.device.Name(), config.Renderer.FramesInFlight)
	return nil
}

func (e *Engine) createDevice() error {
	if e.device != nil {
		return nil
	}
	config := e.config
	switch config.Renderer.Backend {
	case renderer.BackendVulkan:
		backend, err := vulkan.New(e.platform, config.Name, config.Renderer.Validation)
		if err != nil {
			return err
		}
		e.device = backend
	case renderer.BackendSoftware:
		e.device = software.New(software.WithSwapchain(e.width, e.height, config.Renderer.SwapchainImages))
	default:
		return fmt.Errorf("unknown renderer backend `%s`", config.Renderer.Backend)
	}
	return nil
}

// Stop makes Run return after the current tick. It is safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Run ticks until the application quits, ctx is done or the configured number of frames
// was rendered. Fatal errors stop the loop and are returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run in stage %d: %w", e.currentStage, core.ErrFrameState)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("context done, shutting down")
			e.isRunning.Store(false)
			continue
		default:
		}

		if e.platform != nil {
			if !e.platform.PumpMessages() {
				e.isRunning.Store(false)
				continue
			}
			if w, h, ok := e.platform.Resized(); ok {
				e.events.Fire(core.EventContext{Code: core.EventCodeResized, Sender: e.platform, Data: core.ResizeEvent{Width: w, Height: h}})
			}
			// a minimized window cannot be presented to, the tick is skipped
			if e.platform.IsMinimized() {
				e.isSuspended = true
			}
		}
		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			if e.platform == nil || !e.platform.IsMinimized() {
				e.isSuspended = false
			}
			continue
		}

		if err := e.tick(); err != nil {
			return err
		}

		if e.config.MaxFrames > 0 && e.ticks >= e.config.MaxFrames {
			core.LogInfo("rendered %d frames, shutting down", e.ticks)
			e.isRunning.Store(false)
		}
	}
	return nil
}

func (e *Engine) tick() error {
	frameStart := time.Now()

	// Update clock and get delta time.
	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := (currentTime - e.lastTime).Seconds()

	e.ctx.SystemManager.Update()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e.ctx, delta); err != nil {
			core.LogError("game update failed: %s", err)
			return err
		}
	}

	if err := e.handleFrameError(e.drawFrame(delta)); err != nil {
		return err
	}

	// NOTE: Input update/state copying should always be handled
	// after any input should be recorded; I.E. before this line.
	e.input.Update()

	e.metrics.Update(time.Since(frameStart))
	e.ticks++
	if e.ticks%metricsInterval == 0 {
		core.LogDebug("frame %d: %.1f fps, %.3f ms", e.ring.FrameNumber(), e.metrics.FPS(), e.metrics.FrameTime())
	}
	e.lastTime = currentTime
	return nil
}

// drawFrame runs one start_frame_capture / render / end_frame_capture sequence. Once the
// capture started it is always ended, so a failing Render still submits the frame.
func (e *Engine) drawFrame(delta float64) error {
	if err := e.ring.StartFrameCapture(); err != nil {
		return err
	}
	var renderErr error
	if e.gameInstance.FnRender != nil {
		renderErr = e.gameInstance.FnRender(e.ctx, e.ring.CurrentFrame(), delta)
	}
	return errors.Join(renderErr, e.ring.EndFrameCapture())
}

// handleFrameError recreates an out of date swapchain when the device can, logs recoverable
// errors and returns fatal ones.
func (e *Engine) handleFrameError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrSwapchainOutOfDate) {
		rerr := e.recreateSwapchain(e.width, e.height)
		if rerr == nil {
			return nil
		}
		err = errors.Join(err, rerr)
	}
	if core.IsFatal(err) {
		core.LogError("frame %d failed: %s", e.ring.FrameNumber(), err)
		return err
	}
	core.LogWarn("frame %d: %s", e.ring.FrameNumber(), err)
	return nil
}

func (e *Engine) recreateSwapchain(width, height uint32) error {
	recreator, ok := e.device.(renderer.SwapchainRecreator)
	if !ok {
		return fmt.Errorf("the %s device cannot recreate its swapchain", e.device.Name())
	}
	if err := e.device.WaitIdle(); err != nil {
		return err
	}
	if err := recreator.RecreateSwapchain(width, height); err != nil {
		return err
	}
	core.LogInfo("swapchain recreated at %dx%d", width, height)
	e.events.Fire(core.EventContext{Code: core.EventCodeSwapchainRecreated, Sender: e, Data: core.ResizeEvent{Width: width, Height: height}})
	return nil
}

// Shutdown waits for the device and releases everything in reverse creation order.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.ctx != nil {
		if e.gameInstance.FnShutdown != nil {
			if err := e.gameInstance.FnShutdown(e.ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := e.ctx.SystemManager.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		e.ctx = nil
	}
	if e.registry != nil {
		e.registry.Destroy()
		e.registry = nil
	}
	if e.ring != nil {
		if err := e.ring.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		e.ring = nil
	}
	if e.device != nil {
		if err := e.device.Destroy(); err != nil {
			errs = append(errs, err)
		}
		e.device = nil
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	e.events.Shutdown()
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// Ticks is the number of frames rendered by Run.
func (e *Engine) Ticks() uint64 {
	return e.ticks
}

func (e *Engine) onEvent(context core.EventContext) bool {
	if context.Code == core.EventCodeApplicationQuit {
		core.LogInfo("application quit received, shutting down")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event code `%d`", context.Code)
		return false
	}
	if ke.KeyCode == core.KeyEscape {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EventContext{Code: core.EventCodeApplicationQuit, Sender: e})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	re, ok := context.Data.(core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event code `%d`", context.Code)
		return false
	}
	// Check if different. If so, trigger a resize event.
	if re.Width == e.width && re.Height == e.height {
		return false
	}
	e.width, e.height = re.Width, re.Height
	core.LogDebug("window resize: %d, %d", re.Width, re.Height)

	// Handle minimization
	if re.Width == 0 || re.Height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application")
		e.isSuspended = false
	}
	if err := e.recreateSwapchain(re.Width, re.Height); err != nil {
		core.LogError("failed to recreate the swapchain: %s", err)
		return false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.ctx, re.Width, re.Height); err != nil {
			core.LogError(err.Error())
		}
	}
	return false
}
