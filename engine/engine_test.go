package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
)

type testGame struct {
	updates  int
	renders  int
	resizes  int
	recreate int
	shutdown bool

	onUpdate func(ctx *Context, tick int) error
	onRender func(ctx *Context, frame *renderer.Frame) error
}

func newTestEngine(t *testing.T, frames uint64, tg *testGame) (*Engine, *software.Device) {
	t.Helper()
	config := DefaultApplicationConfig()
	config.AssetDir = ""
	config.MaxFrames = frames
	config.LogLevel = "error"
	config.Renderer.Backend = renderer.BackendSoftware
	config.Renderer.DrawWidth = 16
	config.Renderer.DrawHeight = 16
	config.Renderer.DescriptorSetCapacity = 16

	g := &Game{
		ApplicationConfig: config,
		FnInitialize: func(ctx *Context) error {
			ctx.Events.Register(core.EventCodeSwapchainRecreated, tg, func(core.EventContext) bool {
				tg.recreate++
				return false
			})
			return nil
		},
		FnUpdate: func(ctx *Context, deltaTime float64) error {
			tg.updates++
			if tg.onUpdate != nil {
				return tg.onUpdate(ctx, tg.updates)
			}
			return nil
		},
		FnRender: func(ctx *Context, frame *renderer.Frame, deltaTime float64) error {
			tg.renders++
			frame.Commands.ClearColorImage(ctx.Ring.DrawImage(), [4]float32{0, 0, 1, 1})
			if tg.onRender != nil {
				return tg.onRender(ctx, frame)
			}
			return nil
		},
		FnOnResize: func(ctx *Context, width uint32, height uint32) error {
			tg.resizes++
			return nil
		},
		FnShutdown: func(ctx *Context) error {
			tg.shutdown = true
			return nil
		},
	}

	dev := software.New(software.WithSwapchain(32, 32, 3))
	e, err := New(g, WithDevice(dev))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e, dev
}

func TestEngineRunsHeadless(t *testing.T) {
	tg := &testGame{}
	e, dev := newTestEngine(t, 5, tg)

	require.NoError(t, e.Run(context.Background()))
	assert.EqualValues(t, 5, e.Ticks())
	assert.Equal(t, 5, tg.updates)
	assert.Equal(t, 5, tg.renders)
	assert.Equal(t, 1, tg.resizes)

	require.NoError(t, e.Shutdown())
	assert.True(t, tg.shutdown)
	assert.Equal(t, 5, dev.Stats().Submissions)
	assert.Empty(t, dev.Violations())
}

func TestEngineRecreatesOutOfDateSwapchain(t *testing.T) {
	tg := &testGame{}
	e, dev := newTestEngine(t, 6, tg)
	tg.onUpdate = func(ctx *Context, tick int) error {
		if tick == 3 {
			dev.InvalidateSwapchain()
		}
		return nil
	}

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 1, tg.recreate)
	// the tick whose acquire failed recorded nothing
	assert.Equal(t, 5, tg.renders)
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 5, dev.Stats().Submissions)
}

func TestEngineReturnsFatalErrors(t *testing.T) {
	tg := &testGame{}
	e, dev := newTestEngine(t, 0, tg)
	dev.SetStalled(true)

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
	assert.ErrorIs(t, err, core.ErrSynchronizationTimeout)

	dev.SetStalled(false)
	require.NoError(t, e.Shutdown())
}

func TestEngineRenderErrorsAreNotFatal(t *testing.T) {
	tg := &testGame{
		onRender: func(*Context, *renderer.Frame) error { return errors.New("nothing to draw") },
	}
	e, dev := newTestEngine(t, 4, tg)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 4, tg.renders)
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 4, dev.Stats().Submissions)
}

func TestEngineQuitsOnEscape(t *testing.T) {
	tg := &testGame{}
	e, _ := newTestEngine(t, 100, tg)
	tg.onUpdate = func(ctx *Context, tick int) error {
		if tick == 2 {
			ctx.Input.ProcessKey(core.KeyEscape, true)
		}
		return nil
	}

	require.NoError(t, e.Run(context.Background()))
	assert.EqualValues(t, 2, e.Ticks())
	require.NoError(t, e.Shutdown())
}

func TestEngineStopsWithContext(t *testing.T) {
	tg := &testGame{}
	e, _ := newTestEngine(t, 0, tg)

	ctx, cancel := context.WithCancel(context.Background())
	tg.onUpdate = func(_ *Context, tick int) error {
		if tick == 3 {
			cancel()
		}
		return nil
	}
	require.NoError(t, e.Run(ctx))
	assert.EqualValues(t, 3, e.Ticks())
	require.NoError(t, e.Shutdown())
}

func TestEngineRunRequiresInitialize(t *testing.T) {
	e, err := New(&Game{ApplicationConfig: DefaultApplicationConfig()}, WithDevice(software.New()))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Run(context.Background()), core.ErrFrameState)
}
