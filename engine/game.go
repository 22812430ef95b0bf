package engine

import (
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/systems"
)

// Context is what the engine hands to the game callbacks. It is only valid between
// FnInitialize and FnShutdown.
type Context struct {
	Device        renderer.Device
	Ring          *renderer.FrameRing
	Registry      *renderer.Registry
	SystemManager *systems.SystemManager
	Events        *core.EventBus
	Input         *core.Input
}

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func(ctx *Context) error

// Update runs before the frame starts, the scene data of ctx.Ring.CurrentFrame() can be
// written here.
type Update func(ctx *Context, deltaTime float64) error

// Render records into frame.Commands. The draw image is in the general layout and is copied
// onto the swapchain after Render returns.
type Render func(ctx *Context, frame *renderer.Frame, deltaTime float64) error
type OnResize func(ctx *Context, width uint32, height uint32) error
type Shutdown func(ctx *Context) error
