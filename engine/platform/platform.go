package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
	input  *core.Input

	startTime float64
	resized   bool
	width     int
	height    int
}

// New creates an uninitialized platform. Key presses of the window are forwarded to input.
func New(input *core.Input) (*Platform, error) {
	return &Platform{
		Window: nil,
		input:  input,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		core.LogError("glfw reports no Vulkan loader")
		return core.ErrResourceCreation
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window
	p.width, p.height = window.GetFramebufferSize()

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events and reports whether the application
// should keep running.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// IsMinimized reports whether the window cannot currently be presented to.
func (p *Platform) IsMinimized() bool {
	if p.Window.GetAttrib(glfw.Iconified) == glfw.True {
		return true
	}
	w, h := p.Window.GetFramebufferSize()
	return w == 0 || h == 0
}

// Resized returns the framebuffer size if it changed since the previous call.
func (p *Platform) Resized() (uint32, uint32, bool) {
	if !p.resized {
		return 0, 0, false
	}
	p.resized = false
	return uint32(p.width), uint32(p.height), true
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// Elapsed is the time in seconds since Startup.
func (p *Platform) Elapsed() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface creates the Vulkan surface of the window.
func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("vulkan surface creation failed: %s", err)
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

// GetInstanceProcAddress is the loader entry point handed to the Vulkan bindings.
func GetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.width, p.height = width, height
	p.resized = true
	core.LogDebug("framebuffer resized to %dx%d", width, height)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if p.input == nil || action == glfw.Repeat {
		return
	}
	p.input.ProcessKey(translateKey(key), action == glfw.Press)
}

func translateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KeyA + core.KeyCode(key-glfw.KeyA)
	case key == glfw.KeySpace:
		return core.KeySpace
	case key == glfw.KeyEscape:
		return core.KeyEscape
	case key == glfw.KeyEnter:
		return core.KeyEnter
	case key == glfw.KeyTab:
		return core.KeyTab
	case key == glfw.KeyBackspace:
		return core.KeyBackspace
	case key == glfw.KeyLeft:
		return core.KeyLeft
	case key == glfw.KeyRight:
		return core.KeyRight
	case key == glfw.KeyUp:
		return core.KeyUp
	case key == glfw.KeyDown:
		return core.KeyDown
	}
	return core.KeyUnknown
}
