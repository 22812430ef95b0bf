package testbed

import (
	"encoding/binary"
	"errors"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/framecore/engine"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/math"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/components"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
	"github.com/spaghettifunk/framecore/engine/systems"
)

const (
	backgroundShader = "shaders/background.spv"
	checkerTexture   = "textures/checker.png"

	// world matrix, vertex address, vertex count and time
	backgroundPushConstantSize = 80

	cameraSpeed = 5.0
	turnSpeed   = 1.5 // radians per second
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	camera *components.Camera
	cube   renderer.MeshHandle
	ground renderer.MeshHandle

	// the cube spins around its parent
	pivot         *math.Transform
	cubeTransform *math.Transform
	texture       *systems.Texture
	elapsed       float64

	width  uint32
	height uint32

	// nil when the device cannot build compute pipelines or the shader is missing
	background       *metadata.Pipeline
	backgroundLayout *metadata.DescriptorSetLayout
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(ctx *engine.Context) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.state()

	state.camera = components.NewCamera()
	state.camera.SetPosition(mgl32.Vec3{0, 2, 8})
	state.camera.Pitch(mgl32.DegToRad(-10))

	sm := ctx.SystemManager
	cube, err := sm.MeshSystem.CreateCube("test_cube", 1.5, mgl32.Vec4{1, 0.5, 0.1, 1})
	if err != nil {
		return err
	}
	state.cube = cube
	ground, err := sm.MeshSystem.CreateQuad("ground", 20, 20, mgl32.Vec4{0.2, 0.6, 0.2, 1})
	if err != nil {
		return err
	}
	state.ground = ground

	state.pivot = math.TransformCreate()
	state.cubeTransform = math.TransformFromPosition(mgl32.Vec3{3, 0.75, 0})
	state.cubeTransform.Parent = state.pivot

	state.texture = sm.TextureSystem.DefaultTexture
	if sm.AssetManager != nil {
		if _, ok := sm.AssetManager.Lookup(checkerTexture); ok {
			t, err := sm.TextureSystem.Acquire(checkerTexture, true)
			if err != nil {
				return err
			}
			state.texture = t
		}
	}

	if err := g.buildBackground(ctx); err != nil {
		core.LogWarn("background pipeline unavailable, clearing instead: %s", err)
	}
	sm.OnShaderModified = func(name string) {
		if name != backgroundShader {
			return
		}
		if err := g.buildBackground(ctx); err != nil {
			core.LogError("failed to rebuild the background pipeline: %s", err)
		}
	}
	return nil
}

// buildBackground (re)creates the compute pipeline that paints the draw image. It replaces
// the previous pipeline only once the new one was built.
func (g *TestGame) buildBackground(ctx *engine.Context) error {
	state := g.state()
	factory, ok := ctx.Device.(renderer.PipelineFactory)
	if !ok {
		return errors.New("the device cannot build compute pipelines")
	}
	am := ctx.SystemManager.AssetManager
	if am == nil {
		return errors.New("no asset directory")
	}
	res, err := am.LoadAsset(backgroundShader, nil)
	if err != nil {
		return err
	}
	defer am.UnloadAsset(res)

	if state.backgroundLayout == nil {
		var builder renderer.DescriptorLayoutBuilder
		if err := builder.AddBinding(0, metadata.DescriptorTypeStorageImage); err != nil {
			return err
		}
		if err := builder.AddBinding(1, metadata.DescriptorTypeCombinedImageSampler); err != nil {
			return err
		}
		layout, err := builder.Build(ctx.Device, metadata.ShaderStageCompute)
		if err != nil {
			return err
		}
		state.backgroundLayout = layout
	}

	layouts := []*metadata.DescriptorSetLayout{state.backgroundLayout, ctx.Ring.SceneLayout()}
	pipeline, err := factory.CreateComputePipeline("background", res.Data.([]byte), layouts, backgroundPushConstantSize)
	if err != nil {
		return err
	}
	if state.background != nil {
		// frames in flight may still dispatch the old pipeline
		if err := ctx.Device.WaitIdle(); err != nil {
			factory.DestroyPipeline(pipeline)
			return err
		}
		factory.DestroyPipeline(state.background)
	}
	state.background = pipeline
	core.LogInfo("background pipeline ready")
	return nil
}

func (g *TestGame) Update(ctx *engine.Context, deltaTime float64) error {
	state := g.state()
	state.elapsed += deltaTime
	dt := float32(deltaTime)

	in := ctx.Input
	if in.IsKeyDown(core.KeyW) {
		state.camera.MoveForward(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyS) {
		state.camera.MoveBackward(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyA) {
		state.camera.MoveLeft(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyD) {
		state.camera.MoveRight(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyQ) {
		state.camera.MoveUp(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyE) {
		state.camera.MoveDown(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyLeft) {
		state.camera.Yaw(turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeyRight) {
		state.camera.Yaw(-turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeyUp) {
		state.camera.Pitch(turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeyDown) {
		state.camera.Pitch(-turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeySpace) && !in.WasKeyDown(core.KeySpace) {
		core.LogInfo("camera at %v", state.camera.Position)
	}

	// Perform a small rotation on the cube pivot.
	state.pivot.Rotate(mgl32.QuatRotate(0.5*dt, mgl32.Vec3{0, 1, 0}))

	aspect := float32(1)
	if state.height > 0 {
		aspect = float32(state.width) / float32(state.height)
	}
	// the scene data of the frame about to start is copied to its uniform buffer
	frame := ctx.Ring.CurrentFrame()
	frame.Scene = state.camera.SceneData(frame.Scene, aspect)
	return nil
}

func (g *TestGame) Render(ctx *engine.Context, frame *renderer.Frame, deltaTime float64) error {
	state := g.state()
	drawImage := ctx.Ring.DrawImage()

	if state.background == nil {
		pulse := float32(0.5 + 0.5*gomath.Sin(state.elapsed))
		frame.Commands.ClearColorImage(drawImage, [4]float32{0.1, 0.1, 0.2 + 0.3*pulse, 1})
		return nil
	}

	texture, err := ctx.Registry.Image(state.texture.Image)
	if err != nil {
		return err
	}
	mesh, err := ctx.Registry.Mesh(state.cube)
	if err != nil {
		return err
	}

	set, err := frame.Descriptors.Allocate(state.backgroundLayout)
	if err != nil {
		return err
	}
	ctx.Device.WriteDescriptorImage(set, 0, metadata.DescriptorTypeStorageImage, drawImage, metadata.ImageLayoutGeneral)
	ctx.Device.WriteDescriptorImage(set, 1, metadata.DescriptorTypeCombinedImageSampler, texture, metadata.ImageLayoutShaderReadOnly)

	cmd := frame.Commands
	cmd.BindPipeline(state.background)
	cmd.BindDescriptorSet(state.background, 0, set)
	cmd.BindDescriptorSet(state.background, 1, frame.SceneSet)
	cmd.PushConstants(state.background, metadata.ShaderStageCompute, backgroundConstants(state.cubeTransform.GetWorld(), mesh, float32(state.elapsed)))

	extent := ctx.Ring.DrawExtent()
	cmd.Dispatch((extent.Width+15)/16, (extent.Height+15)/16, 1)
	return nil
}

func backgroundConstants(world mgl32.Mat4, mesh *metadata.Mesh, elapsed float32) []byte {
	out := metadata.MeshPushConstants{World: world, VertexAddress: mesh.VertexBufferAddress}.Bytes()
	out = binary.LittleEndian.AppendUint32(out, mesh.VertexCount)
	return binary.LittleEndian.AppendUint32(out, gomath.Float32bits(elapsed))
}

func (g *TestGame) OnResize(ctx *engine.Context, width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown(ctx *engine.Context) error {
	state := g.state()
	if state.texture != nil && state.texture != ctx.SystemManager.TextureSystem.DefaultTexture {
		ctx.SystemManager.TextureSystem.Release(state.texture.Name)
	}
	if factory, ok := ctx.Device.(renderer.PipelineFactory); ok && state.background != nil {
		factory.DestroyPipeline(state.background)
		state.background = nil
	}
	if state.backgroundLayout != nil {
		ctx.Device.DestroyDescriptorSetLayout(state.backgroundLayout)
		state.backgroundLayout = nil
	}
	return nil
}
