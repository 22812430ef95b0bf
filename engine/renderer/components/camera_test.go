package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "want %v, got %v", want, got)
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	assertVec3(t, mgl32.Vec3{0, 0, -1}, c.Forward())
	assertVec3(t, mgl32.Vec3{1, 0, 0}, c.Right())
}

func TestCameraMovement(t *testing.T) {
	c := NewCamera()
	c.MoveForward(2)
	c.MoveRight(1)
	c.MoveUp(3)
	assertVec3(t, mgl32.Vec3{1, 3, -2}, c.Position)

	// the view moves world points the opposite way
	p := c.GetView().Mul4x1(mgl32.Vec4{1, 3, -2, 1})
	assertVec3(t, mgl32.Vec3{}, p.Vec3())
}

func TestCameraYaw(t *testing.T) {
	c := NewCamera()
	c.Yaw(mgl32.DegToRad(90))
	// a positive yaw turns the camera to the left
	assertVec3(t, mgl32.Vec3{-1, 0, 0}, c.Forward())
	c.MoveForward(1)
	assertVec3(t, mgl32.Vec3{-1, 0, 0}, c.Position)
}

func TestCameraPitchIsClamped(t *testing.T) {
	c := NewCamera()
	c.Pitch(mgl32.DegToRad(200))
	assert.InDelta(t, mgl32.DegToRad(89), c.EulerRotation.X(), 1e-6)
	c.Pitch(mgl32.DegToRad(-400))
	assert.InDelta(t, mgl32.DegToRad(-89), c.EulerRotation.X(), 1e-6)
}

func TestCameraSceneData(t *testing.T) {
	c := NewCamera()
	c.SetPosition(mgl32.Vec3{0, 0, 5})
	scene := c.SceneData(metadata.NewSceneData(), 16.0/9.0)

	assert.Less(t, scene.Projection[5], float32(0))
	// the origin lands in front of the camera, in the middle of clip space
	clip := scene.ViewProjection.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)
	assert.Greater(t, clip.W(), float32(0))
	assert.Equal(t, metadata.NewSceneData().SunColor, scene.SunColor)
}
