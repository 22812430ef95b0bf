package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/framecore/engine/math"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// maxPitch keeps the camera from flipping over the vertical axis.
var maxPitch = mgl32.DegToRad(89)

/**
 * @brief Represents a camera that can be used for
 * a variety of things, especially rendering.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position mgl32.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll) in radians.
	 * NOTE: Do not set this directly, use SetEulerRotation() instead
	 * so the view matrix is recalculated when needed.
	 */
	EulerRotation mgl32.Vec3
	/** @brief Vertical field of view in radians. */
	FOV  float32
	Near float32
	Far  float32
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use GetView() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix mgl32.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.FOV = mgl32.DegToRad(45)
	c.Near = 0.1
	c.Far = 1000
	c.IsDirty = false
	c.ViewMatrix = mgl32.Ident4()
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.IsDirty {
		rotation := mgl32.AnglesToQuat(c.EulerRotation.X(), c.EulerRotation.Y(), c.EulerRotation.Z(), mgl32.XYZ).Mat4()
		translation := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())
		c.ViewMatrix = translation.Mul4(rotation).Inv()
		c.IsDirty = false
	}
	return c.ViewMatrix
}

// Forward is the world space direction the camera looks at, its -Z axis.
func (c *Camera) Forward() mgl32.Vec3 {
	view := c.GetView()
	return mgl32.Vec3{-view[2], -view[6], -view[10]}.Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	view := c.GetView()
	return mgl32.Vec3{view[0], view[4], view[8]}.Normalize()
}

func (c *Camera) move(direction mgl32.Vec3, amount float32) {
	c.Position = c.Position.Add(direction.Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveForward(amount float32) {
	c.move(c.Forward(), amount)
}

func (c *Camera) MoveBackward(amount float32) {
	c.move(c.Forward(), -amount)
}

func (c *Camera) MoveLeft(amount float32) {
	c.move(c.Right(), -amount)
}

func (c *Camera) MoveRight(amount float32) {
	c.move(c.Right(), amount)
}

func (c *Camera) MoveUp(amount float32) {
	c.move(mgl32.Vec3{0, 1, 0}, amount)
}

func (c *Camera) MoveDown(amount float32) {
	c.move(mgl32.Vec3{0, 1, 0}, -amount)
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] = math.Clamp(c.EulerRotation[0]+amount, -maxPitch, maxPitch)
	c.IsDirty = true
}

// Projection is a right handed perspective projection with the Y axis pointing down, as
// clip space is in Vulkan.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	projection := mgl32.Perspective(c.FOV, aspect, c.Near, c.Far)
	projection[5] *= -1
	return projection
}

// SceneData returns scene with the matrices of the camera.
func (c *Camera) SceneData(scene metadata.SceneData, aspect float32) metadata.SceneData {
	scene.View = c.GetView()
	scene.Projection = c.Projection(aspect)
	scene.ViewProjection = scene.Projection.Mul4(scene.View)
	return scene
}
