package math

import "github.com/go-gl/mathgl/mgl32"

func TransformCreate() *Transform {
	return TransformFromPositionRotationScale(mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TransformFromPosition(position mgl32.Vec3) *Transform {
	return TransformFromPositionRotationScale(position, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TransformFromPositionRotationScale(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) *Transform {
	t := &Transform{Local: mgl32.Ident4()}
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

func (t *Transform) SetPosition(position mgl32.Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) Translate(translation mgl32.Vec3) {
	t.Position = t.Position.Add(translation)
	t.IsDirty = true
}

func (t *Transform) SetRotation(rotation mgl32.Quat) {
	t.Rotation = rotation
	t.IsDirty = true
}

// Rotate applies rotation after the current one.
func (t *Transform) Rotate(rotation mgl32.Quat) {
	t.Rotation = rotation.Mul(t.Rotation).Normalize()
	t.IsDirty = true
}

func (t *Transform) SetScale(scale mgl32.Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// GetLocal returns scale, then rotation, then translation as a single matrix.
func (t *Transform) GetLocal() mgl32.Mat4 {
	if t == nil {
		return mgl32.Ident4()
	}
	if t.IsDirty {
		t.Local = mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
			Mul4(t.Rotation.Mat4()).
			Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
		t.IsDirty = false
	}
	return t.Local
}

func (t *Transform) GetWorld() mgl32.Mat4 {
	if t == nil {
		return mgl32.Ident4()
	}
	l := t.GetLocal()
	if t.Parent != nil {
		return t.Parent.GetWorld().Mul4(l)
	}
	return l
}
