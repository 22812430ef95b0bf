package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief Per-frame scene data written into each frame's uniform buffer.
 */
type SceneData struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewProjection mgl32.Mat4
	AmbientColor   mgl32.Vec4
	/** @brief w holds the sun power. */
	SunDirection mgl32.Vec4
	SunColor     mgl32.Vec4
}

/** @brief The size in bytes of an encoded SceneData. */
const SceneDataSize = 3*64 + 3*16

func NewSceneData() SceneData {
	return SceneData{
		View:           mgl32.Ident4(),
		Projection:     mgl32.Ident4(),
		ViewProjection: mgl32.Ident4(),
		AmbientColor:   mgl32.Vec4{0.1, 0.1, 0.1, 1},
		SunDirection:   mgl32.Vec4{0, 1, 0.5, 1},
		SunColor:       mgl32.Vec4{1, 1, 1, 1},
	}
}

// Bytes encodes the scene data as tightly packed little endian float32, column major.
func (s SceneData) Bytes() []byte {
	out := make([]byte, 0, SceneDataSize)
	out = appendFloats(out, s.View[:]...)
	out = appendFloats(out, s.Projection[:]...)
	out = appendFloats(out, s.ViewProjection[:]...)
	out = appendFloats(out, s.AmbientColor[:]...)
	out = appendFloats(out, s.SunDirection[:]...)
	out = appendFloats(out, s.SunColor[:]...)
	return out
}
