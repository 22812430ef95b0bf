package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

func TestGenerateQuad(t *testing.T) {
	vertices, indices := GenerateQuad(2, 4, mgl32.Vec4{1, 1, 1, 1})
	require.Len(t, vertices, 4)
	require.Len(t, indices, 6)
	assert.Equal(t, mgl32.Vec3{-1, -2, 0}, vertices[0].Position)
	assert.Equal(t, mgl32.Vec3{1, 2, 0}, vertices[2].Position)
	for _, idx := range indices {
		assert.Less(t, idx, uint32(len(vertices)))
	}
}

func TestGenerateCubeNormalsPointOutwards(t *testing.T) {
	vertices, indices := GenerateCube(1, mgl32.Vec4{1, 0, 0, 1})
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)
	for i, v := range vertices {
		// the normal and the position of a face vertex share the sign of the face axis
		assert.Greater(t, v.Normal.Dot(v.Position), float32(0), "vertex %d", i)
		assert.InDelta(t, 1, v.Normal.Len(), 1e-5)
	}
}

func TestGeometryDeduplicateVertices(t *testing.T) {
	a := metadata.Vertex{Position: mgl32.Vec3{0, 0, 0}}
	b := metadata.Vertex{Position: mgl32.Vec3{1, 0, 0}}
	c := metadata.Vertex{Position: mgl32.Vec3{0, 1, 0}}
	d := metadata.Vertex{Position: mgl32.Vec3{1, 1, 0}}

	vertices := []metadata.Vertex{a, b, c, c, b, d}
	indices := []uint32{0, 1, 2, 3, 4, 5}

	unique := GeometryDeduplicateVertices(vertices, indices)
	require.Len(t, unique, 4)
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3}, indices)
	assert.Equal(t, d, unique[3])
}

func TestTransformWorld(t *testing.T) {
	parent := TransformFromPosition(mgl32.Vec3{1, 0, 0})
	child := TransformCreate()
	child.Parent = parent
	child.SetScale(mgl32.Vec3{2, 2, 2})
	child.Rotate(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}))

	p := child.GetWorld().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, p.X(), 1e-5)
	assert.InDelta(t, 2, p.Y(), 1e-5)
	assert.InDelta(t, 0, p.Z(), 1e-5)
	assert.False(t, child.IsDirty)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(5, 0, 3))
	assert.Equal(t, float32(-1), Clamp(float32(-4), -1, 1))
	assert.Equal(t, uint8(2), Clamp(uint8(2), 0, 9))
}
