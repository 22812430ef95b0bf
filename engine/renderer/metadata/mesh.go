package metadata

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief The vertex layout pulled by shaders through the vertex buffer device address.
 * UVs are split across the position and normal padding slots.
 */
type Vertex struct {
	Position mgl32.Vec3
	UVX      float32
	Normal   mgl32.Vec3
	UVY      float32
	Color    mgl32.Vec4
}

/** @brief The size in bytes of one encoded Vertex. */
const VertexSize = 48

// EncodeVertices serialises vertices in the std430 friendly layout of Vertex.
func EncodeVertices(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*VertexSize)
	for _, v := range vertices {
		out = appendFloats(out, v.Position[0], v.Position[1], v.Position[2], v.UVX)
		out = appendFloats(out, v.Normal[0], v.Normal[1], v.Normal[2], v.UVY)
		out = appendFloats(out, v.Color[0], v.Color[1], v.Color[2], v.Color[3])
	}
	return out
}

// EncodeIndices serialises 32 bit indices.
func EncodeIndices(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

func appendFloats(b []byte, values ...float32) []byte {
	for _, f := range values {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

/**
 * @brief A mesh living on the GPU.
 */
type Mesh struct {
	Name        string
	IndexBuffer *Buffer
	/** @brief Storage buffer read by address in the vertex shader. */
	VertexBuffer *Buffer
	/** @brief Device address of VertexBuffer. */
	VertexBufferAddress uint64
	IndexCount          uint32
	VertexCount         uint32
}

/** @brief Push constants used to draw a mesh: world matrix plus vertex buffer address. */
type MeshPushConstants struct {
	World         mgl32.Mat4
	VertexAddress uint64
}

func (p MeshPushConstants) Bytes() []byte {
	out := make([]byte, 0, 72)
	out = appendFloats(out, p.World[:]...)
	return binary.LittleEndian.AppendUint64(out, p.VertexAddress)
}
