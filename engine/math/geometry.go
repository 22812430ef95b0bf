package math

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// GeometryGenerateNormals writes face normals into every vertex of each triangle.
func GeometryGenerateNormals(vertices []metadata.Vertex, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)
		normal := edge1.Cross(edge2).Normalize()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

func VertexEqual(v0, v1 metadata.Vertex) bool {
	return v0.Position.ApproxEqualThreshold(v1.Position, FloatEpsilon) &&
		v0.Normal.ApproxEqualThreshold(v1.Normal, FloatEpsilon) &&
		v0.Color.ApproxEqualThreshold(v1.Color, FloatEpsilon) &&
		mgl32.FloatEqualThreshold(v0.UVX, v1.UVX, FloatEpsilon) &&
		mgl32.FloatEqualThreshold(v0.UVY, v1.UVY, FloatEpsilon)
}

// GeometryDeduplicateVertices merges equal vertices, rewriting indices in place.
func GeometryDeduplicateVertices(vertices []metadata.Vertex, indices []uint32) []metadata.Vertex {
	unique := make([]metadata.Vertex, 0, len(vertices))
	remap := make([]uint32, len(vertices))

	for v := range vertices {
		found := false
		for u := range unique {
			if VertexEqual(vertices[v], unique[u]) {
				remap[v] = uint32(u)
				found = true
				break
			}
		}
		if !found {
			remap[v] = uint32(len(unique))
			unique = append(unique, vertices[v])
		}
	}
	for i, idx := range indices {
		indices[i] = remap[idx]
	}

	core.LogDebug("geometry deduplicate vertices: removed %d vertices, orig/now %d/%d", len(vertices)-len(unique), len(vertices), len(unique))
	return unique
}

// GenerateQuad returns a width x height quad in the XY plane facing +Z, centered on the origin.
func GenerateQuad(width, height float32, color mgl32.Vec4) ([]metadata.Vertex, []uint32) {
	hw, hh := width*0.5, height*0.5
	vertices := []metadata.Vertex{
		{Position: mgl32.Vec3{-hw, -hh, 0}, UVX: 0, UVY: 1, Normal: mgl32.Vec3{0, 0, 1}, Color: color},
		{Position: mgl32.Vec3{hw, -hh, 0}, UVX: 1, UVY: 1, Normal: mgl32.Vec3{0, 0, 1}, Color: color},
		{Position: mgl32.Vec3{hw, hh, 0}, UVX: 1, UVY: 0, Normal: mgl32.Vec3{0, 0, 1}, Color: color},
		{Position: mgl32.Vec3{-hw, hh, 0}, UVX: 0, UVY: 0, Normal: mgl32.Vec3{0, 0, 1}, Color: color},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return vertices, indices
}

// GenerateCube returns an axis aligned cube with four vertices per face.
func GenerateCube(size float32, color mgl32.Vec4) ([]metadata.Vertex, []uint32) {
	h := size * 0.5
	faces := [6][4]mgl32.Vec3{
		{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}},     // front
		{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}, // back
		{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}, // left
		{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}},     // right
		{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}},     // top
		{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}, // bottom
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	vertices := make([]metadata.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for f, face := range faces {
		base := uint32(f * 4)
		for i, p := range face {
			vertices = append(vertices, metadata.Vertex{Position: p, UVX: uvs[i][0], UVY: uvs[i][1], Color: color})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	GeometryGenerateNormals(vertices, indices)
	return vertices, indices
}
