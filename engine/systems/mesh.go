package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/math"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type MeshSystemConfig struct {
	/** @brief The maximum number of named meshes. */
	MaxMeshCount uint32
}

// MeshSystem names the meshes of the registry. Meshes are uploaded on the next frame to
// start and destroyed once no frame in flight can draw them.
type MeshSystem struct {
	Config   *MeshSystemConfig
	meshes   map[string]renderer.MeshHandle
	retired  retireQueue
	registry *renderer.Registry
	ring     *renderer.FrameRing
}

func NewMeshSystem(config *MeshSystemConfig, registry *renderer.Registry, ring *renderer.FrameRing) (*MeshSystem, error) {
	if config.MaxMeshCount == 0 {
		err := fmt.Errorf("func NewMeshSystem - config.MaxMeshCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &MeshSystem{
		Config:   config,
		meshes:   make(map[string]renderer.MeshHandle),
		retired:  retireQueue{ring: ring},
		registry: registry,
		ring:     ring,
	}, nil
}

// Create uploads a mesh under name. Staging limits surface as core.ErrCapacityExceeded, in
// which case the call can be repeated on a later frame.
func (ms *MeshSystem) Create(name string, indices []uint32, vertices []metadata.Vertex) (renderer.MeshHandle, error) {
	if _, ok := ms.meshes[name]; ok {
		err := fmt.Errorf("mesh %s already exists: %w", name, core.ErrResourceCreation)
		core.LogError(err.Error())
		return renderer.MeshHandle{}, err
	}
	if uint32(len(ms.meshes)) >= ms.Config.MaxMeshCount {
		err := fmt.Errorf("cannot create mesh %s, %d meshes loaded: %w", name, len(ms.meshes), core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return renderer.MeshHandle{}, err
	}
	h, err := ms.registry.CreateMesh(name, indices, vertices, ms.ring.UploadFrame())
	if err != nil {
		return renderer.MeshHandle{}, err
	}
	ms.meshes[name] = h
	return h, nil
}

func (ms *MeshSystem) CreateQuad(name string, width, height float32, color mgl32.Vec4) (renderer.MeshHandle, error) {
	vertices, indices := math.GenerateQuad(width, height, color)
	return ms.Create(name, indices, vertices)
}

func (ms *MeshSystem) CreateCube(name string, size float32, color mgl32.Vec4) (renderer.MeshHandle, error) {
	vertices, indices := math.GenerateCube(size, color)
	return ms.Create(name, indices, vertices)
}

func (ms *MeshSystem) Get(name string) (renderer.MeshHandle, bool) {
	h, ok := ms.meshes[name]
	return h, ok
}

// Destroy forgets name right away and releases its buffers once it is safe.
func (ms *MeshSystem) Destroy(name string) {
	h, ok := ms.meshes[name]
	if !ok {
		core.LogWarn("mesh system Destroy called for unknown mesh %s", name)
		return
	}
	delete(ms.meshes, name)
	ms.retired.retire(func() {
		if err := ms.registry.DestroyMesh(h); err != nil {
			core.LogWarn("retired mesh %s: %s", name, err)
		}
	})
}

func (ms *MeshSystem) Update() {
	ms.retired.flush()
}

// Shutdown destroys every mesh. Only call it once the device is idle.
func (ms *MeshSystem) Shutdown() error {
	ms.retired.drain()
	for name, h := range ms.meshes {
		if err := ms.registry.DestroyMesh(h); err != nil {
			core.LogWarn("mesh %s: %s", name, err)
		}
	}
	ms.meshes = map[string]renderer.MeshHandle{}
	return nil
}
