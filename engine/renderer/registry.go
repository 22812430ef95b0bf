package renderer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/framecore/engine/containers"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type (
	BufferHandle = containers.Handle[metadata.Buffer]
	ImageHandle  = containers.Handle[metadata.Image]
	MeshHandle   = containers.Handle[metadata.Mesh]
)

// Registry owns every buffer, image and mesh created by producers. It is passed explicitly
// to whoever needs to create resources and, like the frame ring, is only used from the
// render thread.
type Registry struct {
	device Device

	Buffers *containers.Arena[metadata.Buffer]
	Images  *containers.Arena[metadata.Image]
	Meshes  *containers.Arena[metadata.Mesh]

	// index and vertex buffer of every mesh
	meshBuffers map[MeshHandle][2]BufferHandle
}

// NewRegistry creates the three arenas with blockCapacity slots per block.
func NewRegistry(device Device, blockCapacity int) (*Registry, error) {
	buffers, err := containers.NewArena[metadata.Buffer](containers.ResourceKindBuffer, blockCapacity)
	if err != nil {
		return nil, err
	}
	images, err := containers.NewArena[metadata.Image](containers.ResourceKindImage, blockCapacity)
	if err != nil {
		return nil, err
	}
	meshes, err := containers.NewArena[metadata.Mesh](containers.ResourceKindMesh, blockCapacity)
	if err != nil {
		return nil, err
	}
	return &Registry{
		device:  device,
		Buffers: buffers,
		Images:  images,
		Meshes:  meshes,

		meshBuffers: make(map[MeshHandle][2]BufferHandle),
	}, nil
}

func (r *Registry) Device() Device {
	return r.device
}

func anonymousLabel(kind containers.ResourceKind) string {
	return fmt.Sprintf("%s-%s", kind, uuid.NewString())
}

// CreateBuffer creates a device buffer and stores it. Buffers created with a host visible
// memory class come back persistently mapped.
func (r *Registry) CreateBuffer(size uint64, usage metadata.BufferUsage, memory metadata.MemoryClass) (BufferHandle, error) {
	return r.CreateNamedBuffer("", size, usage, memory)
}

// CreateNamedBuffer is CreateBuffer with a debug label. An empty label gets a random one.
func (r *Registry) CreateNamedBuffer(label string, size uint64, usage metadata.BufferUsage, memory metadata.MemoryClass) (BufferHandle, error) {
	if size == 0 {
		err := fmt.Errorf("cannot create an empty buffer: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return BufferHandle{}, err
	}
	buffer, err := r.device.CreateBuffer(size, usage, memory)
	if err != nil {
		err = fmt.Errorf("failed to create a %d bytes %s buffer: %w", size, memory, err)
		core.LogError(err.Error())
		return BufferHandle{}, err
	}
	if label == "" {
		label = anonymousLabel(containers.ResourceKindBuffer)
	}
	buffer.Label = label

	h, err := r.Buffers.Store(*buffer)
	if err != nil {
		r.device.DestroyBuffer(buffer)
		return BufferHandle{}, err
	}
	return h, nil
}

func (r *Registry) CreateImage(extent metadata.Extent3D, format metadata.ImageFormat, usage metadata.ImageUsage) (ImageHandle, error) {
	return r.CreateNamedImage("", extent, format, usage)
}

func (r *Registry) CreateNamedImage(label string, extent metadata.Extent3D, format metadata.ImageFormat, usage metadata.ImageUsage) (ImageHandle, error) {
	if extent.Depth == 0 {
		extent.Depth = 1
	}
	if extent.Texels() == 0 || format.PixelSize() == 0 {
		err := fmt.Errorf("cannot create a %dx%d image of format %d: %w", extent.Width, extent.Height, format, core.ErrResourceCreation)
		core.LogError(err.Error())
		return ImageHandle{}, err
	}
	image, err := r.device.CreateImage(extent, format, usage)
	if err != nil {
		err = fmt.Errorf("failed to create a %dx%d image: %w", extent.Width, extent.Height, err)
		core.LogError(err.Error())
		return ImageHandle{}, err
	}
	if label == "" {
		label = anonymousLabel(containers.ResourceKindImage)
	}
	image.Label = label

	h, err := r.Images.Store(*image)
	if err != nil {
		r.device.DestroyImage(image)
		return ImageHandle{}, err
	}
	return h, nil
}

func (r *Registry) Buffer(h BufferHandle) (*metadata.Buffer, error) {
	return r.Buffers.Get(h)
}

func (r *Registry) Image(h ImageHandle) (*metadata.Image, error) {
	return r.Images.Get(h)
}

func (r *Registry) Mesh(h MeshHandle) (*metadata.Mesh, error) {
	return r.Meshes.Get(h)
}

// ScheduleUpload queues data to be copied into dst at offset when frame next starts.
func (r *Registry) ScheduleUpload(data []byte, dst BufferHandle, offset uint64, frame *Frame) error {
	buffer, err := r.Buffers.Get(dst)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	return frame.Staging.ScheduleUpload(data, metadata.BufferView{Buffer: buffer, Offset: offset})
}

// ScheduleImageUpload queues tightly packed texels to be copied into a region of dst.
func (r *Registry) ScheduleImageUpload(data []byte, format metadata.ImageFormat, extent metadata.Extent3D, dst ImageHandle, offset metadata.Offset3D, frame *Frame) error {
	image, err := r.Images.Get(dst)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	return frame.Staging.ScheduleImageUpload(data, format, extent, image, offset)
}

// CreateMesh creates the index and vertex buffers of a mesh and schedules both uploads on
// frame. The mesh can be drawn from the first frame recorded after frame starts.
func (r *Registry) CreateMesh(name string, indices []uint32, vertices []metadata.Vertex, frame *Frame) (MeshHandle, error) {
	if len(indices) == 0 || len(vertices) == 0 {
		err := fmt.Errorf("mesh `%s` has no geometry: %w", name, core.ErrResourceCreation)
		core.LogError(err.Error())
		return MeshHandle{}, err
	}
	if name == "" {
		name = anonymousLabel(containers.ResourceKindMesh)
	}

	if err := frame.Staging.Reserve(2); err != nil {
		core.LogError(err.Error())
		return MeshHandle{}, err
	}
	vertexData := metadata.EncodeVertices(vertices)
	indexData := metadata.EncodeIndices(indices)

	vh, err := r.CreateNamedBuffer(name+"-vertices", uint64(len(vertexData)),
		metadata.BufferUsageStorage|metadata.BufferUsageTransferDst|metadata.BufferUsageDeviceAddress, metadata.MemoryClassGPUOnly)
	if err != nil {
		return MeshHandle{}, err
	}
	ih, err := r.CreateNamedBuffer(name+"-indices", uint64(len(indexData)),
		metadata.BufferUsageIndex|metadata.BufferUsageTransferDst, metadata.MemoryClassGPUOnly)
	if err != nil {
		_ = r.DestroyBuffer(vh)
		return MeshHandle{}, err
	}
	vertexBuffer, _ := r.Buffers.Get(vh)
	indexBuffer, _ := r.Buffers.Get(ih)

	mark := frame.Staging.Mark()
	abort := func(err error) (MeshHandle, error) {
		frame.Staging.Rewind(mark)
		_ = r.DestroyBuffer(ih)
		_ = r.DestroyBuffer(vh)
		return MeshHandle{}, err
	}
	if err := r.ScheduleUpload(vertexData, vh, 0, frame); err != nil {
		return abort(err)
	}
	if err := r.ScheduleUpload(indexData, ih, 0, frame); err != nil {
		return abort(err)
	}

	mesh := metadata.Mesh{
		Name:                name,
		IndexBuffer:         indexBuffer,
		VertexBuffer:        vertexBuffer,
		VertexBufferAddress: r.device.BufferDeviceAddress(vertexBuffer),
		IndexCount:          uint32(len(indices)),
		VertexCount:         uint32(len(vertices)),
	}
	mh, err := r.Meshes.Store(mesh)
	if err != nil {
		return abort(err)
	}
	r.meshBuffers[mh] = [2]BufferHandle{ih, vh}
	core.LogDebug("mesh `%s` created with %d vertices and %d indices", name, len(vertices), len(indices))
	return mh, nil
}

// DestroyBuffer releases a buffer. The caller guarantees no in-flight frame still uses it.
func (r *Registry) DestroyBuffer(h BufferHandle) error {
	buffer, err := r.Buffers.Get(h)
	if err != nil {
		return err
	}
	r.device.DestroyBuffer(buffer)
	return r.Buffers.Remove(h)
}

func (r *Registry) DestroyImage(h ImageHandle) error {
	image, err := r.Images.Get(h)
	if err != nil {
		return err
	}
	r.device.DestroyImage(image)
	return r.Images.Remove(h)
}

// DestroyMesh releases the mesh and both of its buffers.
func (r *Registry) DestroyMesh(h MeshHandle) error {
	if _, err := r.Meshes.Get(h); err != nil {
		return err
	}
	for _, bh := range r.meshBuffers[h] {
		if err := r.DestroyBuffer(bh); err != nil {
			core.LogWarn("buffer %s of mesh %s was already destroyed", bh, h)
		}
	}
	delete(r.meshBuffers, h)
	return r.Meshes.Remove(h)
}

// Destroy releases every resource still stored. Only call it once the device is idle.
func (r *Registry) Destroy() {
	var meshes []MeshHandle
	r.Meshes.Each(func(h MeshHandle, _ *metadata.Mesh) bool {
		meshes = append(meshes, h)
		return true
	})
	for _, h := range meshes {
		_ = r.Meshes.Remove(h)
	}
	clear(r.meshBuffers)

	var buffers []BufferHandle
	r.Buffers.Each(func(h BufferHandle, _ *metadata.Buffer) bool {
		buffers = append(buffers, h)
		return true
	})
	for _, h := range buffers {
		_ = r.DestroyBuffer(h)
	}

	var images []ImageHandle
	r.Images.Each(func(h ImageHandle, _ *metadata.Image) bool {
		images = append(images, h)
		return true
	})
	for _, h := range images {
		_ = r.DestroyImage(h)
	}
	core.LogDebug("registry destroyed %d meshes, %d buffers and %d images", len(meshes), len(buffers), len(images))
}
