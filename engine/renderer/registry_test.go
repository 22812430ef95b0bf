package renderer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/containers"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
)

func TestRegistryBuffersAcrossBlocks(t *testing.T) {
	dev := software.New()
	reg, err := renderer.NewRegistry(dev, 8)
	require.NoError(t, err)

	handles := make([]renderer.BufferHandle, 0, 9)
	for i := 0; i < 9; i++ {
		h, err := reg.CreateBuffer(uint64(16*(i+1)), metadata.BufferUsageUniform, metadata.MemoryClassCPUToGPU)
		require.NoError(t, err)
		assert.Equal(t, containers.ResourceKindBuffer, h.Kind())
		handles = append(handles, h)
	}
	assert.Equal(t, 2, reg.Buffers.Blocks())

	for i, h := range handles {
		b, err := reg.Buffer(h)
		require.NoError(t, err)
		assert.Equal(t, uint64(16*(i+1)), b.Size)
		assert.Len(t, b.Mapped, int(b.Size))
		assert.True(t, strings.HasPrefix(b.Label, "buffer-"))
	}

	require.NoError(t, reg.DestroyBuffer(handles[3]))
	_, err = reg.Buffer(handles[3])
	assert.ErrorIs(t, err, core.ErrStaleHandle)
	assert.ErrorIs(t, reg.DestroyBuffer(handles[3]), core.ErrStaleHandle)

	reg.Destroy()
	assert.Equal(t, 0, dev.Stats().LiveBuffers())
	assert.Empty(t, dev.Violations())
}

func TestRegistryRejectsEmptyResources(t *testing.T) {
	dev := software.New()
	reg, err := renderer.NewRegistry(dev, 4)
	require.NoError(t, err)

	_, err = reg.CreateBuffer(0, metadata.BufferUsageStorage, metadata.MemoryClassGPUOnly)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	_, err = reg.CreateImage(metadata.Extent3D{Width: 0, Height: 4}, metadata.ImageFormatRGBA8, metadata.ImageUsageSampled)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	ring, err := renderer.NewFrameRing(dev, testConfig(2))
	require.NoError(t, err)
	_, err = reg.CreateMesh("empty", nil, nil, ring.UploadFrame())
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	require.NoError(t, ring.Shutdown())
}

func TestRegistryDeviceFailuresAreResourceCreationErrors(t *testing.T) {
	dev := software.New(software.WithMaxBufferSize(64))
	reg, err := renderer.NewRegistry(dev, 4)
	require.NoError(t, err)

	_, err = reg.CreateBuffer(128, metadata.BufferUsageStorage, metadata.MemoryClassGPUOnly)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	assert.Equal(t, 0, reg.Buffers.Len())
}

func TestRegistryMeshOwnsItsBuffers(t *testing.T) {
	dev, ring, reg := newTestRing(t, 2)

	vertices := []metadata.Vertex{{}, {}, {}}
	mh, err := reg.CreateMesh("", []uint32{0, 1, 2}, vertices, ring.UploadFrame())
	require.NoError(t, err)
	assert.Equal(t, containers.ResourceKindMesh, mh.Kind())
	assert.Equal(t, 2, reg.Buffers.Len())

	mesh, err := reg.Mesh(mh)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mesh.Name, "mesh-"))
	assert.Equal(t, uint64(3*metadata.VertexSize), mesh.VertexBuffer.Size)
	assert.True(t, mesh.VertexBuffer.Usage.Has(metadata.BufferUsageDeviceAddress))
	assert.Equal(t, dev.BufferDeviceAddress(mesh.VertexBuffer), mesh.VertexBufferAddress)

	require.NoError(t, ring.StartFrameCapture())
	require.NoError(t, ring.EndFrameCapture())
	require.NoError(t, dev.WaitIdle())

	require.NoError(t, reg.DestroyMesh(mh))
	assert.Equal(t, 0, reg.Buffers.Len())
	require.NoError(t, ring.Shutdown())
	assert.Equal(t, 0, dev.Stats().LiveBuffers())
}

func TestRegistryMeshFailsWholeWhenStagingIsFull(t *testing.T) {
	dev := software.New(software.WithSwapchain(32, 32, 2))
	cfg := testConfig(2)
	cfg.StagingMaxBuffers = 1
	ring, err := renderer.NewFrameRing(dev, cfg)
	require.NoError(t, err)
	reg, err := renderer.NewRegistry(dev, 8)
	require.NoError(t, err)
	live := dev.Stats().LiveBuffers()

	frame := ring.UploadFrame()
	_, err = reg.CreateMesh("tri", []uint32{0, 1, 2}, []metadata.Vertex{{}, {}, {}}, frame)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, 0, reg.Buffers.Len())
	assert.Equal(t, 0, reg.Meshes.Len())
	assert.Equal(t, 0, frame.Staging.Pending())
	assert.Equal(t, live, dev.Stats().LiveBuffers())

	// the queue is still usable for an upload that fits
	dst, err := reg.CreateBuffer(8, metadata.BufferUsageTransferDst, metadata.MemoryClassGPUOnly)
	require.NoError(t, err)
	require.NoError(t, reg.ScheduleUpload([]byte("fits"), dst, 0, frame))
	assert.Equal(t, 1, frame.Staging.Pending())
	require.NoError(t, ring.Shutdown())
}
