package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
)

func beginCommands(t *testing.T, dev *software.Device) *software.CommandBuffer {
	t.Helper()
	cmd, err := dev.CreateCommandBuffer()
	require.NoError(t, err)
	require.NoError(t, cmd.Begin())
	return cmd.(*software.CommandBuffer)
}

func TestStagingQueueResolveThenRelease(t *testing.T) {
	dev := software.New()
	dst, err := dev.CreateBuffer(16, metadata.BufferUsageTransferDst, metadata.MemoryClassGPUOnly)
	require.NoError(t, err)

	sq := renderer.NewStagingQueue(dev, 0, 0)
	require.NoError(t, sq.ScheduleUpload([]byte{1, 2, 3, 4}, dst.View()))
	require.NoError(t, sq.ScheduleUpload([]byte{5, 6}, metadata.BufferView{Buffer: dst, Offset: 14}))
	assert.Equal(t, 2, sq.Pending())
	assert.Equal(t, 0, sq.InFlight())

	cmd := beginCommands(t, dev)
	assert.Equal(t, 2, sq.Resolve(cmd))
	assert.Equal(t, 0, sq.Pending())
	assert.Equal(t, 2, sq.InFlight())
	require.Len(t, cmd.Commands(), 2)
	for _, c := range cmd.Commands() {
		assert.Equal(t, software.CommandCopyBuffer, c.Kind)
		assert.Equal(t, metadata.MemoryClassCPUOnly, c.SrcBuffer.Buffer.Memory)
		assert.Equal(t, c.SrcBuffer.Size, c.DstBuffer.Size)
	}
	first := cmd.Commands()[0].SrcBuffer.Buffer

	// the first release of a slot has nothing to free
	assert.Equal(t, 0, sq.ReleaseRetired())
	assert.False(t, dev.IsDestroyed(first))

	// next occurrence: the previous buffers retire and are freed after the resolve
	assert.Equal(t, 0, sq.Resolve(beginCommands(t, dev)))
	assert.Equal(t, 2, sq.ReleaseRetired())
	assert.True(t, dev.IsDestroyed(first))
	assert.Equal(t, 0, sq.InFlight())
}

func TestStagingQueueRejectsOutOfBoundsUploads(t *testing.T) {
	dev := software.New()
	dst, err := dev.CreateBuffer(8, metadata.BufferUsageTransferDst, metadata.MemoryClassGPUOnly)
	require.NoError(t, err)

	sq := renderer.NewStagingQueue(dev, 0, 0)
	assert.Error(t, sq.ScheduleUpload(make([]byte, 4), metadata.BufferView{Buffer: dst, Offset: 6}))
	assert.Error(t, sq.ScheduleUpload(make([]byte, 9), dst.View()))
	assert.NoError(t, sq.ScheduleUpload(nil, dst.View()))
	assert.Equal(t, 0, sq.Pending())
	assert.Equal(t, 1, dev.Stats().BuffersCreated)
}

func TestStagingQueueCapacity(t *testing.T) {
	dev := software.New()
	dst, err := dev.CreateBuffer(64, metadata.BufferUsageTransferDst, metadata.MemoryClassGPUOnly)
	require.NoError(t, err)

	sq := renderer.NewStagingQueue(dev, 0, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, sq.ScheduleUpload([]byte{byte(i)}, metadata.BufferView{Buffer: dst, Offset: uint64(i)}))
	}
	created := dev.Stats().BuffersCreated
	err = sq.ScheduleUpload([]byte{9}, dst.View())
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, created, dev.Stats().BuffersCreated)

	// resolving frees the budget for the next occurrence
	sq.Resolve(beginCommands(t, dev))
	assert.NoError(t, sq.ScheduleUpload([]byte{9}, dst.View()))

	sq.Destroy()
	assert.Equal(t, 1, dev.Stats().LiveBuffers())
}

func TestStagingQueueImageUploadMatchesDestination(t *testing.T) {
	dev := software.New()
	img, err := dev.CreateImage(metadata.Extent3D{Width: 4, Height: 4, Depth: 1}, metadata.ImageFormatRGBA16F, metadata.ImageUsageTransferDst)
	require.NoError(t, err)

	sq := renderer.NewStagingQueue(dev, 0, 0)
	// RGBA8 texels sized for the region, but the image stores RGBA16F
	assert.Error(t, sq.ScheduleImageUpload(make([]byte, 4*4*4), metadata.ImageFormatRGBA8, metadata.Extent3D{Width: 4, Height: 4}, img, metadata.Offset3D{}))
	// a 4x4x3 block at z=5 of a single-slice image
	assert.Error(t, sq.ScheduleImageUpload(make([]byte, 4*4*3*8), metadata.ImageFormatRGBA16F, metadata.Extent3D{Width: 4, Height: 4, Depth: 3}, img, metadata.Offset3D{Z: 5}))
	assert.Error(t, sq.ScheduleImageUpload(make([]byte, 4*4*8), metadata.ImageFormatRGBA16F, metadata.Extent3D{Width: 4, Height: 4}, img, metadata.Offset3D{Z: 1}))
	assert.Equal(t, 0, sq.Pending())
	assert.Equal(t, 0, dev.Stats().BuffersCreated)

	volume, err := dev.CreateImage(metadata.Extent3D{Width: 2, Height: 2, Depth: 4}, metadata.ImageFormatR8, metadata.ImageUsageTransferDst)
	require.NoError(t, err)
	assert.NoError(t, sq.ScheduleImageUpload(make([]byte, 2*2*2), metadata.ImageFormatR8, metadata.Extent3D{Width: 2, Height: 2, Depth: 2}, volume, metadata.Offset3D{Z: 2}))
	assert.Error(t, sq.ScheduleImageUpload(make([]byte, 2*2*2), metadata.ImageFormatR8, metadata.Extent3D{Width: 2, Height: 2, Depth: 2}, volume, metadata.Offset3D{Z: 3}))
	assert.Equal(t, 1, sq.Pending())
}

func TestStagingQueueReserveAndRewind(t *testing.T) {
	dev := software.New()
	dst, err := dev.CreateBuffer(16, metadata.BufferUsageTransferDst, metadata.MemoryClassGPUOnly)
	require.NoError(t, err)

	sq := renderer.NewStagingQueue(dev, 2, 0)
	require.NoError(t, sq.Reserve(2))
	assert.ErrorIs(t, sq.Reserve(3), core.ErrCapacityExceeded)

	require.NoError(t, sq.ScheduleUpload([]byte{1}, dst.View()))
	mark := sq.Mark()
	require.NoError(t, sq.ScheduleUpload([]byte{2}, metadata.BufferView{Buffer: dst, Offset: 1}))
	assert.ErrorIs(t, sq.Reserve(1), core.ErrCapacityExceeded)

	sq.Rewind(mark)
	assert.Equal(t, 1, sq.Pending())
	assert.Equal(t, 2, dev.Stats().LiveBuffers())
	assert.NoError(t, sq.Reserve(1))

	cmd := beginCommands(t, dev)
	assert.Equal(t, 1, sq.Resolve(cmd))
	require.Len(t, cmd.Commands(), 1)
	assert.Equal(t, uint64(0), cmd.Commands()[0].DstBuffer.Offset)
}

func TestStagingQueueImageUploadSize(t *testing.T) {
	dev := software.New()
	img, err := dev.CreateImage(metadata.Extent3D{Width: 8, Height: 8, Depth: 1}, metadata.ImageFormatRGBA16F, metadata.ImageUsageTransferDst)
	require.NoError(t, err)

	sq := renderer.NewStagingQueue(dev, 0, 0)
	region := metadata.Extent3D{Width: 2, Height: 3}
	// 8 bytes per texel
	assert.Error(t, sq.ScheduleImageUpload(make([]byte, 2*3*4), metadata.ImageFormatRGBA16F, region, img, metadata.Offset3D{}))
	assert.Error(t, sq.ScheduleImageUpload(make([]byte, 2*3*8), metadata.ImageFormatRGBA16F, region, img, metadata.Offset3D{X: 7}))
	require.NoError(t, sq.ScheduleImageUpload(make([]byte, 2*3*8), metadata.ImageFormatRGBA16F, region, img, metadata.Offset3D{X: 6, Y: 5}))

	cmd := beginCommands(t, dev)
	require.Equal(t, 1, sq.Resolve(cmd))
	copies := cmd.Commands()
	require.Len(t, copies, 3)
	assert.Equal(t, software.CommandCopyBufferToImage, copies[1].Kind)
	assert.Equal(t, uint32(1), copies[1].DstExtent.Depth)
	assert.Equal(t, metadata.ImageLayoutShaderReadOnly, img.Layout)
}
