package renderer

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// StagingRecord describes one pending host to device copy. Exactly one of DstBuffer and
// DstImage is set.
type StagingRecord struct {
	Src       metadata.BufferView
	DstBuffer metadata.BufferView
	DstImage  *metadata.Image
	DstOffset metadata.Offset3D
	DstExtent metadata.Extent3D
}

func (r StagingRecord) IsImage() bool {
	return r.DstImage != nil
}

// StagingQueue is the upload queue of one frame slot. Uploads are copied into fresh
// CPU-visible buffers when scheduled, turned into copy commands on the next Resolve of the
// slot and their buffers are destroyed on the resolve after that, once the slot's fence
// proved the copies completed.
type StagingQueue struct {
	device     Device
	maxBuffers int
	maxRecords int

	buffers  []*metadata.Buffer
	records  []StagingRecord
	toClean  []*metadata.Buffer
	retiring []*metadata.Buffer
}

// NewStagingQueue creates a queue bounded to maxBuffers staging buffers and maxRecords
// records per occurrence; zero means unbounded.
func NewStagingQueue(device Device, maxBuffers, maxRecords int) *StagingQueue {
	return &StagingQueue{
		device:     device,
		maxBuffers: maxBuffers,
		maxRecords: maxRecords,
	}
}

// Reserve reports whether n more uploads fit in this occurrence, without scheduling anything.
// Callers that need several uploads to land together check it first.
func (sq *StagingQueue) Reserve(n int) error {
	if sq.maxBuffers > 0 && len(sq.buffers)+n > sq.maxBuffers {
		return fmt.Errorf("%d staging buffers pending in this frame, %d more do not fit: %w", len(sq.buffers), n, core.ErrCapacityExceeded)
	}
	if sq.maxRecords > 0 && len(sq.records)+n > sq.maxRecords {
		return fmt.Errorf("%d staging records pending in this frame, %d more do not fit: %w", len(sq.records), n, core.ErrCapacityExceeded)
	}
	return nil
}

// StagingMark is a position in a StagingQueue, see Mark and Rewind.
type StagingMark struct {
	buffers int
	records int
}

// Mark remembers the current end of the pending lists.
func (sq *StagingQueue) Mark() StagingMark {
	return StagingMark{buffers: len(sq.buffers), records: len(sq.records)}
}

// Rewind drops every upload scheduled after m and destroys their staging buffers. Only valid
// before the next Resolve, when nothing recorded references those buffers yet.
func (sq *StagingQueue) Rewind(m StagingMark) {
	if m.buffers > len(sq.buffers) || m.records > len(sq.records) {
		return
	}
	for _, b := range sq.buffers[m.buffers:] {
		sq.device.DestroyBuffer(b)
	}
	sq.buffers = sq.buffers[:m.buffers]
	sq.records = sq.records[:m.records]
}

func (sq *StagingQueue) stage(data []byte) (*metadata.Buffer, error) {
	if err := sq.Reserve(1); err != nil {
		core.LogWarn(err.Error())
		return nil, err
	}
	buffer, err := sq.device.CreateBuffer(uint64(len(data)), metadata.BufferUsageTransferSrc, metadata.MemoryClassCPUOnly)
	if err != nil {
		err = fmt.Errorf("failed to create staging buffer of %d bytes: %w", len(data), err)
		core.LogError(err.Error())
		return nil, err
	}
	if uint64(len(buffer.Mapped)) < uint64(len(data)) {
		sq.device.DestroyBuffer(buffer)
		err := fmt.Errorf("staging buffer is not host mapped: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	copy(buffer.Mapped, data)
	sq.buffers = append(sq.buffers, buffer)
	return buffer, nil
}

// ScheduleUpload copies data into a staging buffer and queues a copy into dst at offset.
// dst.Size is ignored, the copy is len(data) bytes long.
func (sq *StagingQueue) ScheduleUpload(data []byte, dst metadata.BufferView) error {
	if len(data) == 0 {
		return nil
	}
	dst.Size = uint64(len(data))
	if !dst.InBounds() {
		err := fmt.Errorf("upload of %d bytes at offset %d does not fit the destination buffer", len(data), dst.Offset)
		core.LogError(err.Error())
		return err
	}
	src, err := sq.stage(data)
	if err != nil {
		return err
	}
	sq.records = append(sq.records, StagingRecord{
		Src:       src.View(),
		DstBuffer: dst,
	})
	return nil
}

// ScheduleImageUpload queues a copy of tightly packed texels into a region of dst.
func (sq *StagingQueue) ScheduleImageUpload(data []byte, format metadata.ImageFormat, extent metadata.Extent3D, dst *metadata.Image, offset metadata.Offset3D) error {
	if dst == nil {
		err := fmt.Errorf("image upload without a destination image")
		core.LogError(err.Error())
		return err
	}
	if format != dst.Format {
		err := fmt.Errorf("image upload of format %d texels into a format %d image", format, dst.Format)
		core.LogError(err.Error())
		return err
	}
	if extent.Depth == 0 {
		extent.Depth = 1
	}
	dstDepth := dst.Extent.Depth
	if dstDepth == 0 {
		dstDepth = 1
	}
	size := format.PixelSize() * extent.Texels()
	if size == 0 || uint64(len(data)) != size {
		err := fmt.Errorf("image upload expects %d bytes for %dx%dx%d texels, got %d", size, extent.Width, extent.Height, extent.Depth, len(data))
		core.LogError(err.Error())
		return err
	}
	if offset.X < 0 || offset.Y < 0 || offset.Z < 0 ||
		uint64(offset.X)+uint64(extent.Width) > uint64(dst.Extent.Width) ||
		uint64(offset.Y)+uint64(extent.Height) > uint64(dst.Extent.Height) ||
		uint64(offset.Z)+uint64(extent.Depth) > uint64(dstDepth) {
		err := fmt.Errorf("image upload region %v+%v is outside the %dx%dx%d image", offset, extent, dst.Extent.Width, dst.Extent.Height, dstDepth)
		core.LogError(err.Error())
		return err
	}
	src, err := sq.stage(data)
	if err != nil {
		return err
	}
	sq.records = append(sq.records, StagingRecord{
		Src:       src.View(),
		DstImage:  dst,
		DstOffset: offset,
		DstExtent: extent,
	})
	return nil
}

// Resolve records one copy per pending record into cmd and hands this occurrence's staging
// buffers over to the to-clean list. The previous to-clean list is kept aside until
// ReleaseRetired. It returns the number of copies recorded.
func (sq *StagingQueue) Resolve(cmd CommandBuffer) int {
	for _, r := range sq.records {
		if r.IsImage() {
			cmd.TransitionImage(r.DstImage, metadata.ImageLayoutTransferDst)
			cmd.CopyBufferToImage(r.Src, r.DstImage, r.DstOffset, r.DstExtent)
			cmd.TransitionImage(r.DstImage, metadata.ImageLayoutShaderReadOnly)
			continue
		}
		cmd.CopyBuffer(r.Src, r.DstBuffer)
	}
	resolved := len(sq.records)

	sq.retiring = append(sq.retiring, sq.toClean...)
	sq.toClean = sq.buffers
	sq.buffers = nil
	sq.records = sq.records[:0]
	return resolved
}

// ReleaseRetired destroys the buffers resolved during the previous occurrence of the slot.
// Only call it after the slot's fence has been waited on.
func (sq *StagingQueue) ReleaseRetired() int {
	released := len(sq.retiring)
	for _, b := range sq.retiring {
		sq.device.DestroyBuffer(b)
	}
	sq.retiring = nil
	return released
}

// Pending is the number of records waiting for the next Resolve.
func (sq *StagingQueue) Pending() int {
	return len(sq.records)
}

// InFlight is the number of resolved staging buffers the GPU may still be reading.
func (sq *StagingQueue) InFlight() int {
	return len(sq.toClean) + len(sq.retiring)
}

// Destroy frees every staging buffer, pending or not. Only call it once the device is idle.
func (sq *StagingQueue) Destroy() {
	for _, list := range [][]*metadata.Buffer{sq.buffers, sq.toClean, sq.retiring} {
		for _, b := range list {
			sq.device.DestroyBuffer(b)
		}
	}
	sq.buffers, sq.toClean, sq.retiring = nil, nil, nil
	sq.records = nil
}
