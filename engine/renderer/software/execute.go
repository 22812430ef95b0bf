package software

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type submission struct {
	seq      uint64
	cmd      *CommandBuffer
	commands []Command
	signal   *semaphoreData
	fence    *metadata.Fence
}

// Submission is an executed submission, as kept WithHistory.
type Submission struct {
	Seq      uint64
	Commands []Command
}

// executeNext runs the oldest queued submission, then signals its semaphore and fence.
func (d *Device) executeNext() error {
	sub, err := d.queue.Dequeue()
	if err != nil {
		return nil
	}
	for i, c := range sub.commands {
		if err := d.execute(c); err != nil {
			d.lost = fmt.Errorf("submission %d command %d (%s): %v: %w", sub.seq, i, c.Kind, err, core.ErrDeviceLost)
			core.LogError(d.lost.Error())
			return d.lost
		}
	}
	if sub.signal != nil {
		sub.signal.signaled = true
	}
	if f := fenceOf(sub.fence); f != nil {
		f.signaled = true
		sub.fence.IsSignaled = true
	}
	if sub.cmd.pending == sub {
		sub.cmd.pending = nil
	}
	d.stats.Executed++
	if d.options.keepHistory {
		d.history = append(d.history, Submission{Seq: sub.seq, Commands: sub.commands})
	}
	return nil
}

func (d *Device) execute(c Command) error {
	switch c.Kind {
	case CommandCopyBuffer:
		src, dst := bufferOf(c.SrcBuffer.Buffer), bufferOf(c.DstBuffer.Buffer)
		if err := liveBuffers(src, dst); err != nil {
			return err
		}
		size := c.SrcBuffer.Size
		if c.DstBuffer.Size < size {
			size = c.DstBuffer.Size
		}
		if c.SrcBuffer.Offset+size > uint64(len(src.data)) || c.DstBuffer.Offset+size > uint64(len(dst.data)) {
			return fmt.Errorf("copy of %d bytes out of bounds", size)
		}
		copy(dst.data[c.DstBuffer.Offset:c.DstBuffer.Offset+size], src.data[c.SrcBuffer.Offset:c.SrcBuffer.Offset+size])
		d.stats.CopiesExecuted++

	case CommandCopyBufferToImage:
		src := bufferOf(c.SrcBuffer.Buffer)
		if err := liveBuffers(src); err != nil {
			return err
		}
		img := imageOf(c.DstImage)
		if img == nil || img.destroyed {
			return fmt.Errorf("copy into a destroyed image")
		}
		if err := copyToImage(src.data[c.SrcBuffer.Offset:], c.DstImage, img.data, c.Offset, c.DstExtent); err != nil {
			return err
		}
		d.stats.CopiesExecuted++

	case CommandBlitImage:
		src, dst := imageOf(c.SrcImage), imageOf(c.DstImage)
		if src == nil || dst == nil || src.destroyed || dst.destroyed {
			return fmt.Errorf("blit between destroyed images")
		}
		if c.SrcImage.Format == c.DstImage.Format {
			blitNearest(src.data, c.SrcExtent, dst.data, c.DstExtent, c.SrcImage.Format.PixelSize())
		}

	case CommandClearColorImage:
		img := imageOf(c.DstImage)
		if img == nil || img.destroyed {
			return fmt.Errorf("clear of a destroyed image")
		}

	case CommandBindPipeline, CommandBindDescriptorSet:
		if p, ok := c.Pipeline.InternalData.(*pipelineData); !ok || p.destroyed {
			return fmt.Errorf("pipeline %s used after destruction", c.Pipeline.Name)
		}

	case CommandPushConstants:
		p, ok := c.Pipeline.InternalData.(*pipelineData)
		if !ok || p.destroyed {
			return fmt.Errorf("pipeline %s used after destruction", c.Pipeline.Name)
		}
		if uint32(len(c.Data)) > p.pushConstantSize {
			return fmt.Errorf("push constants of %d bytes exceed the %d declared by %s", len(c.Data), p.pushConstantSize, c.Pipeline.Name)
		}

	case CommandDispatch:
		d.stats.Dispatches++

	case CommandDrawIndexed:
		if err := liveBuffers(bufferOf(c.IndexBuffer)); err != nil {
			return err
		}
	}
	return nil
}

func liveBuffers(buffers ...*bufferData) error {
	for _, b := range buffers {
		if b == nil {
			return fmt.Errorf("command references a foreign buffer")
		}
		if b.destroyed {
			return fmt.Errorf("command references destroyed buffer %d", b.id)
		}
	}
	return nil
}

func copyToImage(src []byte, image *metadata.Image, dst []byte, offset metadata.Offset3D, extent metadata.Extent3D) error {
	pixel := image.Format.PixelSize()
	depth := uint64(extent.Depth)
	if depth == 0 {
		depth = 1
	}
	row := uint64(extent.Width) * pixel
	region := row * uint64(extent.Height)
	if uint64(len(src)) < region*depth {
		return fmt.Errorf("source holds %d bytes, the region needs %d", len(src), region*depth)
	}
	pitch := uint64(image.Extent.Width) * pixel
	slice := pitch * uint64(image.Extent.Height)
	for z := uint64(0); z < depth; z++ {
		base := (uint64(offset.Z) + z) * slice
		for y := uint64(0); y < uint64(extent.Height); y++ {
			start := base + (uint64(offset.Y)+y)*pitch + uint64(offset.X)*pixel
			if start+row > uint64(len(dst)) {
				return fmt.Errorf("image region out of bounds")
			}
			from := z*region + y*row
			copy(dst[start:start+row], src[from:from+row])
		}
	}
	return nil
}

func blitNearest(src []byte, srcExtent metadata.Extent3D, dst []byte, dstExtent metadata.Extent3D, pixel uint64) {
	if srcExtent.Width == 0 || srcExtent.Height == 0 {
		return
	}
	for y := uint64(0); y < uint64(dstExtent.Height); y++ {
		sy := y * uint64(srcExtent.Height) / uint64(dstExtent.Height)
		for x := uint64(0); x < uint64(dstExtent.Width); x++ {
			sx := x * uint64(srcExtent.Width) / uint64(dstExtent.Width)
			s := (sy*uint64(srcExtent.Width) + sx) * pixel
			t := (y*uint64(dstExtent.Width) + x) * pixel
			if s+pixel > uint64(len(src)) || t+pixel > uint64(len(dst)) {
				return
			}
			copy(dst[t:t+pixel], src[s:s+pixel])
		}
	}
}
