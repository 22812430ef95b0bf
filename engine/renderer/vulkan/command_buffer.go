package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	state   renderer.CommandBufferState
	context *VulkanContext
	pool    vk.CommandPool
	// The fence of the last submission, used to reject early resets.
	fence *VulkanFence
}

var _ renderer.CommandBuffer = (*VulkanCommandBuffer)(nil)

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		state:   renderer.CommandBufferStateNotAllocated,
		context: context,
		pool:    pool,
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, 1)
	err := context.Locks.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return resultError("vkAllocateCommandBuffers", res, core.ErrResourceCreation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.state = renderer.CommandBufferStateReady

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free() {
	_ = v.context.Locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(v.context.Device.LogicalDevice, v.pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.state = renderer.CommandBufferStateNotAllocated
}

func (v *VulkanCommandBuffer) State() renderer.CommandBufferState {
	return v.state
}

func (v *VulkanCommandBuffer) Reset() error {
	if v.state == renderer.CommandBufferStateSubmitted && v.fence != nil && !v.fence.FenceSignaled(v.context) {
		err := fmt.Errorf("command buffer reset while its submission is pending: %w", core.ErrSubmission)
		core.LogError(err.Error())
		return err
	}
	if res := vk.ResetCommandBuffer(v.Handle, 0); res != vk.Success {
		return resultError("vkResetCommandBuffer", res, core.ErrSubmission)
	}
	v.fence = nil
	v.state = renderer.CommandBufferStateReady
	return nil
}

// Begin starts a one time submit recording.
func (v *VulkanCommandBuffer) Begin() error {
	if v.state != renderer.CommandBufferStateReady {
		err := fmt.Errorf("cannot begin a command buffer in state %s: %w", v.state, core.ErrFrameState)
		core.LogError(err.Error())
		return err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(v.Handle, &beginInfo); res != vk.Success {
		return resultError("vkBeginCommandBuffer", res, core.ErrSubmission)
	}
	v.state = renderer.CommandBufferStateRecording
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if v.state != renderer.CommandBufferStateRecording {
		err := fmt.Errorf("cannot end a command buffer in state %s: %w", v.state, core.ErrFrameState)
		core.LogError(err.Error())
		return err
	}
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return resultError("vkEndCommandBuffer", res, core.ErrSubmission)
	}
	v.state = renderer.CommandBufferStateRecordingEnded
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted(fence *VulkanFence) {
	v.fence = fence
	v.state = renderer.CommandBufferStateSubmitted
}

func (v *VulkanCommandBuffer) CopyBuffer(src, dst metadata.BufferView) {
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(src.Offset),
		DstOffset: vk.DeviceSize(dst.Offset),
		Size:      vk.DeviceSize(src.Size),
	}
	vk.CmdCopyBuffer(v.Handle, bufferOf(src.Buffer).Handle, bufferOf(dst.Buffer).Handle, 1, []vk.BufferCopy{region})
}

func (v *VulkanCommandBuffer) CopyBufferToImage(src metadata.BufferView, dst *metadata.Image, offset metadata.Offset3D, extent metadata.Extent3D) {
	image := imageOf(dst)
	region := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(src.Offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: image.Aspect,
			LayerCount: 1,
		},
		ImageOffset: vk.Offset3D{X: offset.X, Y: offset.Y, Z: offset.Z},
		ImageExtent: toVkExtent(extent),
	}
	vk.CmdCopyBufferToImage(v.Handle, bufferOf(src.Buffer).Handle, image.Handle, toVkLayout(dst.Layout), 1, []vk.BufferImageCopy{region})
}

// TransitionImage records a barrier between all commands before and after it.
func (v *VulkanCommandBuffer) TransitionImage(img *metadata.Image, layout metadata.ImageLayout) {
	image := imageOf(img)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit | vk.AccessMemoryReadBit),
		OldLayout:           toVkLayout(img.Layout),
		NewLayout:           toVkLayout(layout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: image.Aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(
		v.Handle,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)
	img.Layout = layout
}

func (v *VulkanCommandBuffer) BlitImage(src *metadata.Image, srcExtent metadata.Extent3D, dst *metadata.Image, dstExtent metadata.Extent3D) {
	srcImage, dstImage := imageOf(src), imageOf(dst)
	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: srcImage.Aspect, LayerCount: 1},
		SrcOffsets:     [2]vk.Offset3D{{}, {X: int32(srcExtent.Width), Y: int32(srcExtent.Height), Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: dstImage.Aspect, LayerCount: 1},
		DstOffsets:     [2]vk.Offset3D{{}, {X: int32(dstExtent.Width), Y: int32(dstExtent.Height), Z: 1}},
	}
	vk.CmdBlitImage(
		v.Handle,
		srcImage.Handle, toVkLayout(src.Layout),
		dstImage.Handle, toVkLayout(dst.Layout),
		1, []vk.ImageBlit{region},
		vk.FilterLinear,
	)
}

func (v *VulkanCommandBuffer) ClearColorImage(img *metadata.Image, color [4]float32) {
	image := imageOf(img)
	value := vk.NewClearValue(color[:])
	subresource := vk.ImageSubresourceRange{
		AspectMask: image.Aspect,
		LevelCount: 1,
		LayerCount: 1,
	}
	vk.CmdClearColorImage(
		v.Handle,
		image.Handle, toVkLayout(img.Layout),
		(*vk.ClearColorValue)(unsafe.Pointer(&value)),
		1, []vk.ImageSubresourceRange{subresource},
	)
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline *metadata.Pipeline) {
	p := pipelineOf(pipeline)
	vk.CmdBindPipeline(v.Handle, p.BindPoint, p.Handle)
}

func (v *VulkanCommandBuffer) BindDescriptorSet(pipeline *metadata.Pipeline, index uint32, set *metadata.DescriptorSet) {
	p := pipelineOf(pipeline)
	vk.CmdBindDescriptorSets(v.Handle, p.BindPoint, p.PipelineLayout, index, 1, []vk.DescriptorSet{descriptorSetOf(set)}, 0, nil)
}

func (v *VulkanCommandBuffer) PushConstants(pipeline *metadata.Pipeline, stages metadata.ShaderStage, data []byte) {
	if len(data) == 0 {
		return
	}
	p := pipelineOf(pipeline)
	vk.CmdPushConstants(v.Handle, p.PipelineLayout, toVkStages(stages), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *VulkanCommandBuffer) DrawIndexed(indexBuffer *metadata.Buffer, indexCount uint32) {
	vk.CmdBindIndexBuffer(v.Handle, bufferOf(indexBuffer).Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(v.Handle, indexCount, 1, 0, 0, 0)
}

func (v *VulkanCommandBuffer) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(v.Handle, x, y, z)
}

func bufferOf(b *metadata.Buffer) *VulkanBuffer {
	return b.InternalData.(*VulkanBuffer)
}

func imageOf(i *metadata.Image) *VulkanImage {
	return i.InternalData.(*VulkanImage)
}
