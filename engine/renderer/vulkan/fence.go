package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
)

type VulkanFence struct {
	Handle vk.Fence
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, resultError("vkCreateFence", res, core.ErrResourceCreation)
	}
	return &VulkanFence{Handle: pFence}, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
}

// FenceWait blocks until the fence signals. A timeout wraps core.ErrSynchronizationTimeout
// and a lost device core.ErrDeviceLost.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeout time.Duration) error {
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, uint64(timeout.Nanoseconds()))
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		return resultError("vkWaitForFences", result, core.ErrSynchronizationTimeout)
	default:
		return resultError("vkWaitForFences", result, core.ErrSubmission)
	}
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return resultError("vkResetFences", res, core.ErrSubmission)
	}
	return nil
}

// FenceSignaled polls the fence without blocking.
func (vf *VulkanFence) FenceSignaled(context *VulkanContext) bool {
	return vk.GetFenceStatus(context.Device.LogicalDevice, vf.Handle) == vk.Success
}
