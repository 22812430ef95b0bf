package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
)

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device    *VulkanDevice
	Swapchain *VulkanSwapchain

	// Serializes access to externally synchronized Vulkan objects.
	Locks *VulkanLockPool
}

// FindMemoryIndex returns the first memory type allowed by typeFilter carrying every flag
// of propertyFlags, preferring the ones that also carry preferred.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags, preferred vk.MemoryPropertyFlagBits) (uint32, error) {
	memoryProperties := vc.Device.Memory

	best := int32(-1)
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		flags := vk.MemoryPropertyFlagBits(memoryProperties.MemoryTypes[i].PropertyFlags)
		if typeFilter&(1<<i) == 0 || flags&propertyFlags != propertyFlags {
			continue
		}
		if flags&preferred == preferred {
			return i, nil
		}
		if best < 0 {
			best = int32(i)
		}
	}
	if best < 0 {
		err := fmt.Errorf("no memory type matches filter %#x with properties %#x: %w", typeFilter, uint32(propertyFlags), core.ErrResourceCreation)
		core.LogWarn(err.Error())
		return 0, err
	}
	return uint32(best), nil
}
