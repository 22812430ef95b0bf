package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle  vk.Buffer
	Memory  vk.DeviceMemory
	Address uint64
	mapped  unsafe.Pointer
}

// BufferCreate creates a buffer bound to its own allocation. Host visible buffers stay
// persistently mapped and the mapping is returned as a byte slice.
func BufferCreate(context *VulkanContext, size uint64, usage metadata.BufferUsage, class metadata.MemoryClass) (*VulkanBuffer, []byte, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       toVkBufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	out := &VulkanBuffer{}
	var mapped []byte
	err := context.Locks.SafeCall(BufferManagement, func() error {
		var handle vk.Buffer
		if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateBuffer", res, core.ErrResourceCreation)
		}
		out.Handle = handle

		var memReqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, handle, &memReqs)
		memReqs.Deref()

		required, preferred := memoryProperties(class)
		memoryType, err := context.FindMemoryIndex(memReqs.MemoryTypeBits, required, preferred)
		if err != nil {
			return err
		}
		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memReqs.Size,
			MemoryTypeIndex: memoryType,
		}
		if usage.Has(metadata.BufferUsageDeviceAddress) {
			flagsInfo := vk.MemoryAllocateFlagsInfo{
				SType: vk.StructureTypeMemoryAllocateFlagsInfo,
				Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
			}
			allocInfo.PNext = unsafe.Pointer(flagsInfo.Ref())
		}
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
			return resultError("vkAllocateMemory", res, core.ErrResourceCreation)
		}
		out.Memory = memory

		if res := vk.BindBufferMemory(context.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
			return resultError("vkBindBufferMemory", res, core.ErrResourceCreation)
		}

		if class.HostVisible() {
			var data unsafe.Pointer
			if res := vk.MapMemory(context.Device.LogicalDevice, memory, 0, vk.DeviceSize(size), 0, &data); res != vk.Success {
				return resultError("vkMapMemory", res, core.ErrResourceCreation)
			}
			out.mapped = data
			mapped = unsafe.Slice((*byte)(data), size)
		}

		if usage.Has(metadata.BufferUsageDeviceAddress) {
			info := vk.BufferDeviceAddressInfo{
				SType:  vk.StructureTypeBufferDeviceAddressInfo,
				Buffer: handle,
			}
			out.Address = uint64(vk.GetBufferDeviceAddress(context.Device.LogicalDevice, &info))
		}
		return nil
	})
	if err != nil {
		out.BufferDestroy(context)
		return nil, nil, err
	}
	return out, mapped, nil
}

func (vb *VulkanBuffer) BufferDestroy(context *VulkanContext) {
	if vb.mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		vb.mapped = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
}
