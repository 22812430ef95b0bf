package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Aspect vk.ImageAspectFlags
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		return nil, resultError("vkCreateImageView", res, core.ErrResourceCreation)
	}
	return view, nil
}

// ImageCreate creates a 2D optimal tiling image in device local memory, together with its view.
func ImageCreate(context *VulkanContext, extent metadata.Extent3D, format metadata.ImageFormat, usage metadata.ImageUsage) (*VulkanImage, error) {
	vkFormat := toVkFormat(format)
	imageCreateInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vkFormat,
		Extent:        toVkExtent(extent),
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         toVkImageUsage(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	out := &VulkanImage{Width: extent.Width, Height: extent.Height, Aspect: aspectOf(format)}
	err := context.Locks.SafeCall(ImageManagement, func() error {
		var handle vk.Image
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateImage", res, core.ErrResourceCreation)
		}
		out.Handle = handle

		var memReqs vk.MemoryRequirements
		vk.GetImageMemoryRequirements(context.Device.LogicalDevice, handle, &memReqs)
		memReqs.Deref()

		memoryType, err := context.FindMemoryIndex(memReqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit, 0)
		if err != nil {
			return err
		}
		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memReqs.Size,
			MemoryTypeIndex: memoryType,
		}
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
			return resultError("vkAllocateMemory", res, core.ErrResourceCreation)
		}
		out.Memory = memory

		if res := vk.BindImageMemory(context.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
			return resultError("vkBindImageMemory", res, core.ErrResourceCreation)
		}
		return nil
	})
	if err != nil {
		out.ImageDestroy(context)
		return nil, err
	}

	view, err := createImageView(context, out.Handle, vkFormat, out.Aspect)
	if err != nil {
		out.ImageDestroy(context)
		return nil, err
	}
	out.View = view
	return out, nil
}

func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}
