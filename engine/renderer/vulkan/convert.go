package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

func toVkFormat(f metadata.ImageFormat) vk.Format {
	switch f {
	case metadata.ImageFormatR8:
		return vk.FormatR8Unorm
	case metadata.ImageFormatRG8:
		return vk.FormatR8g8Unorm
	case metadata.ImageFormatRGB8:
		return vk.FormatR8g8b8Unorm
	case metadata.ImageFormatRGBA8:
		return vk.FormatR8g8b8a8Unorm
	case metadata.ImageFormatBGRA8:
		return vk.FormatB8g8r8a8Unorm
	case metadata.ImageFormatR16F:
		return vk.FormatR16Sfloat
	case metadata.ImageFormatRGBA16F:
		return vk.FormatR16g16b16a16Sfloat
	case metadata.ImageFormatR32F:
		return vk.FormatR32Sfloat
	case metadata.ImageFormatRGBA32F:
		return vk.FormatR32g32b32a32Sfloat
	case metadata.ImageFormatD32F:
		return vk.FormatD32Sfloat
	default:
		return vk.FormatUndefined
	}
}

func fromVkFormat(f vk.Format) metadata.ImageFormat {
	switch f {
	case vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb:
		return metadata.ImageFormatBGRA8
	case vk.FormatR8g8b8a8Unorm, vk.FormatR8g8b8a8Srgb:
		return metadata.ImageFormatRGBA8
	case vk.FormatR16g16b16a16Sfloat:
		return metadata.ImageFormatRGBA16F
	default:
		return metadata.ImageFormatUndefined
	}
}

func toVkBufferUsage(u metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u.Has(metadata.BufferUsageTransferSrc) {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u.Has(metadata.BufferUsageTransferDst) {
		flags |= vk.BufferUsageTransferDstBit
	}
	if u.Has(metadata.BufferUsageUniform) {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u.Has(metadata.BufferUsageStorage) {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if u.Has(metadata.BufferUsageIndex) {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u.Has(metadata.BufferUsageVertex) {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if u.Has(metadata.BufferUsageIndirect) {
		flags |= vk.BufferUsageIndirectBufferBit
	}
	if u.Has(metadata.BufferUsageDeviceAddress) {
		flags |= vk.BufferUsageShaderDeviceAddressBit
	}
	return vk.BufferUsageFlags(flags)
}

func toVkImageUsage(u metadata.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if u&metadata.ImageUsageTransferSrc != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if u&metadata.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	if u&metadata.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if u&metadata.ImageUsageStorage != 0 {
		flags |= vk.ImageUsageStorageBit
	}
	if u&metadata.ImageUsageColorAttachment != 0 {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if u&metadata.ImageUsageDepthAttachment != 0 {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	return vk.ImageUsageFlags(flags)
}

// memoryProperties returns the required and the preferred memory property flags of a
// memory class.
func memoryProperties(m metadata.MemoryClass) (vk.MemoryPropertyFlagBits, vk.MemoryPropertyFlagBits) {
	switch m {
	case metadata.MemoryClassCPUOnly:
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit, 0
	case metadata.MemoryClassCPUToGPU:
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit, vk.MemoryPropertyDeviceLocalBit
	case metadata.MemoryClassGPUToCPU:
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit, vk.MemoryPropertyHostCachedBit
	default:
		return vk.MemoryPropertyDeviceLocalBit, 0
	}
}

func toVkLayout(l metadata.ImageLayout) vk.ImageLayout {
	switch l {
	case metadata.ImageLayoutGeneral:
		return vk.ImageLayoutGeneral
	case metadata.ImageLayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.ImageLayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.ImageLayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.ImageLayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.ImageLayoutDepthAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.ImageLayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

func toVkDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	switch t {
	case metadata.DescriptorTypeSampler:
		return vk.DescriptorTypeSampler
	case metadata.DescriptorTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case metadata.DescriptorTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case metadata.DescriptorTypeStorageImage:
		return vk.DescriptorTypeStorageImage
	case metadata.DescriptorTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case metadata.DescriptorTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case metadata.DescriptorTypeUniformBufferDynamic:
		return vk.DescriptorTypeUniformBufferDynamic
	case metadata.DescriptorTypeStorageBufferDynamic:
		return vk.DescriptorTypeStorageBufferDynamic
	default:
		return vk.DescriptorTypeInputAttachment
	}
}

func toVkStages(s metadata.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlagBits
	if s&metadata.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageVertexBit
	}
	if s&metadata.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFragmentBit
	}
	if s&metadata.ShaderStageCompute != 0 {
		flags |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(flags)
}

func toVkExtent(e metadata.Extent3D) vk.Extent3D {
	d := e.Depth
	if d == 0 {
		d = 1
	}
	return vk.Extent3D{Width: e.Width, Height: e.Height, Depth: d}
}

func aspectOf(f metadata.ImageFormat) vk.ImageAspectFlags {
	if f.IsDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}
