package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type VulkanDescriptorSetLayout struct {
	Handle vk.DescriptorSetLayout
}

type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
}

func DescriptorSetLayoutCreate(context *VulkanContext, bindings []metadata.DescriptorBinding) (*VulkanDescriptorSetLayout, error) {
	seen := make(map[uint32]struct{}, len(bindings))
	vkBindings := make([]vk.DescriptorSetLayoutBinding, 0, len(bindings))
	for _, b := range bindings {
		if _, dup := seen[b.Binding]; dup {
			err := fmt.Errorf("descriptor binding %d declared twice: %w", b.Binding, core.ErrResourceCreation)
			core.LogError(err.Error())
			return nil, err
		}
		seen[b.Binding] = struct{}{}

		count := b.Count
		if count == 0 {
			count = 1
		}
		vkBindings = append(vkBindings, vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  toVkDescriptorType(b.Type),
			DescriptorCount: count,
			StageFlags:      toVkStages(b.Stages),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	out := &VulkanDescriptorSetLayout{}
	err := context.Locks.SafeCall(DescriptorManagement, func() error {
		var handle vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateDescriptorSetLayout", res, core.ErrResourceCreation)
		}
		out.Handle = handle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *VulkanDescriptorSetLayout) Destroy(context *VulkanContext) {
	if l.Handle == nil {
		return
	}
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, l.Handle, context.Allocator)
		return nil
	})
	l.Handle = nil
}

func DescriptorPoolCreate(context *VulkanContext, maxSets uint32, sizes []metadata.DescriptorPoolSize) (*VulkanDescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, s := range sizes {
		if s.Count == 0 {
			continue
		}
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            toVkDescriptorType(s.Type),
			DescriptorCount: s.Count,
		})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	out := &VulkanDescriptorPool{}
	err := context.Locks.SafeCall(DescriptorManagement, func() error {
		var handle vk.DescriptorPool
		if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &handle); res != vk.Success {
			return resultError("vkCreateDescriptorPool", res, core.ErrResourceCreation)
		}
		out.Handle = handle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Allocate returns a set for layout. Running out of pool memory is expected by the
// allocator, which moves on to the next pool, so it is reported without logging.
func (p *VulkanDescriptorPool) Allocate(context *VulkanContext, layout *VulkanDescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.Handle},
	}

	sets := make([]vk.DescriptorSet, 1)
	var result vk.Result
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		result = vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0])
		return nil
	})
	switch result {
	case vk.Success:
		return sets[0], nil
	case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return nil, fmt.Errorf("vkAllocateDescriptorSets returned %s: %w", VulkanResultString(result), core.ErrPoolExhausted)
	default:
		return nil, resultError("vkAllocateDescriptorSets", result, core.ErrResourceCreation)
	}
}

func (p *VulkanDescriptorPool) Reset(context *VulkanContext) error {
	return context.Locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.ResetDescriptorPool(context.Device.LogicalDevice, p.Handle, 0); res != vk.Success {
			return resultError("vkResetDescriptorPool", res, core.ErrResourceCreation)
		}
		return nil
	})
}

func (p *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if p.Handle == nil {
		return
	}
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, p.Handle, context.Allocator)
		return nil
	})
	p.Handle = nil
}

func DescriptorWriteBuffer(context *VulkanContext, set vk.DescriptorSet, binding uint32, kind metadata.DescriptorType, view metadata.BufferView) {
	size := vk.DeviceSize(view.Size)
	if view.Size == 0 {
		size = vk.DeviceSize(vk.WholeSize)
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  toVkDescriptorType(kind),
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: bufferOf(view.Buffer).Handle,
			Offset: vk.DeviceSize(view.Offset),
			Range:  size,
		}},
	}
	updateDescriptorSets(context, write)
}

// DescriptorWriteImage binds the view of image. sampler is only read for combined image
// sampler and sampler descriptors.
func DescriptorWriteImage(context *VulkanContext, set vk.DescriptorSet, binding uint32, kind metadata.DescriptorType, image *metadata.Image, layout metadata.ImageLayout, sampler vk.Sampler) {
	info := vk.DescriptorImageInfo{
		ImageView:   imageOf(image).View,
		ImageLayout: toVkLayout(layout),
	}
	if kind == metadata.DescriptorTypeCombinedImageSampler || kind == metadata.DescriptorTypeSampler {
		info.Sampler = sampler
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  toVkDescriptorType(kind),
		PImageInfo:      []vk.DescriptorImageInfo{info},
	}
	updateDescriptorSets(context, write)
}

func updateDescriptorSets(context *VulkanContext, write vk.WriteDescriptorSet) {
	_ = context.Locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
		return nil
	})
}

func descriptorSetOf(s *metadata.DescriptorSet) vk.DescriptorSet {
	return s.InternalData.(vk.DescriptorSet)
}

func descriptorLayoutOf(l *metadata.DescriptorSetLayout) *VulkanDescriptorSetLayout {
	return l.InternalData.(*VulkanDescriptorSetLayout)
}

func descriptorPoolOf(p *metadata.DescriptorPool) *VulkanDescriptorPool {
	return p.InternalData.(*VulkanDescriptorPool)
}
