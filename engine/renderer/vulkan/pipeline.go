package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// Push constants are only guaranteed up to 128 bytes.
const maxPushConstantSize = 128

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	/** @brief Graphics or compute. */
	BindPoint vk.PipelineBindPoint
}

type VulkanComputePipelineConfig struct {
	Name string
	/** @brief SPIR-V of the compute shader, entry point "main". */
	Code []byte
	/** @brief The set layouts, in set index order. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief Size of the push constant block visible to the compute stage, 0 for none. */
	PushConstantSize uint32
}

func NewComputePipeline(context *VulkanContext, config *VulkanComputePipelineConfig) (*VulkanPipeline, error) {
	if config.PushConstantSize > maxPushConstantSize {
		err := fmt.Errorf("pipeline %s: push constant block of %d bytes exceeds %d: %w", config.Name, config.PushConstantSize, maxPushConstantSize, core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}

	stage, err := NewShaderStage(context, config.Name, config.Code, vk.ShaderStageComputeBit)
	if err != nil {
		return nil, err
	}
	// The module is only needed until the pipeline is built.
	defer stage.Destroy(context)

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}
	if config.PushConstantSize > 0 {
		layoutInfo.PushConstantRangeCount = 1
		layoutInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			// ranges are sized in multiples of 4 bytes
			Size:       uint32(metadata.GetAligned(uint64(config.PushConstantSize), 4)),
		}}
	}

	outPipeline := &VulkanPipeline{BindPoint: vk.PipelineBindPointCompute}
	err = context.Locks.SafeCall(PipelineManagement, func() error {
		var layout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
			return resultError("vkCreatePipelineLayout", res, core.ErrResourceCreation)
		}
		outPipeline.PipelineLayout = layout

		createInfo := vk.ComputePipelineCreateInfo{
			SType:              vk.StructureTypeComputePipelineCreateInfo,
			Stage:              stage.ShaderStageCreateInfo,
			Layout:             layout,
			BasePipelineHandle: vk.NullPipeline,
			BasePipelineIndex:  -1,
		}
		pipelines := make([]vk.Pipeline, 1)
		if res := vk.CreateComputePipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.ComputePipelineCreateInfo{createInfo},
			context.Allocator,
			pipelines); res != vk.Success {
			return resultError("vkCreateComputePipelines", res, core.ErrResourceCreation)
		}
		outPipeline.Handle = pipelines[0]
		return nil
	})
	if err != nil {
		outPipeline.Destroy(context)
		return nil, err
	}

	core.LogDebug("Compute pipeline %s created.", config.Name)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	_ = context.Locks.SafeCall(PipelineManagement, func() error {
		if pipeline.Handle != nil {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = nil
		}
		if pipeline.PipelineLayout != nil {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
			pipeline.PipelineLayout = nil
		}
		return nil
	})
}

func pipelineOf(p *metadata.Pipeline) *VulkanPipeline {
	return p.InternalData.(*VulkanPipeline)
}
