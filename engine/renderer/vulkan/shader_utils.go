package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framecore/engine/core"
)

const spirvMagic = 0x07230203

type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// spirvWords reinterprets a SPIR-V binary as the little endian word stream Vulkan expects.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("spir-v size %d is not a multiple of 4: %w", len(code), core.ErrResourceCreation)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("bad spir-v magic %#08x: %w", words[0], core.ErrResourceCreation)
	}
	return words, nil
}

func NewShaderStage(context *VulkanContext, name string, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	words, err := spirvWords(code)
	if err != nil {
		core.LogError("shader %s: %s", name, err)
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return nil, resultError("vkCreateShaderModule "+name, res, core.ErrResourceCreation)
	}

	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
