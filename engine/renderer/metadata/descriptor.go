package metadata

/** @brief The kind of resource a descriptor binding refers to. */
type DescriptorType int

const (
	DescriptorTypeSampler DescriptorType = iota
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
	DescriptorTypeUniformBufferDynamic
	DescriptorTypeStorageBufferDynamic
	DescriptorTypeInputAttachment
	/** @brief The number of descriptor types. */
	DescriptorTypeCount
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeSampler:
		return "sampler"
	case DescriptorTypeCombinedImageSampler:
		return "combined_image_sampler"
	case DescriptorTypeSampledImage:
		return "sampled_image"
	case DescriptorTypeStorageImage:
		return "storage_image"
	case DescriptorTypeUniformBuffer:
		return "uniform_buffer"
	case DescriptorTypeStorageBuffer:
		return "storage_buffer"
	case DescriptorTypeUniformBufferDynamic:
		return "uniform_buffer_dynamic"
	case DescriptorTypeStorageBufferDynamic:
		return "storage_buffer_dynamic"
	case DescriptorTypeInputAttachment:
		return "input_attachment"
	default:
		return "unknown"
	}
}

// ParseDescriptorType is the inverse of DescriptorType.String.
func ParseDescriptorType(s string) (DescriptorType, bool) {
	for t := DescriptorTypeSampler; t < DescriptorTypeCount; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return DescriptorTypeCount, false
}

/** @brief Shader stages a binding or a push constant range is visible to. */
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
	ShaderStageAll ShaderStage = ShaderStageVertex | ShaderStageFragment | ShaderStageCompute
)

/** @brief One binding of a descriptor set layout. */
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
}

/** @brief How many descriptors of a type a pool reserves per set. */
type PoolSizeRatio struct {
	Type  DescriptorType
	Ratio float32
}

/** @brief The absolute number of descriptors of a type a pool holds. */
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

type DescriptorSetLayout struct {
	Bindings     []DescriptorBinding
	InternalData interface{}
}

type DescriptorPool struct {
	MaxSets      uint32
	Sizes        []DescriptorPoolSize
	InternalData interface{}
}

/**
 * @brief A descriptor set. It stays owned by the pool that allocated it and is only
 * invalidated when that pool is reset or destroyed.
 */
type DescriptorSet struct {
	Pool         *DescriptorPool
	Layout       *DescriptorSetLayout
	InternalData interface{}
}
