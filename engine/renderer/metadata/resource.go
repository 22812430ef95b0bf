package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Raw bytes. */
	ResourceTypeBinary
	/** @brief Decoded image, see ImageResourceData. */
	ResourceTypeImage
	/** @brief SPIR-V shader binary. */
	ResourceTypeShader
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeShader:
		return "shader"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. []byte or *ImageResourceData. */
	Data interface{}
}
