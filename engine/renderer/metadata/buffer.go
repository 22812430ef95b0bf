package metadata

/** @brief Usage flags of a GPU buffer. Combine with a bitwise or. */
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
	BufferUsageDeviceAddress
)

func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

/** @brief Where the memory of a resource lives and who can touch it. */
type MemoryClass int

const (
	/** @brief Device local, not visible to the CPU. */
	MemoryClassGPUOnly MemoryClass = iota
	/** @brief Host visible and coherent, used for staging. */
	MemoryClassCPUOnly
	/** @brief Host visible memory the GPU reads every frame (uniforms). */
	MemoryClassCPUToGPU
	/** @brief Host visible memory the GPU writes back into (readbacks). */
	MemoryClassGPUToCPU
)

func (m MemoryClass) HostVisible() bool {
	return m != MemoryClassGPUOnly
}

func (m MemoryClass) String() string {
	switch m {
	case MemoryClassGPUOnly:
		return "gpu_only"
	case MemoryClassCPUOnly:
		return "cpu_only"
	case MemoryClassCPUToGPU:
		return "cpu_to_gpu"
	case MemoryClassGPUToCPU:
		return "gpu_to_cpu"
	default:
		return "unknown"
	}
}

/**
 * @brief An opaque device memory allocation. Owned by whoever asked for its creation.
 */
type Buffer struct {
	/** @brief Size in bytes. */
	Size uint64
	Usage  BufferUsage
	Memory MemoryClass
	/** @brief Persistent host mapping, nil when the memory class is not host visible. */
	Mapped []byte
	/** @brief Debug label. */
	Label string
	/** @brief Backend specific data. */
	InternalData interface{}
}

// View returns a view over the whole buffer.
func (b *Buffer) View() BufferView {
	return BufferView{Buffer: b, Offset: 0, Size: b.Size}
}

/**
 * @brief A non-owning reference to a byte range of a buffer.
 */
type BufferView struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

// InBounds reports whether the view lies entirely inside its buffer.
func (v BufferView) InBounds() bool {
	return v.Buffer != nil && v.Offset+v.Size <= v.Buffer.Size && v.Offset+v.Size >= v.Offset
}
