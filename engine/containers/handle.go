package containers

import "fmt"

// ResourceKind tags a handle with the kind of resource it points to.
type ResourceKind uint8

const (
	ResourceKindNone ResourceKind = iota
	ResourceKindBuffer
	ResourceKindImage
	ResourceKindMesh
	ResourceKindCustom
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindImage:
		return "image"
	case ResourceKindMesh:
		return "mesh"
	case ResourceKindCustom:
		return "custom"
	default:
		return "none"
	}
}

const (
	slotBits       = 24
	blockBits      = 16
	generationBits = 16

	maxBlockCapacity = 1 << slotBits
	maxBlocks        = 1 << blockBits
)

// Handle identifies a value stored in an Arena[T]. The zero Handle is never valid: slot
// generations start at 1.
type Handle[T any] struct {
	kind       ResourceKind
	block      uint16
	slot       uint32
	generation uint16
}

func (h Handle[T]) Kind() ResourceKind {
	return h.kind
}

func (h Handle[T]) Block() int {
	return int(h.block)
}

func (h Handle[T]) Slot() int {
	return int(h.slot)
}

func (h Handle[T]) Generation() uint16 {
	return h.generation
}

func (h Handle[T]) IsZero() bool {
	return h.generation == 0
}

// ID packs the handle as kind:8 | generation:16 | block:16 | slot:24.
func (h Handle[T]) ID() uint64 {
	return uint64(h.kind)<<(slotBits+blockBits+generationBits) |
		uint64(h.generation)<<(slotBits+blockBits) |
		uint64(h.block)<<slotBits |
		uint64(h.slot)
}

func (h Handle[T]) String() string {
	return fmt.Sprintf("%s#%d:%d@%d", h.kind, h.block, h.slot, h.generation)
}

// HandleFromID is the inverse of Handle.ID.
func HandleFromID[T any](id uint64) Handle[T] {
	return Handle[T]{
		kind:       ResourceKind(id >> (slotBits + blockBits + generationBits)),
		generation: uint16(id >> (slotBits + blockBits)),
		block:      uint16(id >> slotBits),
		slot:       uint32(id & (maxBlockCapacity - 1)),
	}
}
