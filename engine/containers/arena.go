package containers

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
)

type arenaSlot[T any] struct {
	value      T
	generation uint16
	live       bool
}

type slotIndex struct {
	block uint16
	slot  uint32
}

// Arena stores values of one kind in fixed-capacity blocks and hands out handles with
// O(1) store, get and remove. Values never move once stored; a free-index stack shared by
// all blocks recycles removed slots.
type Arena[T any] struct {
	kind          ResourceKind
	blockCapacity int
	blocks        [][]arenaSlot[T]
	free          *Stack[slotIndex]
	count         int
}

func NewArena[T any](kind ResourceKind, blockCapacity int) (*Arena[T], error) {
	if blockCapacity <= 0 || blockCapacity > maxBlockCapacity {
		err := fmt.Errorf("arena block capacity %d out of range (1..%d): %w", blockCapacity, maxBlockCapacity, core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return nil, err
	}
	a := &Arena[T]{
		kind:          kind,
		blockCapacity: blockCapacity,
		free:          NewStack[slotIndex](blockCapacity),
	}
	if err := a.addBlock(); err != nil {
		return nil, err
	}
	return a, nil
}

// addBlock allocates a new block and pushes its slots so that the lowest index is popped first.
func (a *Arena[T]) addBlock() error {
	if len(a.blocks) >= maxBlocks {
		err := fmt.Errorf("%s arena reached %d blocks: %w", a.kind, maxBlocks, core.ErrCapacityExceeded)
		core.LogError(err.Error())
		return err
	}
	block := uint16(len(a.blocks))
	a.blocks = append(a.blocks, make([]arenaSlot[T], a.blockCapacity))
	for i := a.blockCapacity - 1; i >= 0; i-- {
		a.free.Push(slotIndex{block: block, slot: uint32(i)})
	}
	return nil
}

func (a *Arena[T]) Store(value T) (Handle[T], error) {
	if a.free.IsEmpty() {
		if err := a.addBlock(); err != nil {
			return Handle[T]{}, err
		}
	}
	idx, _ := a.free.Pop()
	s := &a.blocks[idx.block][idx.slot]
	s.generation++
	if s.generation == 0 {
		// skip 0 on wrap-around, it marks the zero handle
		s.generation = 1
	}
	s.value = value
	s.live = true
	a.count++

	return Handle[T]{
		kind:       a.kind,
		block:      idx.block,
		slot:       idx.slot,
		generation: s.generation,
	}, nil
}

func (a *Arena[T]) slot(h Handle[T]) (*arenaSlot[T], error) {
	if h.kind != a.kind || int(h.block) >= len(a.blocks) || int(h.slot) >= a.blockCapacity {
		return nil, fmt.Errorf("handle %s does not belong to the %s arena: %w", h, a.kind, core.ErrStaleHandle)
	}
	s := &a.blocks[h.block][h.slot]
	if !s.live || s.generation != h.generation {
		return nil, fmt.Errorf("handle %s is stale (slot generation %d): %w", h, s.generation, core.ErrStaleHandle)
	}
	return s, nil
}

// Get returns a pointer to the stored value. The pointer stays valid until the handle is removed.
func (a *Arena[T]) Get(h Handle[T]) (*T, error) {
	s, err := a.slot(h)
	if err != nil {
		return nil, err
	}
	return &s.value, nil
}

func (a *Arena[T]) Remove(h Handle[T]) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	var zero T
	s.value = zero
	s.live = false
	a.count--
	a.free.Push(slotIndex{block: h.block, slot: h.slot})
	return nil
}

// Each calls fn for every live value, in block/slot order, until fn returns false.
func (a *Arena[T]) Each(fn func(h Handle[T], value *T) bool) {
	for b := range a.blocks {
		for i := range a.blocks[b] {
			s := &a.blocks[b][i]
			if !s.live {
				continue
			}
			h := Handle[T]{kind: a.kind, block: uint16(b), slot: uint32(i), generation: s.generation}
			if !fn(h, &s.value) {
				return
			}
		}
	}
}

func (a *Arena[T]) Len() int {
	return a.count
}

func (a *Arena[T]) Blocks() int {
	return len(a.blocks)
}

func (a *Arena[T]) BlockCapacity() int {
	return a.blockCapacity
}

func (a *Arena[T]) Kind() ResourceKind {
	return a.kind
}
