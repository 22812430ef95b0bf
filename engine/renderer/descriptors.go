package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// PoolsPerNode is the number of pool slots reserved by one allocator node.
const PoolsPerNode = 10

type poolNode struct {
	pools [PoolsPerNode]*metadata.DescriptorPool
	// number of pools created in this node, they occupy slots [0, created)
	created int
}

// DescriptorAllocatorStats is a snapshot of an allocator's counters.
type DescriptorAllocatorStats struct {
	Nodes         int
	PoolsCreated  int
	Growths       int
	SetsAllocated int
}

// DescriptorAllocator hands out descriptor sets from a growing sequence of pools. Sets are
// never freed one by one: Clear resets every pool at once. Growing never touches a pool
// that already handed out sets, so sets stay valid until the next Clear.
type DescriptorAllocator struct {
	device   Device
	maxSets  uint32
	sizes    []metadata.DescriptorPoolSize
	nodes    []*poolNode
	node     int
	active   int
	growths  int
	setCount int
}

// NewDescriptorAllocator creates the allocator with one pool of setCapacity sets, each
// descriptor type sized setCapacity*ratio.
func NewDescriptorAllocator(device Device, setCapacity uint32, ratios []metadata.PoolSizeRatio) (*DescriptorAllocator, error) {
	if setCapacity == 0 {
		err := fmt.Errorf("descriptor allocator needs a positive set capacity: %w", core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	sizes := make([]metadata.DescriptorPoolSize, 0, len(ratios))
	for _, r := range ratios {
		sizes = append(sizes, metadata.DescriptorPoolSize{
			Type:  r.Type,
			Count: uint32(math.Ceil(float64(setCapacity) * float64(r.Ratio))),
		})
	}

	da := &DescriptorAllocator{
		device:  device,
		maxSets: setCapacity,
		sizes:   sizes,
		nodes:   []*poolNode{{}},
	}
	if _, err := da.ensurePool(0, 0); err != nil {
		return nil, err
	}
	return da, nil
}

// ensurePool returns the pool at (node, slot), creating it if the slot was never used.
// Pools created before a Clear are reused as they are.
func (da *DescriptorAllocator) ensurePool(node, slot int) (*metadata.DescriptorPool, error) {
	n := da.nodes[node]
	if slot < n.created {
		return n.pools[slot], nil
	}
	pool, err := da.device.CreateDescriptorPool(da.maxSets, da.sizes)
	if err != nil {
		err = fmt.Errorf("failed to create descriptor pool %d/%d: %w", node, slot, err)
		core.LogError(err.Error())
		return nil, err
	}
	n.pools[slot] = pool
	n.created++
	return pool, nil
}

func (da *DescriptorAllocator) current() *metadata.DescriptorPool {
	return da.nodes[da.node].pools[da.active]
}

// grow moves to the next sibling slot of the current node, or to a new node once every
// slot of the current one is in use.
func (da *DescriptorAllocator) grow() error {
	node, slot := da.node, da.active+1
	if slot == PoolsPerNode {
		node, slot = da.node+1, 0
		if node == len(da.nodes) {
			da.nodes = append(da.nodes, &poolNode{})
		}
	}
	if _, err := da.ensurePool(node, slot); err != nil {
		return err
	}
	da.node, da.active = node, slot
	da.growths++
	core.LogDebug("descriptor allocator grew to node %d pool %d", node, slot)
	return nil
}

// Allocate returns a set with the given layout. When the active pool is exhausted the
// allocator grows and retries exactly once.
func (da *DescriptorAllocator) Allocate(layout *metadata.DescriptorSetLayout) (*metadata.DescriptorSet, error) {
	set, err := da.device.AllocateDescriptorSet(da.current(), layout)
	if err == nil {
		da.setCount++
		return set, nil
	}
	if !errors.Is(err, core.ErrPoolExhausted) {
		err = fmt.Errorf("descriptor set allocation failed: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	if err := da.grow(); err != nil {
		return nil, err
	}
	set, err = da.device.AllocateDescriptorSet(da.current(), layout)
	if err != nil {
		err = fmt.Errorf("descriptor set allocation failed after growing (%v): %w", err, core.ErrResourceCreation)
		core.LogError(err.Error())
		return nil, err
	}
	da.setCount++
	return set, nil
}

// Clear resets every pool of every node. All sets handed out so far become invalid.
func (da *DescriptorAllocator) Clear() error {
	for i, n := range da.nodes {
		for s := 0; s < n.created; s++ {
			if err := da.device.ResetDescriptorPool(n.pools[s]); err != nil {
				err = fmt.Errorf("failed to reset descriptor pool %d/%d: %w", i, s, err)
				core.LogError(err.Error())
				return err
			}
		}
	}
	da.node, da.active = 0, 0
	da.setCount = 0
	return nil
}

// Destroy releases every pool and every node. The allocator cannot be used afterwards.
func (da *DescriptorAllocator) Destroy() {
	for _, n := range da.nodes {
		for s := 0; s < n.created; s++ {
			da.device.DestroyDescriptorPool(n.pools[s])
			n.pools[s] = nil
		}
		n.created = 0
	}
	da.nodes = nil
	da.node, da.active = 0, 0
}

func (da *DescriptorAllocator) Stats() DescriptorAllocatorStats {
	stats := DescriptorAllocatorStats{
		Nodes:         len(da.nodes),
		Growths:       da.growths,
		SetsAllocated: da.setCount,
	}
	for _, n := range da.nodes {
		stats.PoolsCreated += n.created
	}
	return stats
}
