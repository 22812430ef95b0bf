package software

import (
	"fmt"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

type layoutData struct {
	id uint64
}

type poolData struct {
	id        uint64
	maxSets   uint32
	capacity  map[metadata.DescriptorType]uint32
	used      map[metadata.DescriptorType]uint32
	sets      uint32
	epoch     uint64
	destroyed bool
}

type setData struct {
	id    uint64
	pool  *poolData
	epoch uint64
	// written bindings
	buffers map[uint32]metadata.BufferView
	images  map[uint32]*metadata.Image
}

func (d *Device) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (*metadata.DescriptorSetLayout, error) {
	seen := make(map[uint32]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.Binding] {
			return nil, fmt.Errorf("binding %d declared twice: %w", b.Binding, core.ErrResourceCreation)
		}
		seen[b.Binding] = true
	}
	cp := make([]metadata.DescriptorBinding, len(bindings))
	copy(cp, bindings)
	return &metadata.DescriptorSetLayout{
		Bindings:     cp,
		InternalData: &layoutData{id: d.id()},
	}, nil
}

func (d *Device) DestroyDescriptorSetLayout(*metadata.DescriptorSetLayout) {}

func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []metadata.DescriptorPoolSize) (*metadata.DescriptorPool, error) {
	if maxSets == 0 {
		return nil, fmt.Errorf("descriptor pool without sets: %w", core.ErrResourceCreation)
	}
	data := &poolData{
		id:       d.id(),
		maxSets:  maxSets,
		capacity: make(map[metadata.DescriptorType]uint32, len(sizes)),
		used:     make(map[metadata.DescriptorType]uint32, len(sizes)),
	}
	for _, s := range sizes {
		data.capacity[s.Type] += s.Count
	}
	cp := make([]metadata.DescriptorPoolSize, len(sizes))
	copy(cp, sizes)
	d.stats.PoolsCreated++
	return &metadata.DescriptorPool{
		MaxSets:      maxSets,
		Sizes:        cp,
		InternalData: data,
	}, nil
}

func poolOf(p *metadata.DescriptorPool) *poolData {
	if p == nil {
		return nil
	}
	data, _ := p.InternalData.(*poolData)
	return data
}

func (d *Device) AllocateDescriptorSet(pool *metadata.DescriptorPool, layout *metadata.DescriptorSetLayout) (*metadata.DescriptorSet, error) {
	data := poolOf(pool)
	if data == nil || data.destroyed || layout == nil {
		return nil, fmt.Errorf("allocation from an invalid pool or layout: %w", core.ErrResourceCreation)
	}
	if data.sets >= data.maxSets {
		return nil, fmt.Errorf("pool %d has no sets left (%d): %w", data.id, data.maxSets, core.ErrPoolExhausted)
	}
	needed := make(map[metadata.DescriptorType]uint32, len(layout.Bindings))
	for _, b := range layout.Bindings {
		count := b.Count
		if count == 0 {
			count = 1
		}
		needed[b.Type] += count
	}
	for t, n := range needed {
		if data.used[t]+n > data.capacity[t] {
			return nil, fmt.Errorf("pool %d is out of %s descriptors: %w", data.id, t, core.ErrPoolExhausted)
		}
	}
	for t, n := range needed {
		data.used[t] += n
	}
	data.sets++
	d.stats.SetsAllocated++

	return &metadata.DescriptorSet{
		Pool:   pool,
		Layout: layout,
		InternalData: &setData{
			id:      d.id(),
			pool:    data,
			epoch:   data.epoch,
			buffers: make(map[uint32]metadata.BufferView),
			images:  make(map[uint32]*metadata.Image),
		},
	}, nil
}

func (d *Device) ResetDescriptorPool(pool *metadata.DescriptorPool) error {
	data := poolOf(pool)
	if data == nil || data.destroyed {
		return fmt.Errorf("reset of an invalid descriptor pool: %w", core.ErrResourceCreation)
	}
	data.sets = 0
	clear(data.used)
	data.epoch++
	return nil
}

func (d *Device) DestroyDescriptorPool(pool *metadata.DescriptorPool) {
	if data := poolOf(pool); data != nil {
		data.destroyed = true
	}
}

func setOf(s *metadata.DescriptorSet) *setData {
	if s == nil {
		return nil
	}
	data, _ := s.InternalData.(*setData)
	return data
}

// SetValid reports whether set was not invalidated by a reset or destruction of its pool.
func (d *Device) SetValid(set *metadata.DescriptorSet) bool {
	data := setOf(set)
	return data != nil && !data.pool.destroyed && data.epoch == data.pool.epoch
}

func (d *Device) writableSet(set *metadata.DescriptorSet, binding uint32) *setData {
	data := setOf(set)
	if data == nil || !d.SetValid(set) {
		d.violation("write to an invalid descriptor set")
		return nil
	}
	for _, b := range set.Layout.Bindings {
		if b.Binding == binding {
			return data
		}
	}
	d.violation("write to binding %d missing from the layout of set %d", binding, data.id)
	return nil
}

func (d *Device) WriteDescriptorBuffer(set *metadata.DescriptorSet, binding uint32, kind metadata.DescriptorType, view metadata.BufferView) {
	if data := d.writableSet(set, binding); data != nil {
		data.buffers[binding] = view
	}
}

func (d *Device) WriteDescriptorImage(set *metadata.DescriptorSet, binding uint32, kind metadata.DescriptorType, image *metadata.Image, layout metadata.ImageLayout) {
	if data := d.writableSet(set, binding); data != nil {
		data.images[binding] = image
	}
}

// BoundBuffer returns the buffer view written at binding of set.
func (d *Device) BoundBuffer(set *metadata.DescriptorSet, binding uint32) (metadata.BufferView, bool) {
	data := setOf(set)
	if data == nil {
		return metadata.BufferView{}, false
	}
	v, ok := data.buffers[binding]
	return v, ok
}
