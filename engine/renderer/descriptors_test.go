package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
	"github.com/spaghettifunk/framecore/engine/renderer/software"
)

func uniformLayout(t *testing.T, dev renderer.Device) *metadata.DescriptorSetLayout {
	t.Helper()
	builder := &renderer.DescriptorLayoutBuilder{}
	require.NoError(t, builder.AddBinding(0, metadata.DescriptorTypeUniformBuffer))
	layout, err := builder.Build(dev, metadata.ShaderStageAll)
	require.NoError(t, err)
	return layout
}

func TestDescriptorAllocatorGrowsOnceForFifthSet(t *testing.T) {
	dev := software.New()
	layout := uniformLayout(t, dev)
	alloc, err := renderer.NewDescriptorAllocator(dev, 4, []metadata.PoolSizeRatio{
		{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 1},
	})
	require.NoError(t, err)

	sets := make([]*metadata.DescriptorSet, 0, 5)
	for i := 0; i < 5; i++ {
		set, err := alloc.Allocate(layout)
		require.NoError(t, err)
		sets = append(sets, set)
	}

	stats := alloc.Stats()
	assert.Equal(t, 1, stats.Growths)
	assert.Equal(t, 2, stats.PoolsCreated)
	assert.Equal(t, 5, stats.SetsAllocated)

	seen := map[*metadata.DescriptorSet]bool{}
	for _, s := range sets {
		assert.False(t, seen[s])
		seen[s] = true
		assert.True(t, dev.SetValid(s), "growth must not invalidate earlier sets")
	}
	for _, s := range sets[1:4] {
		assert.Same(t, sets[0].Pool, s.Pool)
	}
	assert.NotSame(t, sets[0].Pool, sets[4].Pool)

	require.NoError(t, alloc.Clear())
	for _, s := range sets {
		assert.False(t, dev.SetValid(s))
	}

	// pools created before the clear are reused
	for i := 0; i < 5; i++ {
		_, err := alloc.Allocate(layout)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, alloc.Stats().PoolsCreated)
	assert.Equal(t, dev.Stats().PoolsCreated, alloc.Stats().PoolsCreated)
	alloc.Destroy()
}

func TestDescriptorAllocatorFillsANodeBeforeAddingAnother(t *testing.T) {
	dev := software.New()
	layout := uniformLayout(t, dev)
	alloc, err := renderer.NewDescriptorAllocator(dev, 1, []metadata.PoolSizeRatio{
		{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 1},
	})
	require.NoError(t, err)

	for i := 0; i < renderer.PoolsPerNode+1; i++ {
		_, err := alloc.Allocate(layout)
		require.NoError(t, err)
	}
	stats := alloc.Stats()
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, renderer.PoolsPerNode+1, stats.PoolsCreated)
	assert.Equal(t, renderer.PoolsPerNode, stats.Growths)
}

func TestDescriptorAllocatorFailsWhenAFreshPoolCannotServeTheLayout(t *testing.T) {
	dev := software.New()
	builder := &renderer.DescriptorLayoutBuilder{}
	for b := uint32(0); b < 3; b++ {
		require.NoError(t, builder.AddBinding(b, metadata.DescriptorTypeStorageImage))
	}
	layout, err := builder.Build(dev, metadata.ShaderStageCompute)
	require.NoError(t, err)

	// two storage images per pool can never fit a three binding layout
	alloc, err := renderer.NewDescriptorAllocator(dev, 2, []metadata.PoolSizeRatio{
		{Type: metadata.DescriptorTypeStorageImage, Ratio: 1},
	})
	require.NoError(t, err)

	_, err = alloc.Allocate(layout)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	assert.True(t, core.IsFatal(err))
	assert.Equal(t, 1, alloc.Stats().Growths)
}

func TestDescriptorPoolSizesRoundUp(t *testing.T) {
	dev := software.New()
	builder := &renderer.DescriptorLayoutBuilder{}
	require.NoError(t, builder.AddBinding(0, metadata.DescriptorTypeCombinedImageSampler))
	layout, err := builder.Build(dev, metadata.ShaderStageFragment)
	require.NoError(t, err)

	// ceil(10 * 0.25) = 3 samplers per pool
	alloc, err := renderer.NewDescriptorAllocator(dev, 10, []metadata.PoolSizeRatio{
		{Type: metadata.DescriptorTypeCombinedImageSampler, Ratio: 0.25},
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := alloc.Allocate(layout)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, alloc.Stats().Growths)
	_, err = alloc.Allocate(layout)
	require.NoError(t, err)
	assert.Equal(t, 1, alloc.Stats().Growths)

	pool, err := dev.CreateDescriptorPool(1, nil)
	require.NoError(t, err)
	_, err = dev.AllocateDescriptorSet(pool, layout)
	assert.ErrorIs(t, err, core.ErrPoolExhausted)
}

func TestDescriptorLayoutBuilderLimit(t *testing.T) {
	dev := software.New()
	builder := &renderer.DescriptorLayoutBuilder{}
	for b := uint32(0); b < renderer.MaxLayoutBindings; b++ {
		require.NoError(t, builder.AddBinding(b, metadata.DescriptorTypeStorageBuffer))
	}
	assert.ErrorIs(t, builder.AddBinding(8, metadata.DescriptorTypeStorageBuffer), core.ErrCapacityExceeded)

	layout, err := builder.Build(dev, metadata.ShaderStageFragment)
	require.NoError(t, err)
	require.Len(t, layout.Bindings, renderer.MaxLayoutBindings)
	for _, b := range layout.Bindings {
		assert.Equal(t, metadata.ShaderStageFragment, b.Stages)
		assert.Equal(t, uint32(1), b.Count)
	}

	builder.Clear()
	require.NoError(t, builder.AddBinding(0, metadata.DescriptorTypeSampler))
}
