package containers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/core"
)

type payload struct {
	name string
	size uint64
}

func TestArenaNinthStoreAddsOneBlock(t *testing.T) {
	a, err := NewArena[payload](ResourceKindBuffer, 8)
	require.NoError(t, err)
	require.Equal(t, 1, a.Blocks())

	handles := make([]Handle[payload], 0, 9)
	for i := 0; i < 9; i++ {
		h, err := a.Store(payload{name: fmt.Sprintf("p%d", i), size: uint64(i) * 16})
		require.NoError(t, err)
		if i < 8 {
			assert.Equal(t, 1, a.Blocks(), "store %d should fit in the first block", i)
		}
		handles = append(handles, h)
	}
	assert.Equal(t, 2, a.Blocks())
	assert.Equal(t, 9, a.Len())

	for i, h := range handles {
		v, err := a.Get(h)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("p%d", i), v.name)
		assert.Equal(t, uint64(i)*16, v.size)
	}
	assert.Equal(t, 1, handles[8].Block())
	assert.Equal(t, 0, handles[8].Slot())
}

func TestArenaRemoveRecyclesSlotWithNewGeneration(t *testing.T) {
	a, err := NewArena[int](ResourceKindMesh, 4)
	require.NoError(t, err)

	h1, err := a.Store(1)
	require.NoError(t, err)
	h2, err := a.Store(2)
	require.NoError(t, err)

	require.NoError(t, a.Remove(h1))
	_, err = a.Get(h1)
	assert.ErrorIs(t, err, core.ErrStaleHandle)
	assert.ErrorIs(t, a.Remove(h1), core.ErrStaleHandle)

	h3, err := a.Store(3)
	require.NoError(t, err)
	assert.Equal(t, h1.Block(), h3.Block())
	assert.Equal(t, h1.Slot(), h3.Slot())
	assert.NotEqual(t, h1.Generation(), h3.Generation())

	// the old handle still does not observe the new value
	_, err = a.Get(h1)
	assert.ErrorIs(t, err, core.ErrStaleHandle)

	v, err := a.Get(h3)
	require.NoError(t, err)
	assert.Equal(t, 3, *v)

	// other handles are untouched by the remove
	v, err = a.Get(h2)
	require.NoError(t, err)
	assert.Equal(t, 2, *v)
}

func TestArenaValuesDoNotMove(t *testing.T) {
	a, err := NewArena[int](ResourceKindBuffer, 2)
	require.NoError(t, err)

	h, err := a.Store(42)
	require.NoError(t, err)
	before, err := a.Get(h)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := a.Store(i)
		require.NoError(t, err)
	}
	after, err := a.Get(h)
	require.NoError(t, err)
	assert.Same(t, before, after)

	*after = 7
	v, _ := a.Get(h)
	assert.Equal(t, 7, *v)
}

func TestArenaRejectsForeignHandles(t *testing.T) {
	buffers, err := NewArena[int](ResourceKindBuffer, 4)
	require.NoError(t, err)
	images, err := NewArena[int](ResourceKindImage, 4)
	require.NoError(t, err)

	h, err := images.Store(5)
	require.NoError(t, err)

	_, err = buffers.Get(h)
	assert.ErrorIs(t, err, core.ErrStaleHandle)

	_, err = buffers.Get(Handle[int]{})
	assert.ErrorIs(t, err, core.ErrStaleHandle)
}

func TestArenaEach(t *testing.T) {
	a, err := NewArena[int](ResourceKindCustom, 3)
	require.NoError(t, err)

	var hs []Handle[int]
	for i := 0; i < 5; i++ {
		h, err := a.Store(i * 10)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	require.NoError(t, a.Remove(hs[1]))

	var seen []int
	a.Each(func(h Handle[int], v *int) bool {
		seen = append(seen, *v)
		return true
	})
	assert.Equal(t, []int{0, 20, 30, 40}, seen)
}

func TestNewArenaRejectsBadCapacity(t *testing.T) {
	_, err := NewArena[int](ResourceKindBuffer, 0)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
}

func TestHandleIDRoundTrip(t *testing.T) {
	h := Handle[payload]{kind: ResourceKindImage, block: 3, slot: 1234, generation: 9}
	got := HandleFromID[payload](h.ID())
	assert.Equal(t, h, got)
	assert.Equal(t, "image#3:1234@9", h.String())
	assert.True(t, Handle[payload]{}.IsZero())
}
