package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackPushPopOrder(t *testing.T) {
	s := NewStack[int](4)
	for i := 0; i < 10; i++ {
		s.Push(i)
	}
	require.Equal(t, 10, s.Len())

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 9, top)

	for i := 9; i >= 0; i-- {
		v, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = s.Pop()
	assert.False(t, ok)
	assert.True(t, s.IsEmpty())
}

func TestStackGrowsOneBlockAtATime(t *testing.T) {
	s := NewStack[int](4)
	assert.Equal(t, 1, s.Blocks())

	for i := 0; i < 4; i++ {
		s.Push(i)
	}
	assert.Equal(t, 1, s.Blocks())

	s.Push(4)
	assert.Equal(t, 2, s.Blocks())
}

func TestStackShrinkKeepsOneSpareBlock(t *testing.T) {
	s := NewStack[int](4)
	for i := 0; i < 9; i++ {
		s.Push(i)
	}
	require.Equal(t, 3, s.Blocks())

	// 8 elements: blocks 0 and 1 full, block 2 empty. One empty trailing block is kept.
	s.Pop()
	assert.Equal(t, 3, s.Blocks())

	// 4 elements: blocks 1 and 2 both empty, one of them goes.
	for s.Len() > 4 {
		s.Pop()
	}
	assert.Equal(t, 2, s.Blocks())

	// hovering around the boundary does not allocate again
	s.Push(100)
	s.Pop()
	s.Push(101)
	assert.Equal(t, 2, s.Blocks())
}

func TestStackDrainsToSingleBlock(t *testing.T) {
	s := NewStack[string](2)
	for i := 0; i < 7; i++ {
		s.Push("x")
	}
	require.Equal(t, 4, s.Blocks())
	for !s.IsEmpty() {
		s.Pop()
	}
	// an empty stack keeps its first block and one spare
	assert.Equal(t, 2, s.Blocks())
}
