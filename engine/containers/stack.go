package containers

// Stack is a block-based FILO container. It grows one fixed-size block at a time and only
// gives a trailing empty block back once at least two trailing blocks are empty, so pushes
// and pops that hover around a block boundary do not allocate and free on every call.
type Stack[T any] struct {
	blockSize int
	blocks    [][]T
	count     int
}

func NewStack[T any](blockSize int) *Stack[T] {
	if blockSize <= 0 {
		blockSize = 1
	}
	return &Stack[T]{
		blockSize: blockSize,
		blocks:    [][]T{make([]T, blockSize)},
	}
}

func (s *Stack[T]) Push(value T) {
	if s.count == len(s.blocks)*s.blockSize {
		s.blocks = append(s.blocks, make([]T, s.blockSize))
	}
	s.blocks[s.count/s.blockSize][s.count%s.blockSize] = value
	s.count++
}

// Pop removes the top element. The second return value is false when the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.count == 0 {
		return zero, false
	}
	s.count--
	block, slot := s.count/s.blockSize, s.count%s.blockSize
	value := s.blocks[block][slot]
	s.blocks[block][slot] = zero

	if s.emptyTrailingBlocks() >= 2 {
		last := len(s.blocks) - 1
		s.blocks[last] = nil
		s.blocks = s.blocks[:last]
	}
	return value, true
}

func (s *Stack[T]) Peek() (T, bool) {
	if s.count == 0 {
		var zero T
		return zero, false
	}
	top := s.count - 1
	return s.blocks[top/s.blockSize][top%s.blockSize], true
}

func (s *Stack[T]) Len() int {
	return s.count
}

func (s *Stack[T]) IsEmpty() bool {
	return s.count == 0
}

// Blocks returns the number of blocks currently allocated.
func (s *Stack[T]) Blocks() int {
	return len(s.blocks)
}

func (s *Stack[T]) emptyTrailingBlocks() int {
	used := (s.count + s.blockSize - 1) / s.blockSize
	if used == 0 {
		used = 1
	}
	return len(s.blocks) - used
}
