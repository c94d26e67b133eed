package circular

// Buffer is a fixed capacity ring. Pushing into a full buffer overwrites the oldest value.
type Buffer[T any] struct {
	capacity uint

	head uint
	size uint
	data []T
}

func NewBuffer[T any](capacity uint) *Buffer[T] {
	if capacity == 0 {
		panic("capacity must > 0")
	}
	return &Buffer[T]{
		capacity: capacity,
		data:     make([]T, capacity),
	}
}

func (b *Buffer[T]) Capacity() uint {
	return b.capacity
}

func (b *Buffer[T]) Size() uint {
	return b.size
}

func (b *Buffer[T]) Push(value T) {
	b.data[b.head] = value
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Get returns the value idx positions back from the newest one.
func (b *Buffer[T]) Get(idx uint) T {
	if idx >= b.size {
		panic("index out of range")
	}
	return b.data[(b.head+b.capacity-1-idx)%b.capacity]
}

// First is the newest value.
func (b *Buffer[T]) First() T {
	return b.Get(0)
}

// Last is the oldest value.
func (b *Buffer[T]) Last() T {
	return b.Get(b.size - 1)
}

func (b *Buffer[T]) IsFull() bool {
	return b.size == b.capacity
}

func (b *Buffer[T]) IsEmpty() bool {
	return b.size == 0
}

// Data copies the content ordered from the oldest to the newest value.
func (b *Buffer[T]) Data() []T {
	return b.Tail(b.size)
}

// Tail copies the n newest values ordered from the oldest to the newest one.
// n larger than Size is clamped.
func (b *Buffer[T]) Tail(n uint) []T {
	if n > b.size {
		n = b.size
	}
	out := make([]T, n)
	for i := uint(0); i < n; i++ {
		out[i] = b.Get(n - 1 - i)
	}
	return out
}
