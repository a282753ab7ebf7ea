package queue

// sliceQueue implements the Queue interface using a slice.
//
// It is not safe for concurrent use.
type sliceQueue[T any] struct {
	items []T
}

var _ Queue[int] = (*sliceQueue[int])(nil)

// NewSliceQueue creates a new slice backed Queue with room for prealloc items.
func NewSliceQueue[T any](prealloc int) Queue[T] {
	return &sliceQueue[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds an item to the tail of the queue.
func (q *sliceQueue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the item at the head of the queue.
func (q *sliceQueue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero // release the reference
	q.items = q.items[1:]

	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *sliceQueue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	return q.items[0], true
}

// Items returns a copy of all items in order without removing them.
func (q *sliceQueue[T]) Items() []T {
	out := make([]T, len(q.items))
	copy(out, q.items)

	return out
}

// Drain removes and returns all items in order.
func (q *sliceQueue[T]) Drain() []T {
	out := q.Items()
	q.Reset()

	return out
}

// Reset resets the queue to an empty state.
func (q *sliceQueue[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0] // Reslice to 0 length to reuse the underlying array
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *sliceQueue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Length returns the number of items in the queue.
func (q *sliceQueue[T]) Length() int {
	return len(q.items)
}
