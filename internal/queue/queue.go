// Package queue provides a FIFO queue for values owned by a single goroutine.
package queue

// Queue defines the interface for a FIFO queue of T.
type Queue[T any] interface {
	// Enqueue adds an item to the tail of the queue.
	Enqueue(T)
	// Dequeue removes and returns the item at the head of the queue.
	// ok is false if the queue is empty.
	Dequeue() (item T, ok bool)
	// Peek returns the item at the head of the queue without removing it.
	Peek() (item T, ok bool)
	// Items returns a copy of all items in order without removing them.
	Items() []T
	// Drain removes and returns all items in order.
	Drain() []T
	// Reset to an empty queue
	Reset()
	// IsEmpty returns true if the queue is empty, false otherwise.
	IsEmpty() bool
	// Length returns the number of items in the queue.
	Length() int
}
