// Package queue provides an unbounded FIFO queue whose producers never block.
//
// The worker pool feeds jobs through it and the headless delivery loop feeds
// owner messages through it. Neither applies backpressure: if producers
// outrun the consumer the queue keeps growing. This is a known limit of the
// dispatcher, not something the queue tries to hide.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is an unbounded, multi-producer multi-consumer FIFO.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	ready  chan struct{} // closed and replaced whenever items arrive or the queue closes
	closed bool
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{})}
}

// Push appends v. It never blocks. Returns false if the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.wake()
	return true
}

// Pop removes and returns the oldest item, blocking until one is available.
// After Close, Pop keeps returning queued items and then ErrClosed.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if q.head < len(q.items) {
			v := q.take()
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			var zero T
			return zero, ErrClosed
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop returns the oldest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head < len(q.items) {
		return q.take(), true
	}
	var zero T
	return zero, false
}

// Close stops accepting new items. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.wake()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// take must be called with mu held and at least one item queued.
func (q *Queue[T]) take() T {
	var zero T
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// Compact once the consumed prefix dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}

// wake must be called with mu held.
func (q *Queue[T]) wake() {
	close(q.ready)
	q.ready = make(chan struct{})
}
