// Package workqueue provides a bounded FIFO of work items that tracks
// unfinished work, so producers can wait until every item has been handled.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrFull is returned by Put when the queue is at capacity.
var ErrFull = errors.New("workqueue: queue is full")

// Queue is a bounded queue with a join barrier. Every item taken with Get
// must be marked with Done; Join returns once all items put so far are done.
type Queue[T any] struct {
	items chan T

	mu         sync.Mutex
	unfinished int
	drained    chan struct{}
}

// New creates a queue that holds up to capacity pending items.
func New[T any](capacity int) *Queue[T] {
	drained := make(chan struct{})
	close(drained)
	return &Queue[T]{
		items:   make(chan T, capacity),
		drained: drained,
	}
}

// Put enqueues item without blocking.
func (q *Queue[T]) Put(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case q.items <- item:
	default:
		return ErrFull
	}
	if q.unfinished == 0 {
		q.drained = make(chan struct{})
	}
	q.unfinished++
	return nil
}

// Get blocks until an item is available or ctx is done.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("workqueue get: %w", ctx.Err())
	case item := <-q.items:
		return item, nil
	}
}

// Done marks one previously fetched item as processed.
func (q *Queue[T]) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("workqueue: Done called more times than Put")
	}
	q.unfinished--
	if q.unfinished == 0 {
		close(q.drained)
	}
}

// Join blocks until every item put into the queue has been marked Done,
// or ctx is done.
func (q *Queue[T]) Join(ctx context.Context) error {
	q.mu.Lock()
	drained := q.drained
	q.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("workqueue join: %w", ctx.Err())
	}
}

// Unfinished returns the number of items put but not yet marked Done.
func (q *Queue[T]) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}
