// Package fetch resolves tile addresses through the disk tier and the
// network using a bounded worker pool fed from a LIFO queue.
package fetch

import (
	"sync"

	"optymap/internal/tile"
	"optymap/pkg/metrics"
)

// Queue is a stack of pending tile addresses with a companion in-flight set.
// An address stays in the set from Push until Release, so it can be queued
// or processed at most once at a time. LIFO order means the most recently
// requested tile is served next, which matches where the user is looking
// while panning.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []tile.Address
	inflight map[tile.Address]struct{}
	closed   bool
}

func NewQueue() *Queue {
	q := &Queue{
		inflight: make(map[tile.Address]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues the address at the LIFO head. It is a no-op returning false
// when the address is already queued or in flight, or when the queue is
// closed.
func (q *Queue) Push(a tile.Address) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if _, ok := q.inflight[a]; ok {
		return false
	}

	q.inflight[a] = struct{}{}
	q.pending = append(q.pending, a)
	metrics.QueueDepth.Set(float64(len(q.pending)))

	q.cond.Signal()
	return true
}

// Pop blocks until an address is available and returns it. The address stays
// in the in-flight set until the caller invokes Release. Pop returns false
// once the queue has been closed.
func (q *Queue) Pop() (tile.Address, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return tile.Address{}, false
	}

	a := q.pending[len(q.pending)-1]
	q.pending = q.pending[:len(q.pending)-1]
	metrics.QueueDepth.Set(float64(len(q.pending)))

	return a, true
}

// Release frees the in-flight slot of an address a worker has finished with,
// successfully or not. A later Push may queue it again.
func (q *Queue) Release(a tile.Address) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, a)
}

// CancelStale drops queued-but-not-started addresses for which keep returns
// false, bounding queue growth during fast panning. Addresses already popped
// by a worker are unaffected. The removed addresses are returned so the
// owner can reset any bookkeeping tied to them.
func (q *Queue) CancelStale(keep func(tile.Address) bool) []tile.Address {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed []tile.Address
	kept := q.pending[:0]
	for _, a := range q.pending {
		if keep(a) {
			kept = append(kept, a)
		} else {
			delete(q.inflight, a)
			removed = append(removed, a)
		}
	}
	q.pending = kept
	metrics.QueueDepth.Set(float64(len(q.pending)))

	return removed
}

// Len reports the number of queued-but-not-started addresses.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close wakes all blocked Pop calls and makes them return false. Pending
// addresses are discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.pending = nil
	metrics.QueueDepth.Set(0)

	q.cond.Broadcast()
}
