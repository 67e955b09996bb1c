// Package handoff transfers timestamped edges from the capture context
// to the decoder task. The queue is the only synchronization boundary in
// the pipeline: a single producer pushes without ever blocking, a single
// consumer blocks only while the queue is empty.
package handoff

import (
	"sync/atomic"

	"github.com/sweeney/crank-sensor/internal/tick"
)

// Edge is one sensor transition with its capture timestamp. Edges are
// immutable; ownership moves producer -> queue -> consumer.
type Edge struct {
	Timestamp tick.Ticks
}

// Queue is a bounded single-producer single-consumer FIFO of edges.
//
// TryPush never blocks: when the queue is full the incoming edge is
// dropped (drop-newest, so the retained edges stay contiguous and in
// order) and the overflow counter increments. The consumer receives from
// Edges(), which preserves the exact production order.
type Queue struct {
	ch        chan Edge
	overflows atomic.Uint64
}

// NewQueue creates a queue holding at most capacity edges.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Edge, capacity)}
}

// TryPush enqueues e if there is room. It reports whether the edge was
// accepted; a dropped edge increments the overflow counter. Safe to call
// from the capture event handler: no locks, no allocation, bounded time.
func (q *Queue) TryPush(e Edge) bool {
	select {
	case q.ch <- e:
		return true
	default:
		q.overflows.Add(1)
		return false
	}
}

// Edges returns the receive side of the queue. The consumer blocks here
// while the queue is empty; this is its sole suspension point.
func (q *Queue) Edges() <-chan Edge {
	return q.ch
}

// TryPop dequeues one edge without blocking.
func (q *Queue) TryPop() (Edge, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return Edge{}, false
	}
}

// Len returns the number of edges currently queued.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Overflows returns the total number of edges dropped because the queue
// was full. Monotonically increasing for the life of the process.
func (q *Queue) Overflows() uint64 {
	return q.overflows.Load()
}
