// Package gpio captures crank sensor edges with hardware abstraction.
// The real implementation uses the Linux GPIO character device with
// kernel-stamped edge events; the fake implementation feeds scripted
// edges through the identical debounce path for tests.
package gpio

import (
	"sync/atomic"

	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/tick"
)

// Source delivers debounced, timestamped edges into a hand-off queue.
type Source interface {
	// Start begins edge delivery.
	Start() error

	// Close stops delivery and releases hardware resources.
	Close() error
}

// Edge selects which sensor transitions are captured.
type Edge string

const (
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// Default line configuration (Raspberry Pi, BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// filter is the capture-layer debounce. An edge arriving less than
// minPeriod ticks after the last accepted edge is bounce and is dropped
// before it reaches the queue. Mutated only from the capture context.
type filter struct {
	minPeriod tick.Ticks
	last      tick.Ticks
	hasLast   bool
	rejected  atomic.Uint64 // read from other goroutines for reporting
}

// offer forwards an edge to the queue unless debounce rejects it.
// It reports whether the edge was forwarded.
func (f *filter) offer(ts tick.Ticks, q *handoff.Queue) bool {
	if f.hasLast && tick.Sub(ts, f.last) < f.minPeriod {
		f.rejected.Add(1)
		return false
	}
	f.last = ts
	f.hasLast = true
	q.TryPush(handoff.Edge{Timestamp: ts})
	return true
}
