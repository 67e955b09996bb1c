package gpio

import (
	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/tick"
)

// FakeSource is a test double that injects scripted edges through the
// same debounce filter the real source uses.
type FakeSource struct {
	// Script contains edge timestamps delivered when Start is called.
	Script []tick.Ticks

	// StartError, if set, is returned by Start.
	StartError error

	// Closed tracks whether Close was called.
	Closed bool

	queue *handoff.Queue
	filt  filter
}

// NewFakeSource creates a FakeSource feeding the given queue.
// minPeriod is the debounce threshold in ticks.
func NewFakeSource(q *handoff.Queue, minPeriod tick.Ticks) *FakeSource {
	return &FakeSource{
		queue: q,
		filt:  filter{minPeriod: minPeriod},
	}
}

// Start delivers any scripted edges.
func (f *FakeSource) Start() error {
	if f.StartError != nil {
		return f.StartError
	}
	for _, ts := range f.Script {
		f.filt.offer(ts, f.queue)
	}
	return nil
}

// Inject delivers one edge, as if the sensor line had transitioned at
// the given tick. It reports whether the edge passed debounce.
func (f *FakeSource) Inject(ts tick.Ticks) bool {
	return f.filt.offer(ts, f.queue)
}

// Rejected returns the number of edges discarded by debounce.
func (f *FakeSource) Rejected() uint64 {
	return f.filt.rejected.Load()
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
