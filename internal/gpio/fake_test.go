package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/tick"
)

func TestFakeSourceScript(t *testing.T) {
	q := handoff.NewQueue(16)
	f := NewFakeSource(q, 100)
	f.Script = []tick.Ticks{1000, 2000, 3000}

	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i, want := range f.Script {
		e, ok := q.TryPop()
		if !ok {
			t.Fatalf("edge %d missing from queue", i)
		}
		if e.Timestamp != want {
			t.Errorf("edge %d: timestamp %d, want %d", i, e.Timestamp, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("queue has extra edges")
	}
}

// TestDebounce verifies the capture-layer bounce rejection: edges closer
// than the minimum plausible period to the last accepted edge never
// reach the queue.
func TestDebounce(t *testing.T) {
	q := handoff.NewQueue(16)
	f := NewFakeSource(q, 100)

	if !f.Inject(1000) {
		t.Error("first edge rejected")
	}
	// Bounce 40 ticks later.
	if f.Inject(1040) {
		t.Error("bounce edge passed debounce")
	}
	// The bounce must not shift the debounce reference: an edge 100
	// ticks after the accepted edge passes.
	if !f.Inject(1100) {
		t.Error("edge one full threshold after the accepted edge was rejected")
	}

	if got := f.Rejected(); got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
	if q.Len() != 2 {
		t.Errorf("queue holds %d edges, want 2", q.Len())
	}
}

func TestDebounceAcrossWrap(t *testing.T) {
	q := handoff.NewQueue(16)
	f := NewFakeSource(q, 100)

	f.Inject(^tick.Ticks(0) - 20) // near the top of the counter
	if f.Inject(30) {             // 51 ticks later, across the wrap
		t.Error("bounce across the wrap boundary passed debounce")
	}
	if !f.Inject(90) { // 111 ticks after the accepted edge
		t.Error("valid edge across the wrap boundary was rejected")
	}
}

func TestFakeSourceStartError(t *testing.T) {
	q := handoff.NewQueue(4)
	f := NewFakeSource(q, 100)
	f.StartError = errors.New("no such line")
	f.Script = []tick.Ticks{1000}

	if err := f.Start(); err == nil {
		t.Fatal("Start did not propagate the error")
	}
	if q.Len() != 0 {
		t.Error("edges delivered despite Start error")
	}
}

func TestFakeSourceClose(t *testing.T) {
	f := NewFakeSource(handoff.NewQueue(1), 10)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.Closed {
		t.Error("Closed not set")
	}
}
