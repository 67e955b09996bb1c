//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/tick"
)

// RealSource captures edges from actual hardware via the Linux GPIO
// character device. The kernel stamps each event from CLOCK_MONOTONIC;
// the event handler converts that to ticks, applies debounce, and
// pushes into the hand-off queue. The handler does nothing else: no
// allocation beyond the edge value, no locks, no logging.
type RealSource struct {
	chip      string
	pin       int
	edge      Edge
	minPeriod tick.Ticks
	hz        int
	queue     *handoff.Queue
	clock     tick.Clock

	filt filter
	line *gpiocdev.Line
}

// NewRealSource creates a capture source for the given chip and line.
// minPeriod is the debounce threshold in ticks at rate hz; edges closer
// together than that are discarded as bounce.
func NewRealSource(chip string, pin int, edge Edge, minPeriod tick.Ticks, hz int, q *handoff.Queue) (*RealSource, error) {
	switch edge {
	case EdgeRising, EdgeFalling, EdgeBoth:
	default:
		return nil, fmt.Errorf("unknown edge selection %q", edge)
	}
	return &RealSource{
		chip:      chip,
		pin:       pin,
		edge:      edge,
		minPeriod: minPeriod,
		hz:        hz,
		queue:     q,
		clock:     tick.NewSystemClock(hz),
		filt:      filter{minPeriod: minPeriod},
	}, nil
}

// Start requests the line with edge detection and begins delivery.
func (s *RealSource) Start() error {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithMonotonicEventClock,
		gpiocdev.WithEventHandler(s.handleEvent),
	}

	switch s.edge {
	case EdgeRising:
		opts = append(opts, gpiocdev.WithRisingEdge)
	case EdgeFalling:
		opts = append(opts, gpiocdev.WithFallingEdge)
	default:
		opts = append(opts, gpiocdev.WithBothEdges)
	}

	// A coarse kernel-side debounce below our own threshold filters
	// the worst contact bounce before it generates events at all.
	if kd := tick.ToDuration(s.minPeriod, s.hz) / 4; kd >= time.Microsecond {
		opts = append(opts, gpiocdev.WithDebounce(kd))
	}

	line, err := gpiocdev.RequestLine(s.chip, s.pin, opts...)
	if err != nil {
		return fmt.Errorf("request line %s:%d: %w", s.chip, s.pin, err)
	}
	s.line = line
	return nil
}

// handleEvent runs in the event delivery goroutine, one event at a
// time. It is the producer side of the hand-off queue.
func (s *RealSource) handleEvent(evt gpiocdev.LineEvent) {
	ts := tick.FromDuration(evt.Timestamp, s.hz)
	if evt.Timestamp == 0 {
		// Older kernels omit the event timestamp; fall back to reading
		// the clock here. More jitter, same time base.
		ts = s.clock.Now()
	}
	s.filt.offer(ts, s.queue)
}

// Rejected returns the number of edges discarded by debounce.
func (s *RealSource) Rejected() uint64 {
	return s.filt.rejected.Load()
}

// Close releases the GPIO line.
func (s *RealSource) Close() error {
	if s.line == nil {
		return nil
	}
	if err := s.line.Close(); err != nil {
		return fmt.Errorf("close line %s:%d: %w", s.chip, s.pin, err)
	}
	s.line = nil
	return nil
}
