//go:build !linux

package gpio

import (
	"fmt"

	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/tick"
)

// RealSource is unavailable off Linux; the character device interface
// is Linux-only. This stub keeps non-Linux development builds working.
type RealSource struct{}

// NewRealSource always fails on non-Linux platforms.
func NewRealSource(chip string, pin int, edge Edge, minPeriod tick.Ticks, hz int, q *handoff.Queue) (*RealSource, error) {
	return nil, fmt.Errorf("gpio edge capture requires linux")
}

// Start is never reachable; NewRealSource always fails.
func (s *RealSource) Start() error { return fmt.Errorf("gpio edge capture requires linux") }

// Close is never reachable; NewRealSource always fails.
func (s *RealSource) Close() error { return nil }

// Rejected is never reachable; NewRealSource always fails.
func (s *RealSource) Rejected() uint64 { return 0 }
