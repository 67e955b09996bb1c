//go:build !linux

package tick

import "time"

// SystemClock on non-linux platforms derives ticks from the Go runtime's
// monotonic clock. Good enough for development; real deployments run on
// the Linux GPIO stack.
type SystemClock struct {
	Hz    int
	start time.Time
}

// NewSystemClock returns a SystemClock at the given tick rate.
func NewSystemClock(hz int) *SystemClock {
	return &SystemClock{Hz: hz, start: time.Now()}
}

// Now returns ticks elapsed since the clock was created.
func (c *SystemClock) Now() Ticks {
	return FromDuration(time.Since(c.start), c.Hz)
}
