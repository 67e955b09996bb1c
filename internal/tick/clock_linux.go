//go:build linux

package tick

import (
	"time"

	"golang.org/x/sys/unix"
)

// SystemClock reads CLOCK_MONOTONIC and converts it to ticks. GPIO edge
// events requested with the monotonic event clock are stamped from the
// same kernel clock, so stall checks can compare the two directly.
type SystemClock struct {
	Hz int
}

// NewSystemClock returns a SystemClock at the given tick rate.
func NewSystemClock(hz int) *SystemClock {
	return &SystemClock{Hz: hz}
}

// Now returns the current monotonic time as ticks.
func (c *SystemClock) Now() Ticks {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// Same clock via the runtime if the syscall is unavailable.
		return FromDuration(time.Since(bootRef), c.Hz)
	}
	d := time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec)
	return FromDuration(d, c.Hz)
}

var bootRef = time.Now()
