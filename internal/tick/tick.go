// Package tick provides the monotonic tick time base used for edge
// timestamps. Ticks are an unsigned counter that wraps at 2^32; all
// arithmetic on them is modular, so two timestamps straddling the wrap
// boundary still subtract to the correct delta.
package tick

import "time"

// DefaultHz is the tick rate of the reference timer (32.768 kHz).
const DefaultHz = 32768

// Ticks is a monotonic tick count. It wraps at 2^32.
type Ticks uint32

// Sub returns a - b, wrap-aware. The result is correct as long as the
// real interval is shorter than the counter's full wrap period.
func Sub(a, b Ticks) Ticks {
	return a - b
}

// FromDuration converts a duration to ticks at the given rate. Seconds
// and sub-second nanoseconds are converted separately so long uptimes do
// not overflow the intermediate product; truncation to the tick width is
// plain modular wrap.
func FromDuration(d time.Duration, hz int) Ticks {
	sec := uint64(d / time.Second)
	nsec := uint64(d % time.Second)
	return Ticks(sec*uint64(hz) + nsec*uint64(hz)/uint64(time.Second))
}

// ToDuration converts a tick delta to a duration at the given rate.
func ToDuration(t Ticks, hz int) time.Duration {
	return time.Duration(int64(t) * int64(time.Second) / int64(hz))
}

// Clock supplies the current tick count. The real implementation reads
// CLOCK_MONOTONIC so its readings share a time base with kernel GPIO
// event timestamps; tests supply their own.
type Clock interface {
	Now() Ticks
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() Ticks

// Now returns f().
func (f ClockFunc) Now() Ticks { return f() }
