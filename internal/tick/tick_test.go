package tick

import (
	"math"
	"testing"
	"time"
)

func TestSub(t *testing.T) {
	tests := []struct {
		name string
		a, b Ticks
		want Ticks
	}{
		{"simple", 100, 40, 60},
		{"zero", 100, 100, 0},
		{"wrap boundary", 5, math.MaxUint32 - 4, 10},
		{"exactly at wrap", 0, math.MaxUint32, 1},
		{"large interval", math.MaxUint32, 0, math.MaxUint32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sub(tt.a, tt.b); got != tt.want {
				t.Errorf("Sub(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestSubWrapRoundTrip checks that two timestamps straddling the wrap
// boundary yield the same delta as unbounded-width arithmetic would.
func TestSubWrapRoundTrip(t *testing.T) {
	const spacing = 1365 // ~24 teeth/s at 32768 Hz

	wide := uint64(math.MaxUint32) - 3*spacing/2
	var prev Ticks
	first := true
	for i := 0; i < 8; i++ {
		cur := Ticks(wide % (1 << 32))
		if !first {
			if got := Sub(cur, prev); got != spacing {
				t.Fatalf("step %d: Sub = %d, want %d", i, got, spacing)
			}
		}
		first = false
		prev = cur
		wide += spacing
	}
}

func TestFromDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		hz   int
		want Ticks
	}{
		{time.Second, 32768, 32768},
		{500 * time.Millisecond, 32768, 16384},
		{time.Millisecond, 1000, 1},
		{0, 32768, 0},
		{time.Minute, 1, 60},
	}

	for _, tt := range tests {
		if got := FromDuration(tt.d, tt.hz); got != tt.want {
			t.Errorf("FromDuration(%v, %d) = %d, want %d", tt.d, tt.hz, got, tt.want)
		}
	}
}

func TestToDuration(t *testing.T) {
	tests := []struct {
		t    Ticks
		hz   int
		want time.Duration
	}{
		{32768, 32768, time.Second},
		{16384, 32768, 500 * time.Millisecond},
		{0, 32768, 0},
	}

	for _, tt := range tests {
		if got := ToDuration(tt.t, tt.hz); got != tt.want {
			t.Errorf("ToDuration(%d, %d) = %v, want %v", tt.t, tt.hz, got, tt.want)
		}
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Millisecond, 10 * time.Millisecond, time.Second} {
		got := ToDuration(FromDuration(d, DefaultHz), DefaultHz)
		// One tick of quantization error is expected at 32768 Hz.
		diff := got - d
		if diff < 0 {
			diff = -diff
		}
		if diff > ToDuration(1, DefaultHz) {
			t.Errorf("round trip of %v drifted to %v", d, got)
		}
	}
}

func TestClockFunc(t *testing.T) {
	var n Ticks
	c := ClockFunc(func() Ticks {
		n += 10
		return n
	})
	if got := c.Now(); got != 10 {
		t.Errorf("first Now() = %d, want 10", got)
	}
	if got := c.Now(); got != 20 {
		t.Errorf("second Now() = %d, want 20", got)
	}
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock(DefaultHz)
	a := c.Now()
	time.Sleep(5 * time.Millisecond)
	b := c.Now()
	if Sub(b, a) == 0 {
		t.Error("clock did not advance across a 5ms sleep")
	}
	if Sub(b, a) > FromDuration(time.Second, DefaultHz) {
		t.Errorf("clock advanced implausibly far: %d ticks", Sub(b, a))
	}
}
