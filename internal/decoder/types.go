// Package decoder contains the pure decoding logic for the crankshaft
// position pipeline: period derivation, noise and stall rejection,
// filtered RPM, and missing-tooth sync tracking. The package has no
// hardware or transport dependencies; timestamps arrive as values and
// all state is owned by the single consuming task.
package decoder

import (
	"fmt"

	"github.com/sweeney/crank-sensor/internal/tick"
)

// SyncState reports whether the tooth index is anchored to absolute
// shaft phase.
type SyncState string

const (
	Unsynced SyncState = "UNSYNCED"
	Synced   SyncState = "SYNCED"
)

// Config holds the decoding parameters. Values are supplied at startup
// and never reloaded; Validate must pass before a Decoder is built.
type Config struct {
	// TeethPerRev is the number of sensor edges per shaft revolution,
	// counting the missing-tooth position as if it were present.
	TeethPerRev int

	// TickHz is the tick clock rate in Hz.
	TickHz int

	// NoiseFloor is the shortest plausible tooth period. Shorter
	// periods are electrical noise and are discarded.
	NoiseFloor tick.Ticks

	// StallBound is the longest plausible tooth period. Longer periods
	// mean the shaft stopped or the signal was lost.
	StallBound tick.Ticks

	// GapRatio flags a period as a reference-gap candidate when it
	// exceeds the rolling average by this factor. Wheel geometry sets
	// it: a 36-1 wheel produces a gap near 2x the normal period.
	GapRatio float64

	// ConfirmWindow is how many normal periods must follow a gap
	// candidate before sync is declared.
	ConfirmWindow int

	// FaultThreshold is how many consecutive implausible periods force
	// a transition back to Unsynced.
	FaultThreshold int

	// History is the moving-average window over accepted periods.
	History int
}

// Validate checks the configuration for values that would divide by zero
// or make the state machine unsatisfiable at runtime.
func (c Config) Validate() error {
	if c.TeethPerRev < 1 {
		return fmt.Errorf("teeth per revolution must be >= 1, got %d", c.TeethPerRev)
	}
	if c.TickHz < 1 {
		return fmt.Errorf("tick rate must be >= 1 Hz, got %d", c.TickHz)
	}
	if c.NoiseFloor == 0 {
		return fmt.Errorf("noise floor must be > 0 ticks")
	}
	if c.StallBound <= c.NoiseFloor {
		return fmt.Errorf("stall bound (%d ticks) must exceed noise floor (%d ticks)", c.StallBound, c.NoiseFloor)
	}
	if c.GapRatio <= 1 {
		return fmt.Errorf("gap ratio must be > 1, got %g", c.GapRatio)
	}
	if c.ConfirmWindow < 1 {
		return fmt.Errorf("confirm window must be >= 1, got %d", c.ConfirmWindow)
	}
	if c.FaultThreshold < 1 {
		return fmt.Errorf("fault threshold must be >= 1, got %d", c.FaultThreshold)
	}
	if c.History < 1 {
		return fmt.Errorf("history window must be >= 1, got %d", c.History)
	}
	return nil
}

// Counts tracks cumulative sample dispositions since startup.
type Counts struct {
	Accepted int
	Noise    int
	Stall    int
	Syncs    int
	Desyncs  int
}

// Snapshot is an immutable view of the decoder output, created fresh on
// each emission and safe to hand to other goroutines.
type Snapshot struct {
	// RPM is the filtered speed estimate. Zero while stopped or before
	// any period has been accepted.
	RPM float64

	// Phase is ToothIndex modulo teeth-per-revolution.
	Phase int

	// ToothIndex counts accepted teeth since the last confirmed gap
	// (or since startup while unsynced).
	ToothIndex int

	// State reports whether the phase is anchored.
	State SyncState

	// Counts are the cumulative sample dispositions.
	Counts Counts

	// Timestamp is the tick time of the edge (or stall check) that
	// produced this snapshot.
	Timestamp tick.Ticks
}
