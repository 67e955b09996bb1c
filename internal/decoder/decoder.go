package decoder

import (
	movingaverage "github.com/RobinUS2/golang-moving-average"

	"github.com/sweeney/crank-sensor/internal/handoff"
	"github.com/sweeney/crank-sensor/internal/tick"
)

// Decoder consumes timestamped edges and maintains period history,
// filtered RPM, and sync/phase state. It is owned by exactly one task;
// nothing here is safe for concurrent use, and nothing here needs to be.
type Decoder struct {
	cfg Config

	last    tick.Ticks
	hasLast bool

	avg     *movingaverage.MovingAverage
	samples int

	toothIndex int
	state      SyncState
	faults     int // consecutive implausible periods
	counts     Counts

	// Gap tracking: a candidate long period awaiting confirmation by a
	// run of normal periods.
	gapPending bool
	confirmed  int
}

// New builds a Decoder from a validated configuration.
func New(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		cfg:   cfg,
		avg:   movingaverage.New(cfg.History),
		state: Unsynced,
	}, nil
}

// Process handles one dequeued edge. It returns a fresh Snapshot when
// the edge was accepted or caused a state transition, nil otherwise
// (first edge, or a rejected sample with no transition).
func (d *Decoder) Process(e handoff.Edge) *Snapshot {
	if !d.hasLast {
		d.last = e.Timestamp
		d.hasLast = true
		return nil
	}

	duration := tick.Sub(e.Timestamp, d.last)

	if duration < d.cfg.NoiseFloor {
		// Electrical noise. The spurious edge is ignored entirely: the
		// last-accepted timestamp stays put so the next real edge still
		// measures a full tooth period.
		d.counts.Noise++
		if d.fault() {
			return d.snapshot(e.Timestamp)
		}
		return nil
	}

	if duration > d.cfg.StallBound {
		// Shaft stopped or signal lost. The edge itself is real, so the
		// next period is measured from here.
		d.counts.Stall++
		d.last = e.Timestamp
		if d.fault() {
			return d.snapshot(e.Timestamp)
		}
		return nil
	}

	// Accepted sample.
	d.last = e.Timestamp
	d.faults = 0
	d.counts.Accepted++
	d.toothIndex++
	d.trackGap(duration)
	d.avg.Add(float64(duration))
	if d.samples < d.cfg.History {
		d.samples++
	}

	return d.snapshot(e.Timestamp)
}

// CheckStall detects an edge-free stall: no edge for longer than the
// stall bound. It returns a Snapshot when the check changed anything
// (RPM dropping to zero, desync), nil otherwise. The last-edge timestamp
// is left alone so the next edge still takes the stall-rejection path.
func (d *Decoder) CheckStall(now tick.Ticks) *Snapshot {
	if !d.hasLast {
		return nil
	}
	if tick.Sub(now, d.last) <= d.cfg.StallBound {
		return nil
	}

	changed := d.samples > 0 || d.state == Synced
	d.resetFilter()
	d.gapPending = false
	d.confirmed = 0
	if d.state == Synced {
		d.state = Unsynced
		d.counts.Desyncs++
		d.toothIndex = 0
	}
	if !changed {
		return nil
	}
	return d.snapshot(now)
}

// State returns the current sync state.
func (d *Decoder) State() SyncState {
	return d.state
}

// CountsSnapshot returns a copy of the cumulative sample counts.
func (d *Decoder) CountsSnapshot() Counts {
	return d.counts
}

// RPM returns the current filtered speed estimate.
func (d *Decoder) RPM() float64 {
	return d.rpm()
}

// Snapshot returns the current decoder output stamped with the given
// tick time.
func (d *Decoder) Snapshot(now tick.Ticks) Snapshot {
	return *d.snapshot(now)
}

// fault records one implausible period and reports whether it forced a
// transition. Crossing the consecutive-fault threshold clears the period
// filter; if the decoder was synced it also drops back to Unsynced. A
// single glitch never transitions.
func (d *Decoder) fault() bool {
	d.faults++
	d.gapPending = false
	d.confirmed = 0
	if d.faults != d.cfg.FaultThreshold {
		return false
	}
	d.resetFilter()
	if d.state == Synced {
		d.state = Unsynced
		d.counts.Desyncs++
		d.toothIndex = 0
	}
	return true
}

// trackGap runs the missing-tooth detector on an accepted period. The
// rolling average is taken over previously accepted samples, before the
// current one is pushed.
func (d *Decoder) trackGap(duration tick.Ticks) {
	if d.samples == 0 {
		return
	}
	candidate := float64(duration) > d.cfg.GapRatio*d.avg.Avg()

	if candidate {
		// A new long period always (re)starts the candidate window,
		// whether or not one was already pending.
		d.gapPending = true
		d.confirmed = 0
		return
	}

	if !d.gapPending {
		return
	}

	d.confirmed++
	if d.confirmed < d.cfg.ConfirmWindow {
		return
	}

	// Confirmed. Tooth 0 is the tooth ending at the gap edge, and each
	// confirming period advanced one tooth past it.
	d.gapPending = false
	d.confirmed = 0
	d.toothIndex = d.cfg.ConfirmWindow
	if d.state != Synced {
		d.state = Synced
		d.counts.Syncs++
	}
}

func (d *Decoder) resetFilter() {
	d.avg = movingaverage.New(d.cfg.History)
	d.samples = 0
}

// rpm converts the average tooth period to revolutions per minute.
// An empty or degenerate filter reads as a stopped shaft, not an error.
func (d *Decoder) rpm() float64 {
	if d.samples == 0 {
		return 0
	}
	avgTicks := d.avg.Avg()
	if avgTicks < 1 {
		return 0
	}
	return 60 * float64(d.cfg.TickHz) / (avgTicks * float64(d.cfg.TeethPerRev))
}

func (d *Decoder) snapshot(ts tick.Ticks) *Snapshot {
	return &Snapshot{
		RPM:        d.rpm(),
		Phase:      d.toothIndex % d.cfg.TeethPerRev,
		ToothIndex: d.toothIndex,
		State:      d.state,
		Counts:     d.counts,
		Timestamp:  ts,
	}
}
