// Package status provides a thread-safe status tracker for the
// crank-sensor daemon. It is read by HTTP handlers and the heartbeat
// path while the decoder loop writes to it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/crank-sensor/internal/decoder"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip           string
	Pin            int
	Edge           string
	TeethPerRev    int
	TickHz         int
	NoiseFloorUs   int64
	StallMs        int64
	GapRatio       float64
	ConfirmWindow  int
	FaultThreshold int
	History        int
	QueueCap       int
	PublishMs      int64
	HeartbeatMs    int64
	Broker         string
	HTTPAddr       string
}

// Snapshot is a point-in-time view of daemon state. Being a value type
// it stays valid after the lock is released.
type Snapshot struct {
	RPM           float64
	Phase         int
	ToothIndex    int
	State         decoder.SyncState
	Counts        decoder.Counts
	Overflows     uint64 // hand-off queue drops
	Debounced     uint64 // capture-layer bounce rejections
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     decoder.Unsynced,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest decoder output. Called from the decoder
// loop on every emitted snapshot.
func (t *Tracker) Update(d decoder.Snapshot) {
	t.mu.Lock()
	t.snap.RPM = d.RPM
	t.snap.Phase = d.Phase
	t.snap.ToothIndex = d.ToothIndex
	t.snap.State = d.State
	t.snap.Counts = d.Counts
	t.mu.Unlock()
}

// SetPipeline records the capture/hand-off counters.
func (t *Tracker) SetPipeline(overflows, debounced uint64) {
	t.mu.Lock()
	t.snap.Overflows = overflows
	t.snap.Debounced = debounced
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
