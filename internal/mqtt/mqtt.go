// Package mqtt publishes RPM telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/crank-sensor/internal/decoder"
)

// Topic is the MQTT topic for RPM snapshots.
const Topic = "engine/crank/sensor/rpm"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "engine/crank/sensor/system"

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishSnapshot sends an RPM snapshot to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishSnapshot(snap decoder.Snapshot, overflows uint64) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the snapshot message payload structure.
type Payload struct {
	Crank CrankPayload `json:"crank"`
}

// CrankPayload contains the decoded crank state.
type CrankPayload struct {
	Timestamp  uint32  `json:"timestamp"`
	RPM        float64 `json:"rpm"`
	Phase      int     `json:"phase"`
	ToothIndex int     `json:"tooth_index"`
	State      string  `json:"state"`
	Accepted   int     `json:"accepted"`
	Noise      int     `json:"noise"`
	Stall      int     `json:"stall"`
	Syncs      int     `json:"syncs"`
	Desyncs    int     `json:"desyncs"`
	Overflows  uint64  `json:"overflows"`
}

// FormatPayload creates the JSON payload for an RPM snapshot.
// overflows is the hand-off queue's drop counter at publish time.
func FormatPayload(snap decoder.Snapshot, overflows uint64) ([]byte, error) {
	payload := Payload{
		Crank: CrankPayload{
			Timestamp:  uint32(snap.Timestamp),
			RPM:        snap.RPM,
			Phase:      snap.Phase,
			ToothIndex: snap.ToothIndex,
			State:      string(snap.State),
			Accepted:   snap.Counts.Accepted,
			Noise:      snap.Counts.Noise,
			Stall:      snap.Counts.Stall,
			Syncs:      snap.Counts.Syncs,
			Desyncs:    snap.Counts.Desyncs,
			Overflows:  overflows,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
