package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	RPM           float64    `json:"rpm"`
	Phase         int        `json:"phase"`
	ToothIndex    int        `json:"tooth_index"`
	State         string     `json:"state"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"sample_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of sample counts.
type CountsJSON struct {
	Accepted  int    `json:"accepted"`
	Noise     int    `json:"noise"`
	Stall     int    `json:"stall"`
	Syncs     int    `json:"syncs"`
	Desyncs   int    `json:"desyncs"`
	Overflows uint64 `json:"overflows"`
	Debounced uint64 `json:"debounced"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip           string  `json:"chip"`
	Pin            int     `json:"pin"`
	Edge           string  `json:"edge"`
	TeethPerRev    int     `json:"teeth_per_rev"`
	TickHz         int     `json:"tick_hz"`
	NoiseFloorUs   int64   `json:"noise_floor_us"`
	StallMs        int64   `json:"stall_ms"`
	GapRatio       float64 `json:"gap_ratio"`
	ConfirmWindow  int     `json:"confirm_window"`
	FaultThreshold int     `json:"fault_threshold"`
	History        int     `json:"history"`
	QueueCap       int     `json:"queue_cap"`
	PublishMs      int64   `json:"publish_ms"`
	HeartbeatMs    int64   `json:"heartbeat_ms"`
	Broker         string  `json:"broker"`
	HTTPAddr       string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		RPM:           snap.RPM,
		Phase:         snap.Phase,
		ToothIndex:    snap.ToothIndex,
		State:         string(snap.State),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Accepted:  snap.Counts.Accepted,
			Noise:     snap.Counts.Noise,
			Stall:     snap.Counts.Stall,
			Syncs:     snap.Counts.Syncs,
			Desyncs:   snap.Counts.Desyncs,
			Overflows: snap.Overflows,
			Debounced: snap.Debounced,
		},
		Config: ConfigJSON{
			Chip:           snap.Config.Chip,
			Pin:            snap.Config.Pin,
			Edge:           snap.Config.Edge,
			TeethPerRev:    snap.Config.TeethPerRev,
			TickHz:         snap.Config.TickHz,
			NoiseFloorUs:   snap.Config.NoiseFloorUs,
			StallMs:        snap.Config.StallMs,
			GapRatio:       snap.Config.GapRatio,
			ConfirmWindow:  snap.Config.ConfirmWindow,
			FaultThreshold: snap.Config.FaultThreshold,
			History:        snap.Config.History,
			QueueCap:       snap.Config.QueueCap,
			PublishMs:      snap.Config.PublishMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
