package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/crank-sensor/internal/decoder"
)

func sampleSnapshot() decoder.Snapshot {
	return decoder.Snapshot{
		RPM:        1492.5,
		Phase:      7,
		ToothIndex: 43,
		State:      decoder.Synced,
		Counts: decoder.Counts{
			Accepted: 43,
			Noise:    2,
			Stall:    1,
			Syncs:    1,
			Desyncs:  0,
		},
		Timestamp: 123456,
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(sampleSnapshot(), 5)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var decoded Payload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	c := decoded.Crank
	if c.RPM != 1492.5 {
		t.Errorf("rpm = %g, want 1492.5", c.RPM)
	}
	if c.Phase != 7 {
		t.Errorf("phase = %d, want 7", c.Phase)
	}
	if c.ToothIndex != 43 {
		t.Errorf("tooth_index = %d, want 43", c.ToothIndex)
	}
	if c.State != "SYNCED" {
		t.Errorf("state = %q, want SYNCED", c.State)
	}
	if c.Timestamp != 123456 {
		t.Errorf("timestamp = %d, want 123456", c.Timestamp)
	}
	if c.Noise != 2 || c.Stall != 1 || c.Accepted != 43 {
		t.Errorf("counts = %+v, want accepted=43 noise=2 stall=1", c)
	}
	if c.Overflows != 5 {
		t.Errorf("overflows = %d, want 5", c.Overflows)
	}
}

func TestFormatPayloadFieldNames(t *testing.T) {
	payload, err := FormatPayload(sampleSnapshot(), 0)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	crank, ok := raw["crank"]
	if !ok {
		t.Fatalf("payload missing top-level crank key: %s", payload)
	}
	for _, key := range []string{"timestamp", "rpm", "phase", "tooth_index", "state", "accepted", "noise", "stall", "syncs", "desyncs", "overflows"} {
		if _, ok := crank[key]; !ok {
			t.Errorf("payload missing %q: %s", key, payload)
		}
	}
}

func TestFormatSystemPayload(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: ts,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}

	var decoded SystemPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.System.Event != "SHUTDOWN" {
		t.Errorf("event = %q, want SHUTDOWN", decoded.System.Event)
	}
	if decoded.System.Reason != "SIGTERM" {
		t.Errorf("reason = %q, want SIGTERM", decoded.System.Reason)
	}
	if decoded.System.Timestamp != "2026-03-14T09:26:53Z" {
		t.Errorf("timestamp = %q, want RFC3339 UTC", decoded.System.Timestamp)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT","custom":true}}`)
	payload, err := FormatSystemPayload(SystemEvent{RawPayload: raw})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "HEARTBEAT",
	})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("empty reason was not omitted")
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	snap := sampleSnapshot()
	if err := f.PublishSnapshot(snap, 9); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	if len(f.Snapshots) != 1 || f.Snapshots[0].RPM != snap.RPM {
		t.Errorf("snapshots = %+v, want the published snapshot", f.Snapshots)
	}
	if len(f.Overflows) != 1 || f.Overflows[0] != 9 {
		t.Errorf("overflows = %v, want [9]", f.Overflows)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("payloads = %d, want 1", len(f.Payloads))
	}
	if len(f.SystemEvents) != 1 || f.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("system events = %+v", f.SystemEvents)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.PublishSnapshot(sampleSnapshot(), 0); err == nil {
		t.Error("PublishSnapshot did not return the configured error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("PublishSystem did not return the configured error")
	}
	if len(f.Snapshots) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes were recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSnapshot(sampleSnapshot(), 0)
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Connected = true
	f.Close()

	f.Reset()

	if len(f.Snapshots) != 0 || len(f.SystemEvents) != 0 || len(f.Payloads) != 0 {
		t.Error("Reset did not clear recorded telemetry")
	}
	if f.Closed || f.Connected {
		t.Error("Reset did not clear flags")
	}
}
