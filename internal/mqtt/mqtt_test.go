package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

func TestFormatPayload(t *testing.T) {
	r := Reading{
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Value: pipeline.HeartRateReading{
			BPM:        72,
			Valid:      true,
			Confidence: 75,
		},
	}

	data, err := FormatPayload(r)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Pulse.Timestamp != "2026-03-14T09:26:53Z" {
		t.Errorf("timestamp: got %q", parsed.Pulse.Timestamp)
	}
	if parsed.Pulse.BPM != 72 {
		t.Errorf("bpm: got %d, want 72", parsed.Pulse.BPM)
	}
	if !parsed.Pulse.Valid {
		t.Error("valid flag lost")
	}
	if parsed.Pulse.Confidence != 75 {
		t.Errorf("confidence: got %d, want 75", parsed.Pulse.Confidence)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("event: got %q", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("reason: got %q", parsed.System.Reason)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"custom":true}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "HEARTBEAT",
		RawPayload: raw,
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("raw payload should pass through unchanged, got %s", data)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	r := Reading{
		Timestamp: time.Now(),
		Value:     pipeline.HeartRateReading{BPM: 64, Valid: true, Confidence: 50},
	}
	if err := f.Publish(r); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.Readings) != 1 || f.Readings[0].Value.BPM != 64 {
		t.Errorf("recorded readings: %+v", f.Readings)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("recorded payloads: %d", len(f.Payloads))
	}

	f.Reset()
	if len(f.Readings) != 0 || len(f.Payloads) != 0 {
		t.Error("reset should clear recordings")
	}
}
