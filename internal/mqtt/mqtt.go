// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

// Topic is the MQTT topic for heart-rate readings.
const Topic = "health/pulse/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "health/pulse/sensor/system"

// Reading is a heart-rate reading with its wall-clock timestamp.
type Reading struct {
	Timestamp time.Time
	Value     pipeline.HeartRateReading
}

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a heart-rate reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r Reading) error

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

// Payload represents the MQTT message payload structure.
type Payload struct {
	Pulse PulsePayload `json:"pulse"`
}

// PulsePayload contains the reading details.
type PulsePayload struct {
	Timestamp  string `json:"timestamp"`
	BPM        int    `json:"bpm"`
	Valid      bool   `json:"valid"`
	Confidence int    `json:"confidence"`
}

// FormatPayload creates the JSON payload for a heart-rate reading.
func FormatPayload(r Reading) ([]byte, error) {
	payload := Payload{
		Pulse: PulsePayload{
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
			BPM:        r.Value.BPM,
			Valid:      r.Value.Valid,
			Confidence: r.Value.Confidence,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
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
