// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"log"
	"time"

	"github.com/sweeney/intake-sensor/internal/report"
)

// DefaultTopicPrefix is the topic root for all device messages.
const DefaultTopicPrefix = "hydration"

// CodePublished is the status code returned by Send when the broker
// acknowledged the publish.
const CodePublished = 1

// Topics returns the intake and system topics for a device.
func Topics(prefix, deviceID string) (intake, system string) {
	base := prefix + "/" + deviceID
	return base + "/intake", base + "/system"
}

// Publisher publishes intake reports and lifecycle events to MQTT.
// It is a report.Sink.
type Publisher interface {
	report.Sink

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
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

// offlineFallback is the will payload used when formatting fails.
var offlineFallback = []byte(`{"system":{"event":"OFFLINE"}}`)

// willPayload formats the retained OFFLINE message the broker publishes when
// the connection drops.
func willPayload(now time.Time, format func(SystemEvent) ([]byte, error)) []byte {
	lwt, err := format(SystemEvent{Timestamp: now, Event: "OFFLINE"})
	if err != nil {
		log.Printf("mqtt: format will message: %v", err)
		return offlineFallback
	}
	return lwt
}
