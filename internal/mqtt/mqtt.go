// Package mqtt mirrors inspection events to an MQTT broker for remote
// observers, with abstraction for testing. Nothing published here feeds
// back into the control loop.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/bottle-cap-monitor/internal/logic"
)

// Topic is the MQTT topic for inspection events.
const Topic = "factory/bottling/capmonitor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "factory/bottling/capmonitor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an inspection event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// BacklogStatus reports messages held while the broker is unreachable and
// how many were dropped because the backlog was full.
type BacklogStatus interface {
	Backlog() (pending, dropped int)
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
	Inspection InspectionPayload `json:"inspection"`
}

// InspectionPayload contains the inspection event details.
type InspectionPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Faulty    int    `json:"faulty"`
	Window    int    `json:"window"`
}

// FormatPayload creates the JSON payload for an inspection event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Inspection: InspectionPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
			Faulty:    event.Faulty,
			Window:    event.Window,
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

// Discard is the Publisher used when no broker is configured.
type Discard struct{}

func (Discard) Publish(logic.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
func (Discard) Backlog() (int, int)             { return 0, 0 }
