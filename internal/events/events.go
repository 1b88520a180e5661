// Package events publishes relay and mode transitions to MQTT so remote
// consumers (dashboards, automations) can follow greenhouse state live.
package events

import (
	"encoding/json"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// Topic is the MQTT topic for relay and mode transition events.
const Topic = "greenhouse/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "greenhouse/controller/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event control.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Snapshot  *control.Snapshot
	Retained  bool // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Greenhouse GreenhousePayload `json:"greenhouse"`
}

// GreenhousePayload contains the transition event details.
type GreenhousePayload struct {
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	Lamp      ChannelState `json:"lamp"`
	Motor     ChannelState `json:"motor"`
	Mode      string       `json:"mode"`
}

// ChannelState represents a single relay channel's state.
type ChannelState struct {
	State string `json:"state"`
}

// FormatPayload creates the JSON payload for a transition event.
func FormatPayload(event control.Event) ([]byte, error) {
	payload := Payload{
		Greenhouse: GreenhousePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Lamp:      ChannelState{State: stateString(event.Relays.Lamp)},
			Motor:     ChannelState{State: stateString(event.Relays.Motor)},
			Mode:      string(event.Mode),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details. Status fields are
// included when the event carries a snapshot (startup and shutdown do).
type SystemPayloadInner struct {
	Timestamp     string             `json:"timestamp"`
	Event         string             `json:"event"`
	Reason        string             `json:"reason,omitempty"`
	Lamp          string             `json:"lamp,omitempty"`
	Motor         string             `json:"motor,omitempty"`
	Mode          string             `json:"mode,omitempty"`
	UptimeSeconds int64              `json:"uptime_seconds,omitempty"`
	Thresholds    *ThresholdsPayload `json:"thresholds,omitempty"`
}

// ThresholdsPayload is the JSON representation of the hysteresis bounds.
type ThresholdsPayload struct {
	MotorOnTemp      float64 `json:"motor_on_temp"`
	MotorOffTemp     float64 `json:"motor_off_temp"`
	MotorOnHumidity  float64 `json:"motor_on_humidity"`
	MotorOffHumidity float64 `json:"motor_off_humidity"`
	LampOnLight      int     `json:"lamp_on_light"`
	LampOffLight     int     `json:"lamp_off_light"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	inner := SystemPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}
	if snap := event.Snapshot; snap != nil {
		inner.Lamp = stateString(snap.Relays.Lamp)
		inner.Motor = stateString(snap.Relays.Motor)
		inner.Mode = string(snap.Mode)
		inner.UptimeSeconds = int64(snap.Uptime().Truncate(time.Second).Seconds())
		inner.Thresholds = &ThresholdsPayload{
			MotorOnTemp:      snap.Thresholds.MotorOnTemp,
			MotorOffTemp:     snap.Thresholds.MotorOffTemp,
			MotorOnHumidity:  snap.Thresholds.MotorOnHumidity,
			MotorOffHumidity: snap.Thresholds.MotorOffHumidity,
			LampOnLight:      snap.Thresholds.LampOnLight,
			LampOffLight:     snap.Thresholds.LampOffLight,
		}
	}
	return json.Marshal(SystemPayload{System: inner})
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
