// Package sensor delivers climate readings to the control loop.
// Readings normally arrive over MQTT from the greenhouse sensor node; a
// simulated source generates synthetic readings for bench runs without
// hardware.
package sensor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// Source delivers readings. The channel carries at most the latest reading;
// stale samples are dropped, never queued (readings are ephemeral).
type Source interface {
	// Readings returns the channel readings are delivered on. The channel
	// is closed when the source shuts down.
	Readings() <-chan control.Reading

	// Close stops the source and releases its resources.
	Close() error
}

// wirePayload is the JSON shape published by the sensor node.
type wirePayload struct {
	Temperature *float64 `json:"temp"`
	Humidity    *float64 `json:"humidity"`
	Light       *int     `json:"light"`
}

// ParseReading decodes a sensor node payload. All three quantities must be
// present; light is clamped to [0,100] before it reaches the control logic.
func ParseReading(data []byte, ts time.Time) (control.Reading, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return control.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if p.Temperature == nil || p.Humidity == nil || p.Light == nil {
		return control.Reading{}, fmt.Errorf("incomplete reading: %s", data)
	}
	return control.Reading{
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
		Light:       ClampLight(*p.Light),
		Time:        ts,
	}, nil
}

// ClampLight bounds a light percentage to [0,100].
func ClampLight(light int) int {
	if light < 0 {
		return 0
	}
	if light > 100 {
		return 100
	}
	return light
}

// offer places r on ch, displacing a stale undelivered reading if the
// control loop has not consumed the previous one yet.
func offer(ch chan control.Reading, r control.Reading) {
	for {
		select {
		case ch <- r:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
