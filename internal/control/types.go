// Package control contains the greenhouse decision logic: the hysteresis
// engine, the auto/manual mode state machine, and the threshold store.
// Time is always injectable; the only side effect is the relay driver
// handed to the Controller.
package control

import "time"

// Mode selects the authority over relay state.
type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeManual Mode = "MANUAL"
)

// Channel identifies one of the two relay channels.
type Channel string

const (
	ChannelLamp  Channel = "lamp"
	ChannelMotor Channel = "motor"
)

// Reading is one sensor sample. It is replaced wholesale every cycle;
// no history is kept.
type Reading struct {
	Temperature float64 // °C
	Humidity    float64 // %
	Light       int     // 0 (dark) to 100 (bright)
	Time        time.Time
}

// RelayState is the logical desired state of both actuators.
// true = energized. Physical signal polarity is the relay driver's concern.
type RelayState struct {
	Lamp  bool
	Motor bool
}

// Thresholds holds the six hysteresis bounds. The motor band is dual
// quantity (temperature OR humidity turns it on, both must recover to turn
// it off); the lamp band is inverted (darker means on).
type Thresholds struct {
	MotorOnTemp      float64 // motor turns on above this temperature
	MotorOffTemp     float64 // motor turns off below this temperature
	MotorOnHumidity  float64 // motor turns on above this humidity
	MotorOffHumidity float64 // motor turns off below this humidity
	LampOnLight      int     // lamp turns on below this light level
	LampOffLight     int     // lamp turns off above this light level
}

// DefaultThresholds returns the startup configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MotorOnTemp:      30.0,
		MotorOffTemp:     27.0,
		MotorOnHumidity:  70.0,
		MotorOffHumidity: 60.0,
		LampOnLight:      25,
		LampOffLight:     35,
	}
}

// ThresholdPatch is a partial threshold update. Nil fields are left
// unchanged.
type ThresholdPatch struct {
	MotorOnTemp      *float64
	MotorOffTemp     *float64
	MotorOnHumidity  *float64
	MotorOffHumidity *float64
	LampOnLight      *int
	LampOffLight     *int
}

// ApplyTo returns a copy of t with the patch's non-nil fields overwritten.
func (p ThresholdPatch) ApplyTo(t Thresholds) Thresholds {
	if p.MotorOnTemp != nil {
		t.MotorOnTemp = *p.MotorOnTemp
	}
	if p.MotorOffTemp != nil {
		t.MotorOffTemp = *p.MotorOffTemp
	}
	if p.MotorOnHumidity != nil {
		t.MotorOnHumidity = *p.MotorOnHumidity
	}
	if p.MotorOffHumidity != nil {
		t.MotorOffHumidity = *p.MotorOffHumidity
	}
	if p.LampOnLight != nil {
		t.LampOnLight = *p.LampOnLight
	}
	if p.LampOffLight != nil {
		t.LampOffLight = *p.LampOffLight
	}
	return t
}

// EventType identifies a relay or mode transition.
type EventType string

const (
	EventLampOn     EventType = "LAMP_ON"
	EventLampOff    EventType = "LAMP_OFF"
	EventMotorOn    EventType = "MOTOR_ON"
	EventMotorOff   EventType = "MOTOR_OFF"
	EventModeAuto   EventType = "MODE_AUTO"
	EventModeManual EventType = "MODE_MANUAL"
)

// Event records a single transition together with the state that resulted
// from it.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Relays    RelayState
	Mode      Mode
}

// EventCounts tracks relay transitions since startup.
type EventCounts struct {
	LampOn   int
	LampOff  int
	MotorOn  int
	MotorOff int
}

// Snapshot is a point-in-time view of controller state. It is a value
// type — safe to use after the controller lock is released.
type Snapshot struct {
	// Seq increases with every state mutation. Consumers that receive
	// snapshots from multiple goroutines use it to discard stale ones.
	Seq uint64

	Relays      RelayState
	Mode        Mode
	Thresholds  Thresholds
	Reading     Reading
	HaveReading bool
	Counts      EventCounts
	StartTime   time.Time
	Now         time.Time
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}
