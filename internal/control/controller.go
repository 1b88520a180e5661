package control

import (
	"log"
	"sync"
	"time"
)

// Driver applies logical relay state to hardware. The controller calls it
// inside its critical section so physical state never diverges from the
// state observers read.
type Driver interface {
	Apply(lamp, motor bool) error
}

// Controller owns all mutable greenhouse state: relay state, mode, manual
// baseline, thresholds, and the last reading. Every writer (sampling cycle,
// manual command, mode change, config update) serializes on one mutex, so
// no observer can see a torn update and no config change can interleave
// with an evaluation.
type Controller struct {
	mu sync.Mutex

	driver     Driver // may be nil (no hardware attached)
	relays     RelayState
	mode       Mode
	manual     RelayState // operator baseline, authoritative while ModeManual
	thresholds Thresholds
	reading    Reading
	haveRead   bool
	counts     EventCounts
	seq        uint64 // bumped on every mutation, carried in snapshots

	startTime time.Time
	now       func() time.Time
}

// New creates a Controller in automatic mode with both relays de-energized.
func New(driver Driver, th Thresholds, startTime time.Time) *Controller {
	return &Controller{
		driver:     driver,
		mode:       ModeAuto,
		thresholds: th,
		startTime:  startTime,
		now:        time.Now,
	}
}

// SetClock overrides the controller's clock. Tests only.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// SubmitReading runs one evaluation cycle with the given reading and
// returns the resulting snapshot plus any relay transition events.
// In automatic mode the hysteresis engine decides; in manual mode the
// operator baseline is reasserted.
func (c *Controller) SubmitReading(r Reading) (Snapshot, []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reading = r
	c.haveRead = true
	c.seq++

	var next RelayState
	if c.mode == ModeManual {
		next = c.manual
	} else {
		next = Evaluate(c.relays, r, c.thresholds)
	}

	ts := r.Time
	if ts.IsZero() {
		ts = c.now()
	}
	events := c.applyLocked(next, ts)
	return c.snapshotLocked(), events
}

// SetMode switches between automatic and manual control. Entering manual
// captures the live relay state as the manual baseline before the mode flag
// changes, so the transition never flips an actuator. Setting the current
// mode again is a no-op.
func (c *Controller) SetMode(m Mode) (Snapshot, []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m == c.mode {
		return c.snapshotLocked(), nil
	}

	if m == ModeManual {
		c.manual = c.relays
	}
	c.mode = m
	c.seq++

	evType := EventModeAuto
	if m == ModeManual {
		evType = EventModeManual
	}
	ev := Event{Timestamp: c.now(), Type: evType, Relays: c.relays, Mode: c.mode}
	return c.snapshotLocked(), []Event{ev}
}

// SetManualRelay sets one channel of the manual baseline and applies it
// immediately, without waiting for the next sampling cycle. Returns
// ErrModeConflict, leaving all state untouched, if the controller is not
// in manual mode.
func (c *Controller) SetManualRelay(ch Channel, on bool) (Snapshot, []Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeManual {
		return c.snapshotLocked(), nil, ErrModeConflict
	}

	switch ch {
	case ChannelLamp:
		c.manual.Lamp = on
	case ChannelMotor:
		c.manual.Motor = on
	default:
		return c.snapshotLocked(), nil, ErrUnknownChannel
	}
	c.seq++

	events := c.applyLocked(c.manual, c.now())
	return c.snapshotLocked(), events, nil
}

// UpdateThresholds applies a partial threshold update as a copy-modify-
// replace of the whole record. Updates that would invert a hysteresis band
// are rejected with ErrInvalidThresholds and leave the configuration
// unchanged.
func (c *Controller) UpdateThresholds(p ThresholdPatch) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := p.ApplyTo(c.thresholds)
	if err := next.Validate(); err != nil {
		return c.snapshotLocked(), err
	}
	c.thresholds = next
	c.seq++
	return c.snapshotLocked(), nil
}

// Restore replaces mode, manual baseline, and thresholds in one step.
// Used at startup to reload persisted configuration; invalid thresholds
// are rejected the same way UpdateThresholds rejects them.
func (c *Controller) Restore(m Mode, manual RelayState, th Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if m != ModeManual {
		m = ModeAuto
	}
	c.mode = m
	c.manual = manual
	c.thresholds = th
	c.seq++
	return nil
}

// Status returns a consistent point-in-time copy of controller state.
func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// applyLocked replaces the relay state, drives the hardware, and returns
// transition events for any channel that changed. Caller holds the mutex.
func (c *Controller) applyLocked(next RelayState, ts time.Time) []Event {
	if next == c.relays {
		return nil
	}

	prev := c.relays
	c.relays = next

	var events []Event
	if next.Lamp != prev.Lamp {
		evType := EventLampOff
		if next.Lamp {
			evType = EventLampOn
			c.counts.LampOn++
		} else {
			c.counts.LampOff++
		}
		events = append(events, Event{Timestamp: ts, Type: evType, Relays: next, Mode: c.mode})
	}
	if next.Motor != prev.Motor {
		evType := EventMotorOff
		if next.Motor {
			evType = EventMotorOn
			c.counts.MotorOn++
		} else {
			c.counts.MotorOff++
		}
		events = append(events, Event{Timestamp: ts, Type: evType, Relays: next, Mode: c.mode})
	}

	if c.driver != nil {
		if err := c.driver.Apply(next.Lamp, next.Motor); err != nil {
			// Keep running; the next cycle retries the same state.
			log.Printf("relay apply error: %v", err)
		}
	}

	return events
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:         c.seq,
		Relays:      c.relays,
		Mode:        c.mode,
		Thresholds:  c.thresholds,
		Reading:     c.reading,
		HaveReading: c.haveRead,
		Counts:      c.counts,
		StartTime:   c.startTime,
		Now:         c.now(),
	}
}
