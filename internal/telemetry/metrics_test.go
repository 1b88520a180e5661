package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

func sampleSnapshot() control.Snapshot {
	return control.Snapshot{
		Seq:         1,
		Relays:      control.RelayState{Lamp: true},
		Mode:        control.ModeManual,
		Thresholds:  control.DefaultThresholds(),
		Reading:     control.Reading{Temperature: 28.5, Humidity: 61, Light: 40},
		HaveReading: true,
		Counts:      control.EventCounts{LampOn: 2, MotorOn: 1, MotorOff: 1},
		StartTime:   time.Now(),
		Now:         time.Now(),
	}
}

func TestObserveSetsGauges(t *testing.T) {
	m := New()
	m.Observe(sampleSnapshot())

	if got := testutil.ToFloat64(m.temperature); got != 28.5 {
		t.Errorf("temperature: got %v, want 28.5", got)
	}
	if got := testutil.ToFloat64(m.lamp); got != 1 {
		t.Errorf("lamp: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.motor); got != 0 {
		t.Errorf("motor: got %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.manualMode); got != 1 {
		t.Errorf("manual mode: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.thresholds.WithLabelValues("motor_on_temp")); got != 30 {
		t.Errorf("threshold gauge: got %v, want 30", got)
	}
}

func TestObserveSkipsReadingGaugesUntilFirstSample(t *testing.T) {
	m := New()
	snap := sampleSnapshot()
	snap.HaveReading = false
	snap.Reading = control.Reading{}
	m.Observe(snap)

	if got := testutil.ToFloat64(m.temperature); got != 0 {
		t.Errorf("temperature before first sample: got %v, want 0", got)
	}
}

func TestTransitionCountersAdvanceByDelta(t *testing.T) {
	m := New()

	snap := sampleSnapshot()
	m.Observe(snap)
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("lamp", "on")); got != 2 {
		t.Errorf("lamp on transitions: got %v, want 2", got)
	}

	// Observing the same counts again must not double count.
	m.Observe(snap)
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("lamp", "on")); got != 2 {
		t.Errorf("lamp on transitions after repeat: got %v, want 2", got)
	}

	snap.Seq++
	snap.Counts.LampOn = 3
	m.Observe(snap)
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("lamp", "on")); got != 3 {
		t.Errorf("lamp on transitions after increment: got %v, want 3", got)
	}
}

func TestObserveDropsStaleSnapshot(t *testing.T) {
	m := New()

	newer := sampleSnapshot()
	newer.Seq = 5
	newer.Counts.LampOn = 2
	m.Observe(newer)

	// A snapshot delivered late by a racing goroutine carries lower counts;
	// it must neither panic the counter nor roll the gauges back.
	stale := sampleSnapshot()
	stale.Seq = 4
	stale.Counts.LampOn = 1
	stale.Relays.Lamp = false
	m.Observe(stale)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("lamp", "on")); got != 2 {
		t.Errorf("lamp on transitions after stale observe: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.lamp); got != 1 {
		t.Errorf("lamp gauge after stale observe: got %v, want 1", got)
	}
}

func TestObserveCycle(t *testing.T) {
	m := New()
	m.ObserveCycle()
	m.ObserveCycle()
	if got := testutil.ToFloat64(m.cycles); got != 2 {
		t.Errorf("cycles: got %v, want 2", got)
	}
}
