package internal

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
	"github.com/sweeney/greenhouse-controller/internal/events"
	"github.com/sweeney/greenhouse-controller/internal/relay"
	"github.com/sweeney/greenhouse-controller/internal/sensor"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

// TestIntegrationFullFlow tests the complete flow from a raw sensor payload
// to relay hardware and MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	// Simulate: mild morning -> hot afternoon -> dark evening -> cool night
	payloads := []string{
		`{"temp":24.0,"humidity":55,"light":60}`, // nothing trips
		`{"temp":31.5,"humidity":58,"light":70}`, // motor on (temp)
		`{"temp":29.0,"humidity":62,"light":20}`, // lamp on (light), motor held
		`{"temp":26.0,"humidity":55,"light":18}`, // motor off (both below)
		`{"temp":24.0,"humidity":50,"light":40}`, // lamp off (light recovered)
	}

	driver := relay.NewFakeDriver()
	publisher := events.NewFakePublisher()
	startTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctl := control.New(driver, control.DefaultThresholds(), startTime)

	pollInterval := time.Second

	// Simulate the main loop
	for i, payload := range payloads {
		now := startTime.Add(time.Duration(i) * pollInterval)
		r, err := sensor.ParseReading([]byte(payload), now)
		if err != nil {
			t.Fatalf("sample %d: parse error: %v", i, err)
		}

		_, evs := ctl.SubmitReading(r)
		for _, event := range evs {
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("sample %d: publish error: %v", i, err)
			}
		}
	}

	// Verify published events
	wantTypes := []control.EventType{
		control.EventMotorOn,
		control.EventLampOn,
		control.EventMotorOff,
		control.EventLampOff,
	}
	if len(publisher.Events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d", len(wantTypes), len(publisher.Events))
	}
	for i, want := range wantTypes {
		if publisher.Events[i].Type != want {
			t.Errorf("event %d: expected %s, got %s", i, want, publisher.Events[i].Type)
		}
	}

	// The lamp-on event carries the full relay state at that instant.
	if !publisher.Events[1].Relays.Motor {
		t.Error("lamp-on event: motor should still be on")
	}

	// Hardware saw each distinct state exactly once.
	wantApplies := []relay.Applied{
		{Lamp: false, Motor: true},
		{Lamp: true, Motor: true},
		{Lamp: true, Motor: false},
		{Lamp: false, Motor: false},
	}
	if len(driver.Applies) != len(wantApplies) {
		t.Fatalf("expected %d hardware applies, got %d", len(wantApplies), len(driver.Applies))
	}
	for i, want := range wantApplies {
		if driver.Applies[i] != want {
			t.Errorf("apply %d: expected %+v, got %+v", i, want, driver.Applies[i])
		}
	}

	// Verify JSON payloads
	for i, payload := range publisher.Payloads {
		var parsed events.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Greenhouse.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Greenhouse.Event == "" {
			t.Errorf("payload %d: missing event", i)
		}
		if parsed.Greenhouse.Mode != "AUTO" {
			t.Errorf("payload %d: expected mode AUTO, got %s", i, parsed.Greenhouse.Mode)
		}
	}
}

// TestIntegrationManualOverride exercises the mode state machine end to end:
// automatic control, a manual override, then return to automatic.
func TestIntegrationManualOverride(t *testing.T) {
	driver := relay.NewFakeDriver()
	publisher := events.NewFakePublisher()
	startTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctl := control.New(driver, control.DefaultThresholds(), startTime)

	publish := func(evs []control.Event) {
		t.Helper()
		for _, event := range evs {
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("publish error: %v", err)
			}
		}
	}

	// Hot reading: engine turns the motor on.
	r, err := sensor.ParseReading([]byte(`{"temp":32,"humidity":50,"light":60}`), startTime)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, evs := ctl.SubmitReading(r)
	publish(evs)

	// Operator takes over. The motor stays on: the live state became the
	// manual baseline, so the switch itself moves nothing.
	applies := len(driver.Applies)
	snap, evs := ctl.SetMode(control.ModeManual)
	publish(evs)
	if !snap.Relays.Motor {
		t.Error("motor should survive the switch to manual")
	}
	if len(driver.Applies) != applies {
		t.Error("mode switch must not touch hardware")
	}

	// Operator forces the motor off despite the heat.
	_, evs, err = ctl.SetManualRelay(control.ChannelMotor, false)
	if err != nil {
		t.Fatalf("manual relay: %v", err)
	}
	publish(evs)

	// Still hot; the baseline is reasserted, engine output ignored.
	_, evs = ctl.SubmitReading(r)
	publish(evs)
	if got := ctl.Status().Relays.Motor; got {
		t.Error("manual baseline must override the engine")
	}

	// Back to automatic: the next reading re-engages the engine.
	_, evs = ctl.SetMode(control.ModeAuto)
	publish(evs)
	_, evs = ctl.SubmitReading(r)
	publish(evs)
	if got := ctl.Status().Relays.Motor; !got {
		t.Error("engine should turn the motor back on after returning to auto")
	}

	wantTypes := []control.EventType{
		control.EventMotorOn,
		control.EventModeManual,
		control.EventMotorOff,
		control.EventModeAuto,
		control.EventMotorOn,
	}
	if len(publisher.Events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d", len(wantTypes), len(publisher.Events))
	}
	for i, want := range wantTypes {
		if publisher.Events[i].Type != want {
			t.Errorf("event %d: expected %s, got %s", i, want, publisher.Events[i].Type)
		}
	}
}

// TestIntegrationConfigPersistence verifies thresholds and mode survive a
// restart through the store.
func TestIntegrationConfigPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "greenhouse.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	startTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctl := control.New(relay.NewFakeDriver(), control.DefaultThresholds(), startTime)

	// Operator tightens the motor band and switches to manual with lamp on.
	onTemp := 33.0
	snap, err := ctl.UpdateThresholds(control.ThresholdPatch{MotorOnTemp: &onTemp})
	if err != nil {
		t.Fatalf("update thresholds: %v", err)
	}
	if err := st.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	ctl.SetMode(control.ModeManual)
	snap, _, err = ctl.SetManualRelay(control.ChannelLamp, true)
	if err != nil {
		t.Fatalf("manual relay: %v", err)
	}
	if err := st.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// "Restart": fresh store handle, fresh controller, restore.
	st2, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st2.Close()

	saved, err := st2.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved == nil {
		t.Fatal("expected saved state")
	}

	driver := relay.NewFakeDriver()
	ctl2 := control.New(driver, control.DefaultThresholds(), startTime)
	if err := ctl2.Restore(saved.Mode, saved.Manual, saved.Thresholds); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got := ctl2.Status()
	if got.Mode != control.ModeManual {
		t.Errorf("restored mode: got %s, want MANUAL", got.Mode)
	}
	if got.Thresholds.MotorOnTemp != 33.0 {
		t.Errorf("restored MotorOnTemp: got %v, want 33", got.Thresholds.MotorOnTemp)
	}

	// First cycle after restart reasserts the manual baseline on hardware.
	r, _ := sensor.ParseReading([]byte(`{"temp":25,"humidity":50,"light":80}`), startTime)
	ctl2.SubmitReading(r)
	if got := driver.Last(); !got.Lamp {
		t.Errorf("restored baseline not applied: %+v", got)
	}
}

// TestIntegrationStartupPayloadFormat verifies the exact JSON structure of a
// retained startup event carrying a state snapshot.
func TestIntegrationStartupPayloadFormat(t *testing.T) {
	publisher := events.NewFakePublisher()

	startTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctl := control.New(nil, control.DefaultThresholds(), startTime)
	ctl.SetClock(func() time.Time { return startTime.Add(5 * time.Second) })
	snap := ctl.Status()

	event := events.SystemEvent{
		Timestamp: startTime.Add(5 * time.Second),
		Event:     "STARTUP",
		Snapshot:  &snap,
		Retained:  true,
	}
	if err := publisher.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-03-01T12:00:05Z","event":"STARTUP",` +
		`"lamp":"OFF","motor":"OFF","mode":"AUTO","uptime_seconds":5,` +
		`"thresholds":{"motor_on_temp":30,"motor_off_temp":27,` +
		`"motor_on_humidity":70,"motor_off_humidity":60,` +
		`"lamp_on_light":25,"lamp_off_light":35}}}`

	if string(publisher.SystemPayloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.SystemPayloads[0]), expected)
	}
}

// TestIntegrationShutdownPayloadFormat verifies the exact JSON structure for
// shutdown events without a snapshot.
func TestIntegrationShutdownPayloadFormat(t *testing.T) {
	publisher := events.NewFakePublisher()

	event := events.SystemEvent{
		Timestamp: time.Date(2026, 3, 2, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
		Retained:  true,
	}
	publisher.PublishSystem(event)

	expected := `{"system":{"timestamp":"2026-03-02T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`

	if string(publisher.SystemPayloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.SystemPayloads[0]), expected)
	}
}

// TestIntegrationTransitionPayloadFormat verifies the exact JSON structure
// for relay transition events.
func TestIntegrationTransitionPayloadFormat(t *testing.T) {
	event := control.Event{
		Timestamp: time.Date(2026, 3, 2, 22, 18, 12, 0, time.UTC),
		Type:      control.EventMotorOn,
		Relays:    control.RelayState{Lamp: false, Motor: true},
		Mode:      control.ModeAuto,
	}

	publisher := events.NewFakePublisher()
	publisher.Publish(event)

	expected := `{"greenhouse":{"timestamp":"2026-03-02T22:18:12Z","event":"MOTOR_ON",` +
		`"lamp":{"state":"OFF"},"motor":{"state":"ON"},"mode":"AUTO"}}`

	if string(publisher.Payloads[0]) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(publisher.Payloads[0]), expected)
	}
}

// TestIntegrationMalformedPayloadNeverReachesRelays verifies a bad sensor
// payload is rejected at the parse boundary.
func TestIntegrationMalformedPayloadNeverReachesRelays(t *testing.T) {
	driver := relay.NewFakeDriver()
	startTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctl := control.New(driver, control.DefaultThresholds(), startTime)

	bad := []string{
		`not json`,
		`{"temp":32}`,
		`{"temp":"hot","humidity":50,"light":10}`,
		`{}`,
	}
	for _, payload := range bad {
		if _, err := sensor.ParseReading([]byte(payload), startTime); err == nil {
			t.Errorf("payload %q: expected parse error", payload)
		}
	}

	if len(driver.Applies) != 0 {
		t.Errorf("expected no hardware applies, got %d", len(driver.Applies))
	}
	if ctl.Status().HaveReading {
		t.Error("controller should have no reading")
	}
}
