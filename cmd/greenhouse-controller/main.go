// Command greenhouse-controller runs the greenhouse climate loop: it
// consumes sensor readings from MQTT, drives the grow lamp and ventilation
// motor relays by hysteresis, publishes transitions, and serves the
// operator HTTP interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
	"github.com/sweeney/greenhouse-controller/internal/events"
	"github.com/sweeney/greenhouse-controller/internal/relay"
	"github.com/sweeney/greenhouse-controller/internal/sensor"
	"github.com/sweeney/greenhouse-controller/internal/store"
	"github.com/sweeney/greenhouse-controller/internal/telemetry"
	"github.com/sweeney/greenhouse-controller/internal/web"
)

type options struct {
	poll        time.Duration
	broker      string
	sensorTopic string
	sim         bool
	httpAddr    string
	pinLamp     int
	pinMotor    int
	dbPath      string
	heartbeat   time.Duration
}

func main() {
	var o options
	flag.DurationVar(&o.poll, "poll", time.Second, "Sampling period for the simulated sensor source")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable MQTT)")
	flag.StringVar(&o.sensorTopic, "sensor-topic", sensor.DefaultTopic, "MQTT topic the sensor node publishes to")
	flag.BoolVar(&o.sim, "sim", false, "Use a simulated sensor source and a log-only relay driver")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP listen address (empty to disable)")
	flag.IntVar(&o.pinLamp, "pin-lamp", relay.DefaultPinLamp, "BCM pin number for the grow lamp relay")
	flag.IntVar(&o.pinMotor, "pin-motor", relay.DefaultPinMotor, "BCM pin number for the ventilation motor relay")
	flag.StringVar(&o.dbPath, "db", "greenhouse.db", "Configuration database path")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	if o.broker == "" && !o.sim {
		return fmt.Errorf("--broker is required unless --sim is set")
	}

	st, err := store.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	var driver relay.Driver
	if o.sim {
		driver = logDriver{}
	} else {
		driver, err = relay.NewRealDriver(o.pinLamp, o.pinMotor)
		if err != nil {
			return fmt.Errorf("init relays: %w", err)
		}
	}
	defer driver.Close()

	ctl := control.New(driver, control.DefaultThresholds(), time.Now())
	saved, err := st.Load()
	if err != nil {
		return err
	}
	if saved != nil {
		if err := ctl.Restore(saved.Mode, saved.Manual, saved.Thresholds); err != nil {
			log.Printf("ignoring saved configuration: %v", err)
		} else {
			log.Printf("restored configuration: mode=%s", saved.Mode)
		}
	}

	var publisher events.Publisher
	var conn events.ConnectionStatus
	if o.broker != "" {
		pub, err := events.NewRealPublisher(o.broker)
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		defer pub.Close()
		publisher = pub
		conn = pub
	}

	var source sensor.Source
	if o.sim {
		source = sensor.NewSimSource(o.poll, time.Now().UnixNano())
		log.Printf("using simulated sensor source (period %v)", o.poll)
	} else {
		src, err := sensor.NewMQTTSource(o.broker, o.sensorTopic)
		if err != nil {
			return fmt.Errorf("init sensor source: %w", err)
		}
		source = src
	}
	defer source.Close()

	metrics := telemetry.New()
	saver := &stateSaver{st: st}

	// Publish transitions, persist configuration, and refresh telemetry
	// after every state-changing HTTP request.
	notify := func(snap control.Snapshot, evs []control.Event) {
		publishAll(publisher, evs)
		metrics.Observe(snap)
		saver.save(snap)
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, ctl, web.Options{
			Config: web.Config{
				Broker:   o.broker,
				HTTPAddr: o.httpAddr,
				PollMs:   o.poll.Milliseconds(),
			},
			Conn:    conn,
			Notify:  notify,
			Metrics: metrics.Handler(),
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", o.httpAddr)
	}

	// Publish startup event with a full state snapshot
	if publisher != nil {
		snap := ctl.Status()
		startupEvent := events.SystemEvent{
			Timestamp: time.Now(),
			Event:     "STARTUP",
			Snapshot:  &snap,
			Retained:  true,
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	log.Printf("started: broker=%s topic=%s sim=%v heartbeat=%v db=%s",
		o.broker, o.sensorTopic, o.sim, o.heartbeat, o.dbPath)

	var heartbeatC <-chan time.Time
	if o.heartbeat > 0 {
		ticker := time.NewTicker(o.heartbeat)
		defer ticker.Stop()
		heartbeatC = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctl, source.Readings(), publisher, saver, metrics, time.Now, heartbeatC, sigCh)
}

func runLoop(ctl *control.Controller, readings <-chan control.Reading, publisher events.Publisher, saver *stateSaver, metrics *telemetry.Metrics, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			snap := ctl.Status()
			saver.save(snap)
			if publisher != nil {
				event := events.SystemEvent{
					Timestamp: now(),
					Event:     "SHUTDOWN",
					Reason:    signalName,
					Snapshot:  &snap,
					Retained:  true,
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case r, ok := <-readings:
			if !ok {
				return fmt.Errorf("sensor source closed")
			}

			snap, evs := ctl.SubmitReading(r)
			if metrics != nil {
				metrics.ObserveCycle()
				metrics.Observe(snap)
			}

			for _, event := range evs {
				log.Printf("event: %s (lamp=%s motor=%s)",
					event.Type, stateString(event.Relays.Lamp), stateString(event.Relays.Motor))
			}
			publishAll(publisher, evs)

		case <-heartbeat:
			snap := ctl.Status()
			log.Printf("heartbeat: uptime=%v lamp_on=%d lamp_off=%d motor_on=%d motor_off=%d",
				snap.Uptime().Truncate(time.Second),
				snap.Counts.LampOn, snap.Counts.LampOff, snap.Counts.MotorOn, snap.Counts.MotorOff)

			if publisher != nil {
				hbEvent := events.SystemEvent{
					Timestamp: now(),
					Event:     "HEARTBEAT",
					Snapshot:  &snap,
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// stateSaver persists snapshots, dropping any older than the last one
// saved. Saves arrive concurrently from HTTP handler goroutines and the
// run loop; without the ordering check a save delivered late could
// overwrite newer configuration with older.
type stateSaver struct {
	mu      sync.Mutex
	lastSeq uint64
	st      *store.Store // nil when persistence is disabled
}

func (s *stateSaver) save(snap control.Snapshot) {
	if s == nil || s.st == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Seq < s.lastSeq {
		return
	}
	s.lastSeq = snap.Seq
	if err := s.st.Save(snap); err != nil {
		log.Printf("save state: %v", err)
	}
}

func publishAll(publisher events.Publisher, evs []control.Event) {
	if publisher == nil {
		return
	}
	for _, event := range evs {
		if err := publisher.Publish(event); err != nil {
			// Don't crash on publish failure
			log.Printf("publish error: %v", err)
		}
	}
}

// logDriver stands in for the GPIO relays during simulated runs.
type logDriver struct{}

func (logDriver) Apply(lamp, motor bool) error {
	log.Printf("relay: lamp=%s motor=%s", stateString(lamp), stateString(motor))
	return nil
}

func (logDriver) Close() error { return nil }

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
