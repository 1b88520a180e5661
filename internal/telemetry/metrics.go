// Package telemetry exposes controller state as Prometheus metrics.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// Metrics holds the Prometheus collectors for the controller.
type Metrics struct {
	registry *prometheus.Registry

	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	light       prometheus.Gauge
	lamp        prometheus.Gauge
	motor       prometheus.Gauge
	manualMode  prometheus.Gauge
	thresholds  *prometheus.GaugeVec

	cycles      prometheus.Counter
	transitions *prometheus.CounterVec

	// Observe is called from both the control loop and HTTP handlers.
	// Snapshots may arrive out of order; lastSeq discards stale ones.
	mu         sync.Mutex
	lastSeq    uint64
	lastCounts control.EventCounts
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_temperature_celsius",
			Help: "Last sampled air temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_humidity_percent",
			Help: "Last sampled relative humidity.",
		}),
		light: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_light_percent",
			Help: "Last sampled light level (0 dark, 100 bright).",
		}),
		lamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_lamp_on",
			Help: "Grow lamp relay state (1 energized).",
		}),
		motor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_motor_on",
			Help: "Ventilation motor relay state (1 energized).",
		}),
		manualMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_manual_mode",
			Help: "Control mode (1 manual, 0 automatic).",
		}),
		thresholds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_threshold",
			Help: "Configured hysteresis bounds.",
		}, []string{"bound"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "greenhouse_evaluation_cycles_total",
			Help: "Control evaluation cycles executed.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_relay_transitions_total",
			Help: "Relay transitions by channel and resulting state.",
		}, []string{"channel", "state"}),
	}

	m.registry.MustRegister(
		m.temperature, m.humidity, m.light,
		m.lamp, m.motor, m.manualMode,
		m.thresholds, m.cycles, m.transitions,
	)
	return m
}

// ObserveCycle counts one evaluation cycle.
func (m *Metrics) ObserveCycle() {
	m.cycles.Inc()
}

// Observe updates all gauges from a controller snapshot and advances the
// transition counters by the delta since the previous observation.
// Snapshots older than the last one observed are dropped: callers race
// (control loop vs HTTP handlers), and a stale snapshot would roll gauges
// back and make a counter delta negative.
func (m *Metrics) Observe(snap control.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Seq < m.lastSeq {
		return
	}
	m.lastSeq = snap.Seq

	if snap.HaveReading {
		m.temperature.Set(snap.Reading.Temperature)
		m.humidity.Set(snap.Reading.Humidity)
		m.light.Set(float64(snap.Reading.Light))
	}
	m.lamp.Set(boolValue(snap.Relays.Lamp))
	m.motor.Set(boolValue(snap.Relays.Motor))
	m.manualMode.Set(boolValue(snap.Mode == control.ModeManual))

	th := snap.Thresholds
	m.thresholds.WithLabelValues("motor_on_temp").Set(th.MotorOnTemp)
	m.thresholds.WithLabelValues("motor_off_temp").Set(th.MotorOffTemp)
	m.thresholds.WithLabelValues("motor_on_humidity").Set(th.MotorOnHumidity)
	m.thresholds.WithLabelValues("motor_off_humidity").Set(th.MotorOffHumidity)
	m.thresholds.WithLabelValues("lamp_on_light").Set(float64(th.LampOnLight))
	m.thresholds.WithLabelValues("lamp_off_light").Set(float64(th.LampOffLight))

	c := snap.Counts
	m.addTransitions("lamp", "on", c.LampOn-m.lastCounts.LampOn)
	m.addTransitions("lamp", "off", c.LampOff-m.lastCounts.LampOff)
	m.addTransitions("motor", "on", c.MotorOn-m.lastCounts.MotorOn)
	m.addTransitions("motor", "off", c.MotorOff-m.lastCounts.MotorOff)
	m.lastCounts = c
}

// addTransitions clamps the delta at zero: prometheus counters panic on a
// negative Add, and equal sequence numbers carry equal counts anyway.
func (m *Metrics) addTransitions(channel, state string, delta int) {
	if delta <= 0 {
		return
	}
	m.transitions.WithLabelValues(channel, state).Add(float64(delta))
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
