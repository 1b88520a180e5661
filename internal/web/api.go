package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// DataJSON is the JSON representation of controller status, served by
// GET /api/data and returned from every mutating endpoint.
type DataJSON struct {
	Temperature   float64        `json:"temp"`
	Humidity      float64        `json:"humidity"`
	Light         int            `json:"light"`
	HaveReading   bool           `json:"have_reading"`
	Lamp          bool           `json:"lamp"`
	Motor         bool           `json:"motor"`
	Mode          string         `json:"mode"`
	Thresholds    ThresholdsJSON `json:"thresholds"`
	Counts        CountsJSON     `json:"event_counts"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
}

// ThresholdsJSON is the JSON representation of the hysteresis bounds.
type ThresholdsJSON struct {
	MotorOnTemp      float64 `json:"motor_on_temp"`
	MotorOffTemp     float64 `json:"motor_off_temp"`
	MotorOnHumidity  float64 `json:"motor_on_humidity"`
	MotorOffHumidity float64 `json:"motor_off_humidity"`
	LampOnLight      int     `json:"lamp_on_light"`
	LampOffLight     int     `json:"lamp_off_light"`
}

// CountsJSON is the JSON representation of relay transition counts.
type CountsJSON struct {
	LampOn   int `json:"lamp_on"`
	LampOff  int `json:"lamp_off"`
	MotorOn  int `json:"motor_on"`
	MotorOff int `json:"motor_off"`
}

// MQTTStatus reports event broker connectivity.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ErrorJSON is the error response body.
type ErrorJSON struct {
	Error string `json:"error"`
}

func (s *Server) dataJSON(snap control.Snapshot) DataJSON {
	return DataJSON{
		Temperature: snap.Reading.Temperature,
		Humidity:    snap.Reading.Humidity,
		Light:       snap.Reading.Light,
		HaveReading: snap.HaveReading,
		Lamp:        snap.Relays.Lamp,
		Motor:       snap.Relays.Motor,
		Mode:        string(snap.Mode),
		Thresholds: ThresholdsJSON{
			MotorOnTemp:      snap.Thresholds.MotorOnTemp,
			MotorOffTemp:     snap.Thresholds.MotorOffTemp,
			MotorOnHumidity:  snap.Thresholds.MotorOnHumidity,
			MotorOffHumidity: snap.Thresholds.MotorOffHumidity,
			LampOnLight:      snap.Thresholds.LampOnLight,
			LampOffLight:     snap.Thresholds.LampOffLight,
		},
		Counts: CountsJSON{
			LampOn:   snap.Counts.LampOn,
			LampOff:  snap.Counts.LampOff,
			MotorOn:  snap.Counts.MotorOn,
			MotorOff: snap.Counts.MotorOff,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: s.connected(), Broker: s.opts.Config.Broker},
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dataJSON(s.backend.Status()))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var mode control.Mode
	switch strings.ToLower(r.PostFormValue("mode")) {
	case "auto":
		mode = control.ModeAuto
	case "manual":
		mode = control.ModeManual
	default:
		writeError(w, http.StatusBadRequest, "mode must be 'auto' or 'manual'")
		return
	}

	snap, events := s.backend.SetMode(mode)
	s.notify(snap, events)
	writeJSON(w, http.StatusOK, s.dataJSON(snap))
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	channel := control.Channel(strings.ToLower(r.PostFormValue("channel")))
	if channel != control.ChannelLamp && channel != control.ChannelMotor {
		writeError(w, http.StatusBadRequest, "channel must be 'lamp' or 'motor'")
		return
	}
	on, err := strconv.ParseBool(r.PostFormValue("state"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "state must be a boolean")
		return
	}

	snap, events, err := s.backend.SetManualRelay(channel, on)
	switch {
	case errors.Is(err, control.ErrModeConflict):
		writeError(w, http.StatusConflict, "automatic mode active, switch to manual first")
		return
	case errors.Is(err, control.ErrUnknownChannel):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(snap, events)
	writeJSON(w, http.StatusOK, s.dataJSON(snap))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form")
		return
	}

	var patch control.ThresholdPatch
	var parseErr error

	floatField := func(name string, dst **float64) {
		if v := r.PostForm.Get(name); v != "" && parseErr == nil {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				parseErr = fmt.Errorf("%s must be a number", name)
				return
			}
			*dst = &f
		}
	}
	intField := func(name string, dst **int) {
		if v := r.PostForm.Get(name); v != "" && parseErr == nil {
			n, err := strconv.Atoi(v)
			if err != nil {
				parseErr = fmt.Errorf("%s must be an integer", name)
				return
			}
			*dst = &n
		}
	}

	floatField("motor_on_temp", &patch.MotorOnTemp)
	floatField("motor_off_temp", &patch.MotorOffTemp)
	floatField("motor_on_humidity", &patch.MotorOnHumidity)
	floatField("motor_off_humidity", &patch.MotorOffHumidity)
	intField("lamp_on_light", &patch.LampOnLight)
	intField("lamp_off_light", &patch.LampOffLight)

	if parseErr != nil {
		writeError(w, http.StatusBadRequest, parseErr.Error())
		return
	}

	snap, err := s.backend.UpdateThresholds(patch)
	if errors.Is(err, control.ErrInvalidThresholds) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(snap, nil)
	writeJSON(w, http.StatusOK, s.dataJSON(snap))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorJSON{Error: msg})
}
