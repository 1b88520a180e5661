package web

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Greenhouse Controller</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.manual { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; padding: 3px 10px; }
input { font-family: monospace; width: 6em; }
#msg { color: red; min-height: 1.2em; }
</style>
</head>
<body>
<h1>Greenhouse Controller</h1>

<h2>Climate</h2>
<table>
<tr><th>Temperature</th><td id="temp">{{if .HaveReading}}{{printf "%.1f" .Reading.Temperature}} °C{{else}}–{{end}}</td></tr>
<tr><th>Humidity</th><td id="humidity">{{if .HaveReading}}{{printf "%.1f" .Reading.Humidity}} %{{else}}–{{end}}</td></tr>
<tr><th>Light</th><td id="light">{{if .HaveReading}}{{.Reading.Light}} %{{else}}–{{end}}</td></tr>
</table>

<h2>Relays</h2>
<table>
<tr><th>Grow Lamp</th><td><span id="lamp" class="{{if .Relays.Lamp}}on{{else}}off{{end}}">{{onOff .Relays.Lamp}}</span>
  <button id="lamp-btn" data-channel="lamp" hidden></button></td></tr>
<tr><th>Ventilation Motor</th><td><span id="motor" class="{{if .Relays.Motor}}on{{else}}off{{end}}">{{onOff .Relays.Motor}}</span>
  <button id="motor-btn" data-channel="motor" hidden></button></td></tr>
<tr><th>Mode</th><td><span id="mode" class="{{if eq .Mode "MANUAL"}}manual{{end}}">{{.Mode}}</span>
  <button id="mode-btn"></button></td></tr>
</table>

<h2>Thresholds</h2>
<form id="config-form">
<table>
<tr><th>Motor on temp (°C)</th><td><input name="motor_on_temp" value="{{.Thresholds.MotorOnTemp}}"></td></tr>
<tr><th>Motor off temp (°C)</th><td><input name="motor_off_temp" value="{{.Thresholds.MotorOffTemp}}"></td></tr>
<tr><th>Motor on humidity (%)</th><td><input name="motor_on_humidity" value="{{.Thresholds.MotorOnHumidity}}"></td></tr>
<tr><th>Motor off humidity (%)</th><td><input name="motor_off_humidity" value="{{.Thresholds.MotorOffHumidity}}"></td></tr>
<tr><th>Lamp on light (%)</th><td><input name="lamp_on_light" value="{{.Thresholds.LampOnLight}}"></td></tr>
<tr><th>Lamp off light (%)</th><td><input name="lamp_off_light" value="{{.Thresholds.LampOffLight}}"></td></tr>
</table>
<button type="submit">Save thresholds</button>
</form>
<p id="msg"></p>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>MQTT</th><td class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{if .Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/api/data">JSON</a></p>
<script>
(function() {
  var isManual = false;

  function setState(id, on) {
    var el = document.getElementById(id);
    el.textContent = on ? "ON" : "OFF";
    el.className = on ? "on" : "off";
  }

  function setButton(id, on) {
    var btn = document.getElementById(id);
    btn.hidden = !isManual;
    btn.textContent = on ? "Turn off" : "Turn on";
    btn.dataset.state = on ? "false" : "true";
  }

  function render(d) {
    if (d.have_reading) {
      document.getElementById("temp").textContent = d.temp.toFixed(1) + " °C";
      document.getElementById("humidity").textContent = d.humidity.toFixed(1) + " %";
      document.getElementById("light").textContent = d.light + " %";
    }
    isManual = d.mode === "MANUAL";
    setState("lamp", d.lamp);
    setState("motor", d.motor);
    setButton("lamp-btn", d.lamp);
    setButton("motor-btn", d.motor);
    var mode = document.getElementById("mode");
    mode.textContent = d.mode;
    mode.className = isManual ? "manual" : "";
    document.getElementById("mode-btn").textContent = isManual ? "Switch to auto" : "Switch to manual";
  }

  function post(path, data) {
    return fetch(path, {
      method: "POST",
      headers: {"Content-Type": "application/x-www-form-urlencoded"},
      body: new URLSearchParams(data).toString()
    }).then(function(r) {
      return r.json().then(function(d) {
        if (!r.ok) { throw new Error(d.error || r.statusText); }
        render(d);
      });
    });
  }

  function showError(err) {
    document.getElementById("msg").textContent = err.message;
    setTimeout(function() { document.getElementById("msg").textContent = ""; }, 4000);
  }

  function poll() {
    fetch("/api/data").then(function(r) { return r.json(); }).then(render).catch(function() {});
  }
  setInterval(poll, 1200);
  poll();

  document.getElementById("mode-btn").addEventListener("click", function() {
    post("/api/mode", {mode: isManual ? "auto" : "manual"}).catch(showError);
  });

  ["lamp-btn", "motor-btn"].forEach(function(id) {
    document.getElementById(id).addEventListener("click", function(e) {
      post("/api/relay", {channel: e.target.dataset.channel, state: e.target.dataset.state}).catch(showError);
    });
  });

  document.getElementById("config-form").addEventListener("submit", function(e) {
    e.preventDefault();
    post("/api/config", Object.fromEntries(new FormData(e.target))).then(function() {
      document.getElementById("msg").textContent = "saved";
      setTimeout(function() { document.getElementById("msg").textContent = ""; }, 2000);
    }).catch(showError);
  });
})();
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.backend.Status()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.opts.Config, s.connected())
}

func renderHTML(w io.Writer, snap control.Snapshot, cfg Config, connected bool) {
	data := struct {
		control.Snapshot
		Uptime    time.Duration
		Config    Config
		Connected bool
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Config:    cfg,
		Connected: connected,
	}
	indexTmpl.Execute(w, data)
}
