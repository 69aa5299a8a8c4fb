package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pulse-sensor/internal/status"
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
	"bpmOrDash": func(snap status.Snapshot) string {
		if !snap.Reading.Valid {
			return "--"
		}
		return fmt.Sprintf("%d", snap.Reading.BPM)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pulse Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.bpm { font-size: 2.4em; font-weight: bold; }
.valid { color: green; }
.invalid { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Pulse Sensor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Heart Rate</h2>
<table>
<tr><th>BPM</th><td><span id="bpm" class="bpm {{if .Reading.Valid}}valid{{else}}invalid{{end}}">{{bpmOrDash .Snapshot}}</span></td></tr>
<tr><th>Valid</th><td id="bpm-valid">{{if .Reading.Valid}}yes{{else}}no{{end}}</td></tr>
<tr><th>Confidence</th><td id="bpm-confidence">{{.Reading.Confidence}}%</td></tr>
<tr><th>Ready</th><td>{{if .WarmedUp}}yes{{else}}warming up{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Samples</th><td>{{.Stats.Samples}}</td></tr>
<tr><th>Beats</th><td>{{.Stats.Beats}}</td></tr>
<tr><th>Not Ready</th><td>{{.Stats.NotReady}}</td></tr>
<tr><th>Timeouts</th><td>{{.Stats.Timeouts}}</td></tr>
<tr><th>Bus Errors</th><td>{{.Stats.BusErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>I2C Bus</th><td>{{.Config.I2CBusNo}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "health/pulse/sensor/readings";
  var dot = document.getElementById("live-dot");
  var bpmEl = document.getElementById("bpm");
  var validEl = document.getElementById("bpm-valid");
  var confEl = document.getElementById("bpm-confidence");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.pulse) {
        bpmEl.textContent = msg.pulse.valid ? msg.pulse.bpm : "--";
        bpmEl.className = "bpm " + (msg.pulse.valid ? "valid" : "invalid");
        validEl.textContent = msg.pulse.valid ? "yes" : "no";
        confEl.textContent = msg.pulse.confidence + "%";
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
