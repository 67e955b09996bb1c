package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/crank-sensor/internal/status"
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
	"rpm": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Crank Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.rpm { font-size: 1.6em; font-weight: bold; }
.synced { color: green; font-weight: bold; }
.unsynced { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Crank Sensor</h1>

<h2>Shaft</h2>
<table>
<tr><th>RPM</th><td class="rpm">{{rpm .RPM}}</td></tr>
<tr><th>Sync</th><td class="{{if eq (printf "%s" .State) "SYNCED"}}synced{{else}}unsynced{{end}}">{{.State}}</td></tr>
<tr><th>Phase</th><td>{{.Phase}} / {{.Config.TeethPerRev}}</td></tr>
<tr><th>Tooth index</th><td>{{.ToothIndex}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Sample Counts</h2>
<table>
<tr><th>Accepted</th><td>{{.Counts.Accepted}}</td></tr>
<tr><th>Noise rejected</th><td>{{.Counts.Noise}}</td></tr>
<tr><th>Stall rejected</th><td>{{.Counts.Stall}}</td></tr>
<tr><th>Syncs</th><td>{{.Counts.Syncs}}</td></tr>
<tr><th>Desyncs</th><td>{{.Counts.Desyncs}}</td></tr>
<tr><th>Queue overflows</th><td>{{.Overflows}}</td></tr>
<tr><th>Debounced</th><td>{{.Debounced}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Line</th><td>{{.Config.Chip}}:{{.Config.Pin}} ({{.Config.Edge}})</td></tr>
<tr><th>Wheel</th><td>{{.Config.TeethPerRev}} teeth, gap ratio {{.Config.GapRatio}}</td></tr>
<tr><th>Tick clock</th><td>{{.Config.TickHz}} Hz</td></tr>
<tr><th>Noise floor</th><td>{{.Config.NoiseFloorUs}}µs</td></tr>
<tr><th>Stall bound</th><td>{{.Config.StallMs}}ms</td></tr>
<tr><th>Publish</th><td>{{.Config.PublishMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if .Config.HeartbeatMs}}{{.Config.HeartbeatMs}}ms{{else}}disabled{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
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
