package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/intake-sensor/internal/status"
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
	"ml": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"join": func(ss []string) string {
		if len(ss) == 0 {
			return "none"
		}
		out := ss[0]
		for _, s := range ss[1:] {
			out += ", " + s
		}
		return out
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Intake Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.total { color: #06c; font-weight: bold; }
.na { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
progress { width: 100%; }
</style>
</head>
<body>
<h1>Intake Sensor{{if .Config.DeviceID}} ({{.Config.DeviceID}}){{end}}</h1>

<h2>Intake</h2>
<table>
<tr><th>Total</th><td id="total" class="total">{{ml .Intake.CumulativeML}} ml</td></tr>
<tr><th>Last tick</th><td>{{ml .Intake.InstantaneousML}} ml</td></tr>
{{if gt .Config.DailyGoalML 0.0}}<tr><th>Daily goal</th><td>{{ml .Config.DailyGoalML}} ml <progress max="100" value="{{.Progress}}"></progress></td></tr>{{end}}
<tr><th>Weight</th>{{if .Intake.HasWeight}}<td>{{ml .Intake.CurrentWeight}} g ({{ml .Intake.CumulativeWeightML}} ml)</td>{{else}}<td class="na">n/a</td>{{end}}</tr>
<tr><th>Flow</th>{{if .Intake.HasFlow}}<td>{{ml .Intake.FlowRateLPM}} L/min ({{ml .Intake.CumulativeFlowML}} ml)</td>{{else}}<td class="na">n/a</td>{{end}}</tr>
<tr><th>Temperature</th>{{if .Intake.HasTemperature}}<td>{{ml .Intake.Temperature}} &deg;C</td>{{else}}<td class="na">n/a</td>{{end}}</tr>
<tr><th>Humidity</th>{{if .Intake.HasHumidity}}<td>{{ml .Intake.Humidity}} %</td>{{else}}<td class="na">n/a</td>{{end}}</tr>
</table>

<h2>Reports</h2>
<table>
<tr><th>Sent</th><td>{{.Reports.Sent}}</td></tr>
<tr><th>Failed</th><td>{{.Reports.Failed}}</td></tr>
<tr><th>Skipped</th><td>{{.Reports.Skipped}}</td></tr>
<tr><th>Last</th><td>{{if .LastReport.IsZero}}never{{else}}{{.LastReport.UTC.Format "2006-01-02T15:04:05Z"}} (code {{.LastCode}}){{end}}</td></tr>
<tr><th>Sinks</th><td>{{join .Config.Sinks}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Channels</th><td>{{join .Config.Channels}}{{if .Config.SimulatedWeight}} (simulated weight){{end}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Report</th><td>{{if eq .Config.ReportMs 0}}disabled{{else}}{{.Config.ReportMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Progress() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Progress float64
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Progress: snap.Progress(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
