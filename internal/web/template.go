package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/bottle-cap-monitor/internal/logic"
	"github.com/sweeney/bottle-cap-monitor/internal/status"
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
	"stateOrUnknown": func(s logic.State) string {
		if s == "" {
			return "UNKNOWN"
		}
		return string(s)
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
<meta http-equiv="refresh" content="2">
<title>Cap Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alarm { color: white; background: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Cap Monitor</h1>

<h2>Inspection</h2>
<table>
<tr><th>State</th><td id="state"{{if .Alarmed}} class="alarm"{{end}}>{{stateOrUnknown .State}}</td></tr>
<tr><th>Faulty in window</th><td id="faulty">{{.Counter.Faulty}} / {{.MaxErrors}}</td></tr>
<tr><th>Window</th><td id="window">{{.Counter.Window}} / {{.ErrorWindow}}</td></tr>
</table>

<h2>Outputs</h2>
<table>
<tr><th>Bottle</th><td class="{{if .Indicators.Bottle}}on{{else}}off{{end}}">{{onOff .Indicators.Bottle}}</td></tr>
<tr><th>Cap</th><td class="{{if .Indicators.Cap}}on{{else}}off{{end}}">{{onOff .Indicators.Cap}}</td></tr>
<tr><th>Alarm</th><td class="{{if .Indicators.Alarm}}alarm{{else}}off{{end}}">{{onOff .Indicators.Alarm}}</td></tr>
<tr><th>Relay</th><td class="{{if .Indicators.Relay}}alarm{{else}}off{{end}}">{{onOff .Indicators.Relay}}</td></tr>
</table>

<h2>Totals</h2>
<table>
<tr><th>Bottles</th><td>{{.Counts.Bottles}}</td></tr>
<tr><th>Capped</th><td>{{.Counts.Capped}}</td></tr>
<tr><th>Faulty</th><td>{{.Counts.Faulty}}</td></tr>
<tr><th>Windows closed</th><td>{{.Counts.WindowsClosed}}</td></tr>
<tr><th>Alarms</th><td>{{.Counts.Alarms}}</td></tr>
<tr><th>Aborted</th><td>{{.Counts.Aborted}}</td></tr>
<tr><th>Resets</th><td>{{.Counts.Resets}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Config.Broker}}{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{else}}disabled{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT backlog</th><td>{{.MQTTPending}} pending, {{.MQTTDropped}} dropped</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.Config.BootID}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Long press</th><td>{{.Config.LongPressMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Template needs fields, not methods with arguments; flatten here.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		Alarmed     bool
		MaxErrors   int
		ErrorWindow int
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		Alarmed:     snap.Alarmed(),
		MaxErrors:   logic.MaxErrors,
		ErrorWindow: logic.ErrorWindow,
	}
	return indexTmpl.Execute(w, data)
}
