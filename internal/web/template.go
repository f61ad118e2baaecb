package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/alert-dispatch/internal/status"
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
	"level": status.Level,
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Alert Dispatch</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.high { color: #c00; font-weight: bold; }
.low { color: #888; }
.ok, .connected { color: green; }
.failed, .disconnected { color: red; }
</style>
</head>
<body>
<h1>Alert Dispatch</h1>

<h2>Channels</h2>
<table>
<tr><th>Channel</th><td>Level</td><td>Presses</td><td>Last press</td></tr>
{{range .Channels}}<tr><th>{{.Name}}</th><td class="{{if .LastLevel}}high{{else}}low{{end}}">{{level .LastLevel}}</td><td>{{.Presses}}</td><td>{{if .Presses}}{{stamp .LastAccept}}{{else}}never{{end}}</td></tr>
{{end}}<tr><th>Ready</th><td colspan="3">{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Deliveries</h2>
<table>
<tr><th>Delivered</th><td>{{.Deliveries.OK}}</td></tr>
<tr><th>Failed</th><td>{{.Deliveries.Failed}}</td></tr>
{{with .LastDelivery}}<tr><th>Last</th><td class="{{if .Result.OK}}ok{{else}}failed{{end}}">{{.Result.Outcome}} ({{if .ChannelName}}{{.ChannelName}}{{else}}startup{{end}}, {{stamp .Timestamp}})</td></tr>
{{if .Result.StatusLine}}<tr><th>Response</th><td>{{.Result.StatusLine}}</td></tr>{{end}}
<tr><th>Request</th><td>{{.Result.RequestID}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Server</th><td>{{.Config.Host}}</td></tr>
{{range .DNS}}<tr><th>DNS {{.Host}}</th><td>{{.State}}{{if .Addr}} {{.Addr}}{{end}}</td></tr>
{{end}}<tr><th>DNS server</th><td>{{.Config.DNSServer}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{stamp .StartTime}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Refractory</th><td>{{.Config.RefractoryMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
