package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Ready         bool           `json:"ready"`
	Ticks         int            `json:"ticks"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Channels      []ChannelJSON  `json:"channels"`
	Deliveries    DeliveriesJSON `json:"deliveries"`
	DNS           []DNSJSON      `json:"dns,omitempty"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ChannelJSON is the JSON representation of one input channel.
type ChannelJSON struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Level      string `json:"level"`
	Pressed    bool   `json:"pressed"`
	Presses    int    `json:"presses"`
	LastAccept string `json:"last_accept,omitempty"`
}

// DeliveriesJSON summarizes delivery results.
type DeliveriesJSON struct {
	OK        int               `json:"ok"`
	Failed    int               `json:"failed"`
	ByOutcome map[string]int    `json:"by_outcome"`
	Last      *LastDeliveryJSON `json:"last,omitempty"`
}

// LastDeliveryJSON is the most recent delivery result.
type LastDeliveryJSON struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id"`
	Channel    *int   `json:"channel"`
	Name       string `json:"name,omitempty"`
	OK         bool   `json:"ok"`
	Outcome    string `json:"outcome"`
	StatusLine string `json:"status_line,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

// DNSJSON is one resolver cache entry.
type DNSJSON struct {
	Host  string `json:"host"`
	State string `json:"state"`
	Addr  string `json:"addr,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs       int64  `json:"tick_ms"`
	RefractoryMs int64  `json:"refractory_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker,omitempty"`
	HTTPAddr     string `json:"http_addr"`
	Host         string `json:"host"`
	DNSServer    string `json:"dns_server"`
}

// Level returns HIGH or LOW.
func Level(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready(),
		Ticks:         snap.Ticks,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Channels:      make([]ChannelJSON, 0, len(snap.Channels)),
		Deliveries: DeliveriesJSON{
			OK:        snap.Deliveries.OK,
			Failed:    snap.Deliveries.Failed,
			ByOutcome: snap.Deliveries.ByOutcome,
		},
		Config: ConfigJSON{
			TickMs:       snap.Config.TickMs,
			RefractoryMs: snap.Config.RefractoryMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			Host:         snap.Config.Host,
			DNSServer:    snap.Config.DNSServer,
		},
	}
	if inner.Deliveries.ByOutcome == nil {
		inner.Deliveries.ByOutcome = map[string]int{}
	}

	for _, ch := range snap.Channels {
		cj := ChannelJSON{
			ID:      ch.ID,
			Name:    ch.Name,
			Level:   Level(ch.LastLevel),
			Pressed: ch.Pressed,
			Presses: ch.Presses,
		}
		if !ch.LastAccept.IsZero() {
			cj.LastAccept = ch.LastAccept.UTC().Format(time.RFC3339)
		}
		inner.Channels = append(inner.Channels, cj)
	}

	if d := snap.LastDelivery; d != nil {
		inner.Deliveries.Last = &LastDeliveryJSON{
			Timestamp:  d.Timestamp.UTC().Format(time.RFC3339),
			RequestID:  d.Result.RequestID,
			Channel:    d.Channel,
			Name:       d.ChannelName,
			OK:         d.Result.OK,
			Outcome:    d.Result.Outcome(),
			StatusLine: d.Result.StatusLine,
			ElapsedMs:  d.Result.Elapsed.Milliseconds(),
		}
	}

	for _, e := range snap.DNS {
		inner.DNS = append(inner.DNS, DNSJSON{Host: e.Host, State: e.State, Addr: e.Addr})
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
