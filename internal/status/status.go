// Package status provides a thread-safe status tracker for the alert-dispatch daemon.
// It is read by HTTP handlers and by the heartbeat/lifecycle publisher.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/sweeney/alert-dispatch/internal/debounce"
	"github.com/sweeney/alert-dispatch/internal/feedback"
	"github.com/sweeney/alert-dispatch/internal/network"
	"github.com/sweeney/alert-dispatch/internal/resolver"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs       int64
	RefractoryMs int64
	HeartbeatMs  int64
	Broker       string // empty when MQTT is disabled
	HTTPAddr     string
	Host         string // notification server
	DNSServer    string
}

// DeliveryCounts tallies terminal results by outcome.
type DeliveryCounts struct {
	OK        int
	Failed    int
	ByOutcome map[string]int
}

// DNSEntry is one resolver cache entry.
type DNSEntry struct {
	Host  string
	State string
	Addr  string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Channels      []debounce.Channel
	Ticks         int
	Deliveries    DeliveryCounts
	LastDelivery  *feedback.Delivery
	DNS           []DNSEntry
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *network.Info
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one tick has been processed.
func (s Snapshot) Ready() bool {
	return s.Ticks > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime:  startTime,
			Config:     cfg,
			Deliveries: DeliveryCounts{ByOutcome: map[string]int{}},
		},
	}
}

// Update sets channel states and the tick count.
// Called from runLoop on every tick.
func (t *Tracker) Update(channels []debounce.Channel, ticks int) {
	t.mu.Lock()
	t.snap.Channels = channels
	t.snap.Ticks = ticks
	t.mu.Unlock()
}

// OnDelivery records a terminal send result. It implements feedback.Sink.
func (t *Tracker) OnDelivery(d feedback.Delivery) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d.Result.OK {
		t.snap.Deliveries.OK++
	} else {
		t.snap.Deliveries.Failed++
	}
	t.snap.Deliveries.ByOutcome[d.Result.Outcome()]++
	t.snap.LastDelivery = &d
}

// SetDNS replaces the resolver cache view.
func (t *Tracker) SetDNS(entries map[string]resolver.Entry) {
	out := make([]DNSEntry, 0, len(entries))
	for host, e := range entries {
		entry := DNSEntry{Host: host, State: e.State.String()}
		if e.Addr.IsValid() {
			entry.Addr = e.Addr.String()
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })

	t.mu.Lock()
	t.snap.DNS = out
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *network.Info) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = append([]debounce.Channel(nil), t.snap.Channels...)
	s.DNS = append([]DNSEntry(nil), t.snap.DNS...)
	s.Deliveries.ByOutcome = make(map[string]int, len(t.snap.Deliveries.ByOutcome))
	for k, v := range t.snap.Deliveries.ByOutcome {
		s.Deliveries.ByOutcome[k] = v
	}
	if t.snap.LastDelivery != nil {
		last := *t.snap.LastDelivery
		s.LastDelivery = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
