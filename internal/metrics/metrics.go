// Package metrics exposes Prometheus collectors for presses, deliveries and
// DNS cache use. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alert_dispatch"

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	presses      *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	sendDuration prometheus.Histogram
	dnsLookups   *prometheus.CounterVec
	mqttDropped  *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		presses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presses_total",
			Help:      "Accepted button presses by channel.",
		}, []string{"channel"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound notifications by outcome.",
		}, []string{"outcome"}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time from send to terminal state.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}),
		dnsLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_lookups_total",
			Help:      "Hostname lookups by cache result.",
		}, []string{"cache"}),
		mqttDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_dropped_total",
			Help:      "Messages evicted from the offline MQTT buffer, by topic.",
		}, []string{"topic"}),
	}
	m.registry.MustRegister(
		m.presses,
		m.deliveries,
		m.sendDuration,
		m.dnsLookups,
		m.mqttDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Press counts an accepted press on channel.
func (m *Metrics) Press(channel string) {
	if m == nil {
		return
	}
	m.presses.WithLabelValues(channel).Inc()
}

// Delivery records the outcome and duration of one send.
func (m *Metrics) Delivery(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
	m.sendDuration.Observe(elapsed.Seconds())
}

// CacheHit counts a lookup answered from the cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.dnsLookups.WithLabelValues("hit").Inc()
}

// CacheMiss counts a lookup that needed the network.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.dnsLookups.WithLabelValues("miss").Inc()
}

// MQTTDropped counts a message on topic evicted before it could be published.
func (m *Metrics) MQTTDropped(topic string) {
	if m == nil {
		return
	}
	m.mqttDropped.WithLabelValues(topic).Inc()
}

// PressCounter returns the press counter for channel.
func (m *Metrics) PressCounter(channel string) prometheus.Counter {
	return m.presses.WithLabelValues(channel)
}

// DeliveryCounter returns the delivery counter for outcome.
func (m *Metrics) DeliveryCounter(outcome string) prometheus.Counter {
	return m.deliveries.WithLabelValues(outcome)
}

// MQTTDroppedCounter returns the eviction counter for topic.
func (m *Metrics) MQTTDroppedCounter(topic string) prometheus.Counter {
	return m.mqttDropped.WithLabelValues(topic)
}
