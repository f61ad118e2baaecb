// Package mqtt publishes delivery results and lifecycle events to MQTT.
package mqtt

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/feedback"
)

// TopicDeliveries receives one message per delivery result.
const TopicDeliveries = "alert/dispatch/deliveries"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "alert/dispatch/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishDelivery sends a delivery result to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishDelivery(d feedback.Delivery) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// DeliveryPayload is the MQTT message payload for a delivery result.
type DeliveryPayload struct {
	Delivery DeliveryInner `json:"delivery"`
}

// DeliveryInner contains the delivery details. Channel is null for the
// startup announcement.
type DeliveryInner struct {
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id"`
	Channel    *int   `json:"channel"`
	Name       string `json:"name,omitempty"`
	OK         bool   `json:"ok"`
	Outcome    string `json:"outcome"`
	State      string `json:"state"`
	StatusLine string `json:"status_line,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Error      string `json:"error,omitempty"`
}

// FormatDeliveryPayload creates the JSON payload for a delivery result.
func FormatDeliveryPayload(d feedback.Delivery) ([]byte, error) {
	r := d.Result
	inner := DeliveryInner{
		Timestamp:  d.Timestamp.UTC().Format(time.RFC3339),
		RequestID:  r.RequestID,
		Channel:    d.Channel,
		Name:       d.ChannelName,
		OK:         r.OK,
		Outcome:    r.Outcome(),
		State:      r.State.String(),
		StatusLine: r.StatusLine,
		ElapsedMs:  r.Elapsed.Milliseconds(),
	}
	if r.Err != nil {
		inner.Error = r.Err.Error()
	}
	return json.Marshal(DeliveryPayload{Delivery: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Sink publishes every delivery it receives. Publish errors are logged.
type Sink struct {
	pub Publisher
	log *zap.Logger
}

// NewSink wraps pub as a feedback.Sink.
func NewSink(pub Publisher, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{pub: pub, log: log}
}

// OnDelivery implements feedback.Sink.
func (s *Sink) OnDelivery(d feedback.Delivery) {
	if err := s.pub.PublishDelivery(d); err != nil {
		s.log.Warn("publish delivery failed", zap.String("request_id", d.Result.RequestID), zap.Error(err))
	}
}

// Discard is a Publisher used when MQTT is disabled.
type Discard struct{}

// PublishDelivery does nothing.
func (Discard) PublishDelivery(feedback.Delivery) error { return nil }

// PublishSystem does nothing.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }

// IsConnected always reports false.
func (Discard) IsConnected() bool { return false }
