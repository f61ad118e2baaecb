// Package feedback fans delivery results out to the collaborators that
// render them (log, MQTT, status page).
package feedback

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/notify"
)

// Delivery is one terminal send result. Channel is nil for the startup
// announcement.
type Delivery struct {
	Channel     *int
	ChannelName string
	Timestamp   time.Time
	Result      notify.DeliveryResult
}

// IsAnnouncement reports whether the delivery was not triggered by a channel.
func (d Delivery) IsAnnouncement() bool {
	return d.Channel == nil
}

// Sink receives delivery results.
type Sink interface {
	OnDelivery(d Delivery)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(d Delivery)

// OnDelivery calls f(d).
func (f SinkFunc) OnDelivery(d Delivery) {
	f(d)
}

// Multi forwards every delivery to each sink in order.
type Multi []Sink

// OnDelivery implements Sink.
func (m Multi) OnDelivery(d Delivery) {
	for _, s := range m {
		if s != nil {
			s.OnDelivery(d)
		}
	}
}

// LogSink writes one log line per delivery.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

// OnDelivery implements Sink.
func (s *LogSink) OnDelivery(d Delivery) {
	r := d.Result
	fields := []zap.Field{
		zap.String("request_id", r.RequestID),
		zap.String("outcome", r.Outcome()),
		zap.Duration("elapsed", r.Elapsed),
	}
	if d.Channel != nil {
		fields = append(fields, zap.Int("channel", *d.Channel), zap.String("name", d.ChannelName))
	} else {
		fields = append(fields, zap.String("name", "announce"))
	}
	if r.StatusLine != "" {
		fields = append(fields, zap.String("status_line", r.StatusLine))
	}
	if r.OK {
		s.log.Info("alert delivered", fields...)
		return
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	s.log.Warn("alert not delivered", fields...)
}
