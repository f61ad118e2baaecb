// Package dispatch connects accepted presses to the notifier and reports
// every result to the feedback sink.
package dispatch

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/debounce"
	"github.com/sweeney/alert-dispatch/internal/feedback"
	"github.com/sweeney/alert-dispatch/internal/notify"
)

// DefaultAnnounceMessage is sent once at startup.
const DefaultAnnounceMessage = "Dispositivo pronto para uso!"

// Sender delivers one payload and blocks until a terminal result.
type Sender interface {
	Send(ctx context.Context, p notify.AlertPayload) notify.DeliveryResult
}

// Controller holds no state beyond its collaborators.
type Controller struct {
	sender Sender
	sink   feedback.Sink
	clock  clock.Clock
	log    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used to timestamp deliveries.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// New creates a Controller. A nil sink discards results.
func New(sender Sender, sink feedback.Sink, opts ...Option) *Controller {
	if sink == nil {
		sink = feedback.Multi(nil)
	}
	c := &Controller{
		sender: sender,
		sink:   sink,
		clock:  clock.New(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnAlert sends the channel's payload and forwards the result.
func (c *Controller) OnAlert(ctx context.Context, ch debounce.Channel) notify.DeliveryResult {
	c.log.Debug("dispatching alert", zap.Int("channel", ch.ID), zap.String("name", ch.Name))
	id := ch.ID
	return c.deliver(ctx, &id, ch.Name, ch.Payload)
}

// AnnounceReady sends the startup payload and forwards the result with no
// channel.
func (c *Controller) AnnounceReady(ctx context.Context, p notify.AlertPayload) notify.DeliveryResult {
	c.log.Debug("announcing ready")
	return c.deliver(ctx, nil, "", p)
}

// AlertFunc returns a debounce.AlertFunc bound to ctx.
func (c *Controller) AlertFunc(ctx context.Context) debounce.AlertFunc {
	return func(ch debounce.Channel) {
		c.OnAlert(ctx, ch)
	}
}

func (c *Controller) deliver(ctx context.Context, channel *int, name string, p notify.AlertPayload) notify.DeliveryResult {
	result := c.sender.Send(ctx, p)
	c.sink.OnDelivery(feedback.Delivery{
		Channel:     channel,
		ChannelName: name,
		Timestamp:   c.clock.Now(),
		Result:      result,
	})
	return result
}
