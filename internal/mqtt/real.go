package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/feedback"
	"github.com/sweeney/alert-dispatch/internal/metrics"
)

// Config is the [mqtt] section of the configuration file.
type Config struct {
	Enabled        bool          `toml:"enabled"`
	Broker         string        `toml:"broker"`
	ClientID       string        `toml:"client-id"`
	BufferSize     int           `toml:"buffer-size"`
	ConnectTimeout time.Duration `toml:"connect-timeout"`
	PublishTimeout time.Duration `toml:"publish-timeout"`
}

// NewConfig returns the MQTT defaults. Publishing is off until enabled.
func NewConfig() Config {
	return Config{
		Broker:         "tcp://192.168.1.200:1883",
		ClientID:       "alert-dispatch",
		BufferSize:     100,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed on the next connect.
type RealPublisher struct {
	client paho.Client
	cfg    Config
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	buffer    *ringBuffer
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher for the configured broker. An
// unreachable broker is not an error: the client keeps retrying in the
// background and messages are buffered meanwhile. Buffer evictions are
// counted in m, which may be nil.
func NewRealPublisher(cfg Config, log *zap.Logger, m *metrics.Metrics) (*RealPublisher, error) {
	p := newPublisher(cfg, log, m)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "OFFLINE",
		Reason:    "connection lost",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(cfg.ConnectTimeout) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		p.log.Warn("broker not reachable yet, buffering", zap.String("broker", cfg.Broker))
	}
	return p, nil
}

func newPublisher(cfg Config, log *zap.Logger, m *metrics.Metrics) *RealPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RealPublisher{
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		buffer: newRingBuffer(cfg.BufferSize, log, m),
	}
}

// PublishDelivery sends a delivery result to the MQTT broker.
func (p *RealPublisher) PublishDelivery(d feedback.Delivery) error {
	payload, err := FormatDeliveryPayload(d)
	if err != nil {
		return fmt.Errorf("format delivery payload: %w", err)
	}
	// QoS 1: a delivery report should not be lost on a flaky link.
	return p.publish(TopicDeliveries, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		p.log.Debug("buffered while disconnected", zap.String("topic", topic))
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// onConnect announces a reconnection and replays buffered messages. paho
// runs it on its own goroutine.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	msgs, dropped := p.buffer.drainAll()
	p.mu.Unlock()

	p.log.Info("connected to broker", zap.Bool("reconnect", reconnect), zap.Int("buffered", len(msgs)))
	if len(dropped) > 0 {
		p.log.Warn("messages lost while disconnected",
			zap.Int("deliveries", dropped[TopicDeliveries]),
			zap.Int("system", dropped[TopicSystem]))
	}

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err == nil {
			c.Publish(TopicSystem, 1, false, payload)
		}
	}
	for _, m := range msgs {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn("connection to broker lost", zap.Error(err))
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
