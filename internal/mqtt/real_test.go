package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/alert-dispatch/internal/metrics"
)

// stubToken is an already-completed (or never-completing) paho.Token.
type stubToken struct {
	err  error
	hang bool
}

func (t *stubToken) Wait() bool                     { return !t.hang }
func (t *stubToken) WaitTimeout(time.Duration) bool { return !t.hang }
func (t *stubToken) Error() error                   { return t.err }
func (t *stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.hang {
		close(ch)
	}
	return ch
}

// stubClient implements the parts of paho.Client the publisher uses.
type stubClient struct {
	paho.Client

	mu          sync.Mutex
	open        bool
	publishErr  error
	hang        bool
	published   []bufferedMsg
	disconnects int
}

func (c *stubClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, bufferedMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &stubToken{err: c.publishErr, hang: c.hang}
}

func (c *stubClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
}

func (c *stubClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.published))
	for i, m := range c.published {
		out[i] = m.topic
	}
	return out
}

func newTestPublisher(open bool) (*RealPublisher, *stubClient) {
	client := &stubClient{open: open}
	cfg := NewConfig()
	cfg.BufferSize = 3
	p := newPublisher(cfg, nil, nil)
	p.client = client
	p.now = func() time.Time { return ts }
	return p, client
}

func TestPublishWhenConnected(t *testing.T) {
	p, client := newTestPublisher(true)

	if err := p.PublishDelivery(channelDelivery()); err != nil {
		t.Fatalf("PublishDelivery: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	if len(client.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(client.published))
	}
	if client.published[0].topic != TopicDeliveries || client.published[0].qos != 1 {
		t.Errorf("unexpected delivery publish %+v", client.published[0])
	}
	if client.published[1].topic != TopicSystem || !client.published[1].retained {
		t.Errorf("unexpected system publish %+v", client.published[1])
	}
	if p.Buffered() != 0 {
		t.Errorf("expected nothing buffered, got %d", p.Buffered())
	}
}

func TestPublishErrors(t *testing.T) {
	p, client := newTestPublisher(true)
	client.publishErr = errors.New("not authorized")
	if err := p.PublishDelivery(channelDelivery()); err == nil {
		t.Error("expected publish error")
	}

	client.publishErr = nil
	client.hang = true
	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected timeout error")
	}
}

func TestBufferedWhileDisconnected(t *testing.T) {
	p, client := newTestPublisher(false)

	for i := 0; i < 4; i++ {
		if err := p.PublishDelivery(channelDelivery()); err != nil {
			t.Fatalf("publish while disconnected should not fail: %v", err)
		}
	}
	if len(client.published) != 0 {
		t.Errorf("expected no direct publishes, got %d", len(client.published))
	}
	if p.Buffered() != 3 {
		t.Errorf("expected buffer capped at 3, got %d", p.Buffered())
	}
	if p.IsConnected() {
		t.Error("expected disconnected")
	}
}

func TestOnConnectReplaysBuffer(t *testing.T) {
	p, client := newTestPublisher(false)
	p.PublishDelivery(channelDelivery())
	p.PublishSystem(SystemEvent{Timestamp: ts, Event: "HEARTBEAT"})

	// First connect: replay only.
	client.open = true
	p.onConnect(client)

	got := client.topics()
	if len(got) != 2 || got[0] != TopicDeliveries || got[1] != TopicSystem {
		t.Errorf("unexpected replay %v", got)
	}
	if p.Buffered() != 0 {
		t.Errorf("expected buffer drained, got %d", p.Buffered())
	}
}

func TestOnReconnectAnnounces(t *testing.T) {
	p, client := newTestPublisher(true)
	p.onConnect(client)

	client.open = false
	p.PublishDelivery(channelDelivery())
	client.open = true
	p.onConnect(client)

	if len(client.published) != 2 {
		t.Fatalf("expected RECONNECTED plus replay, got %d publishes", len(client.published))
	}
	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`
	if string(client.published[0].payload) != want {
		t.Errorf("unexpected reconnect payload %s", client.published[0].payload)
	}
	if client.published[1].topic != TopicDeliveries {
		t.Errorf("expected buffered delivery replayed, got %s", client.published[1].topic)
	}
}

func TestOnConnectReportsLostDeliveries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	client := &stubClient{}
	cfg := NewConfig()
	cfg.BufferSize = 2
	p := newPublisher(cfg, zap.New(core), m)
	p.client = client
	p.now = func() time.Time { return ts }

	for i := 0; i < 5; i++ {
		p.PublishDelivery(channelDelivery())
	}
	if got := testutil.ToFloat64(m.MQTTDroppedCounter(TopicDeliveries)); got != 3 {
		t.Errorf("delivery evictions metric = %v, want 3", got)
	}

	client.open = true
	p.onConnect(client)

	if len(client.published) != 2 {
		t.Fatalf("expected 2 replayed deliveries, got %d", len(client.published))
	}
	lost := logs.FilterMessage("messages lost while disconnected").All()
	if len(lost) != 1 {
		t.Fatalf("expected one loss report, got %d", len(lost))
	}
	if n := lost[0].ContextMap()["deliveries"]; n != int64(3) {
		t.Errorf("expected 3 lost deliveries reported, got %v", n)
	}
}

func TestClose(t *testing.T) {
	p, client := newTestPublisher(true)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if client.disconnects != 1 {
		t.Errorf("expected 1 disconnect, got %d", client.disconnects)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	if c.Enabled {
		t.Error("MQTT should be disabled by default")
	}
	if c.ClientID != "alert-dispatch" || c.BufferSize != 100 {
		t.Errorf("unexpected defaults %+v", c)
	}
}
