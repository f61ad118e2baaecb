package dispatch

import (
	"context"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/alert-dispatch/internal/debounce"
	"github.com/sweeney/alert-dispatch/internal/feedback"
	"github.com/sweeney/alert-dispatch/internal/notify"
	"github.com/sweeney/alert-dispatch/internal/resolver"
)

type fakeSender struct {
	result notify.DeliveryResult
	sent   []notify.AlertPayload
}

func (s *fakeSender) Send(_ context.Context, p notify.AlertPayload) notify.DeliveryResult {
	s.sent = append(s.sent, p)
	return s.result
}

type collector struct {
	deliveries []feedback.Delivery
}

func (c *collector) OnDelivery(d feedback.Delivery) {
	c.deliveries = append(c.deliveries, d)
}

func TestOnAlertForwardsChannel(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	sender := &fakeSender{result: notify.DeliveryResult{OK: true, RequestID: "r1"}}
	sink := &collector{}
	c := New(sender, sink, WithClock(mock))

	ch := debounce.Channel{ID: 2, Name: "BUTTON_C", Payload: notify.AlertPayload{Message: "help"}}
	res := c.OnAlert(context.Background(), ch)

	if !res.OK {
		t.Error("expected OK result returned")
	}
	if len(sender.sent) != 1 || sender.sent[0].Message != "help" {
		t.Fatalf("unexpected payloads sent: %v", sender.sent)
	}
	if len(sink.deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sink.deliveries))
	}
	d := sink.deliveries[0]
	if d.Channel == nil || *d.Channel != 2 {
		t.Errorf("expected channel 2, got %v", d.Channel)
	}
	if d.ChannelName != "BUTTON_C" {
		t.Errorf("expected BUTTON_C, got %s", d.ChannelName)
	}
	if d.Result.RequestID != "r1" {
		t.Errorf("expected result forwarded, got %+v", d.Result)
	}
	if !d.Timestamp.Equal(mock.Now()) {
		t.Errorf("expected timestamp %v, got %v", mock.Now(), d.Timestamp)
	}
}

func TestAnnounceReadyHasNoChannel(t *testing.T) {
	sender := &fakeSender{result: notify.DeliveryResult{Failure: notify.FailureConnect}}
	sink := &collector{}
	c := New(sender, sink)

	res := c.AnnounceReady(context.Background(), notify.AlertPayload{Message: DefaultAnnounceMessage})

	if res.OK {
		t.Error("expected failed result returned")
	}
	if len(sink.deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sink.deliveries))
	}
	if !sink.deliveries[0].IsAnnouncement() {
		t.Error("expected announcement delivery")
	}
	if sink.deliveries[0].Result.Failure != notify.FailureConnect {
		t.Errorf("unexpected failure %v", sink.deliveries[0].Result.Failure)
	}
}

func TestNilSink(t *testing.T) {
	c := New(&fakeSender{}, nil)
	c.AnnounceReady(context.Background(), notify.AlertPayload{})
}

func TestAlertFuncFromScheduler(t *testing.T) {
	sender := &fakeSender{result: notify.DeliveryResult{OK: true}}
	sink := &collector{}
	c := New(sender, sink)

	c.AlertFunc(context.Background())(debounce.Channel{ID: 0, Name: "BUTTON_A"})

	if len(sink.deliveries) != 1 || *sink.deliveries[0].Channel != 0 {
		t.Fatalf("expected one delivery for channel 0, got %v", sink.deliveries)
	}
}

func TestWithNotifier(t *testing.T) {
	mech := resolver.NewFakeMechanism(resolver.FakeResponse{Addr: netip.MustParseAddr("203.0.113.7")})
	res := resolver.New(mech, resolver.NewConfig())
	tr := notify.NewFakeTransport([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	n := notify.New(notify.NewConfig(), res, tr)
	sink := &collector{}
	c := New(n, sink)

	c.AnnounceReady(context.Background(), notify.AlertPayload{
		Message: DefaultAnnounceMessage,
		Phone:   "+5511999990000",
		APIKey:  "123456",
	})

	if len(sink.deliveries) != 1 || !sink.deliveries[0].Result.OK {
		t.Fatalf("expected successful delivery, got %+v", sink.deliveries)
	}
	req := tr.LastConn().Request()
	if !strings.Contains(req, "text=Dispositivo+pronto+para+uso%21") {
		t.Errorf("unexpected request %q", req)
	}
}
