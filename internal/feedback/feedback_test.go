package feedback

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/alert-dispatch/internal/notify"
)

func TestMultiForwardsInOrder(t *testing.T) {
	var order []string
	m := Multi{
		SinkFunc(func(Delivery) { order = append(order, "first") }),
		nil,
		SinkFunc(func(Delivery) { order = append(order, "second") }),
	}

	m.OnDelivery(Delivery{})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestIsAnnouncement(t *testing.T) {
	ch := 2
	if !(Delivery{}).IsAnnouncement() {
		t.Error("nil channel should be an announcement")
	}
	if (Delivery{Channel: &ch}).IsAnnouncement() {
		t.Error("channel delivery should not be an announcement")
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSink(zap.New(core))
	ch := 2

	s.OnDelivery(Delivery{
		Channel:     &ch,
		ChannelName: "BUTTON_C",
		Result:      notify.DeliveryResult{RequestID: "abc", OK: true, StatusLine: "HTTP/1.1 200 OK"},
	})
	s.OnDelivery(Delivery{
		Result: notify.DeliveryResult{
			RequestID: "def",
			Failure:   notify.FailureResponseTimedOut,
			Err:       errors.New("no response"),
		},
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != "alert delivered" {
		t.Errorf("unexpected first entry %v %q", entries[0].Level, entries[0].Message)
	}
	if entries[0].ContextMap()["name"] != "BUTTON_C" {
		t.Errorf("expected channel name in log, got %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("expected warn for failed delivery, got %v", entries[1].Level)
	}
	if entries[1].ContextMap()["outcome"] != "response_timed_out" {
		t.Errorf("unexpected outcome %v", entries[1].ContextMap()["outcome"])
	}
}

func TestNewLogSinkNil(t *testing.T) {
	NewLogSink(nil).OnDelivery(Delivery{})
}
