package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/alert-dispatch/internal/feedback"
	"github.com/sweeney/alert-dispatch/internal/notify"
)

var ts = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func channelDelivery() feedback.Delivery {
	ch := 2
	return feedback.Delivery{
		Channel:     &ch,
		ChannelName: "BUTTON_C",
		Timestamp:   ts,
		Result: notify.DeliveryResult{
			RequestID:  "5f1c",
			OK:         true,
			StatusLine: "HTTP/1.1 200 OK",
			State:      notify.Complete,
			Elapsed:    1500 * time.Millisecond,
		},
	}
}

func TestTopics(t *testing.T) {
	if TopicDeliveries != "alert/dispatch/deliveries" {
		t.Errorf("unexpected deliveries topic %s", TopicDeliveries)
	}
	if TopicSystem != "alert/dispatch/system" {
		t.Errorf("unexpected system topic %s", TopicSystem)
	}
}

func TestFormatDeliveryPayloadExactJSON(t *testing.T) {
	payload, err := FormatDeliveryPayload(channelDelivery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"delivery":{"timestamp":"2026-02-02T22:18:12Z","request_id":"5f1c","channel":2,"name":"BUTTON_C","ok":true,"outcome":"ok","state":"COMPLETE","status_line":"HTTP/1.1 200 OK","elapsed_ms":1500}}`
	if string(payload) != want {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatDeliveryPayloadAnnouncementFailure(t *testing.T) {
	d := feedback.Delivery{
		Timestamp: ts,
		Result: notify.DeliveryResult{
			RequestID: "9a0b",
			Failure:   notify.FailureResolution,
			State:     notify.Failed,
			Err:       errors.New("resolve api.callmebot.com: resolution failed"),
		},
	}

	payload, err := FormatDeliveryPayload(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed DeliveryPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	got := parsed.Delivery
	if got.Channel != nil {
		t.Errorf("expected null channel, got %d", *got.Channel)
	}
	if got.OK || got.Outcome != "resolution_failed" || got.State != "FAILED" {
		t.Errorf("unexpected delivery %+v", got)
	}
	if got.Error == "" {
		t.Error("expected error text")
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatal(err)
	}
	if v, ok := raw["delivery"]["channel"]; !ok || v != nil {
		t.Errorf("expected explicit null channel, got %v (present=%v)", v, ok)
	}
	if _, ok := raw["delivery"]["name"]; ok {
		t.Error("name should be omitted for announcements")
	}
}

func TestFormatDeliveryPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	d := channelDelivery()
	d.Timestamp = time.Date(2026, 2, 2, 19, 18, 12, 0, loc)

	payload, _ := FormatDeliveryPayload(d)
	var parsed DeliveryPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Delivery.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Delivery.Timestamp)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGTERM"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "RECONNECTED"})
	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`
	if string(payload) != want {
		t.Errorf("got %s, want %s", payload, want)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload returned, got %s", payload)
	}
}

func TestSinkPublishes(t *testing.T) {
	fake := NewFakePublisher()
	NewSink(fake, nil).OnDelivery(channelDelivery())

	if len(fake.Deliveries) != 1 || len(fake.Payloads) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(fake.Deliveries))
	}
	if fake.Deliveries[0].Result.RequestID != "5f1c" {
		t.Errorf("unexpected delivery %+v", fake.Deliveries[0])
	}
}

func TestSinkLogsPublishError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	fake := NewFakePublisher()
	fake.PublishError = errors.New("broker gone")

	NewSink(fake, zap.New(core)).OnDelivery(channelDelivery())

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if len(fake.Deliveries) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	if err := p.PublishDelivery(channelDelivery()); err != nil {
		t.Error(err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Error(err)
	}
	if (Discard{}).IsConnected() {
		t.Error("Discard should never report connected")
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}

func TestFakePublisherRecordsInOrder(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true})
	fake.PublishDelivery(channelDelivery())
	fake.PublishSystem(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGINT"})

	names := fake.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "SHUTDOWN" {
		t.Errorf("unexpected system events %v", names)
	}
	if !fake.SystemEvents[0].Retained {
		t.Error("retained flag should be recorded")
	}
	if len(fake.Deliveries) != 1 {
		t.Errorf("expected 1 delivery, got %d", len(fake.Deliveries))
	}
}

func TestFakePublisherSystemError(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishSystemError = errors.New("fail")
	if err := fake.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected error")
	}
	if len(fake.SystemEvents) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishDelivery(channelDelivery())
	fake.PublishSystem(SystemEvent{Event: "STARTUP"})
	fake.Close()
	fake.Connected = true

	fake.Reset()

	if len(fake.Deliveries) != 0 || len(fake.SystemEvents) != 0 || len(fake.Payloads) != 0 || len(fake.SystemPayloads) != 0 {
		t.Error("expected recorded events cleared")
	}
	if fake.Closed || fake.Connected {
		t.Error("expected flags cleared")
	}
}
