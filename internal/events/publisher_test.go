package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/events"
)

type fakeSyncProducer struct {
	err     error
	topic   string
	key     []byte
	headers map[string][]byte
	payload []byte
}

func (f *fakeSyncProducer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	f.topic = topic
	f.key = append([]byte(nil), key...)
	f.headers = headers
	f.payload = append([]byte(nil), payload...)
	return f.err
}

type report struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestPublisherPublishesEvent(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := events.NewPublisher(prod, "at-events", zerolog.Nop())
	if pub == nil {
		t.Fatalf("expected publisher instance")
	}

	event, err := events.New(events.TypeSMSDeliveryReport, "ATXid_1", report{ID: "ATXid_1", Status: "Success"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if prod.topic != "at-events" {
		t.Fatalf("expected topic at-events, got %s", prod.topic)
	}
	if string(prod.key) != "ATXid_1" {
		t.Fatalf("expected key ATXid_1, got %s", string(prod.key))
	}
	if ct := prod.headers["content-type"]; string(ct) != "application/json" {
		t.Fatalf("expected content-type header, got %s", string(ct))
	}
	if et := prod.headers["event-type"]; string(et) != events.TypeSMSDeliveryReport {
		t.Fatalf("expected event-type header, got %s", string(et))
	}

	var decoded events.Event
	if err := json.Unmarshal(prod.payload, &decoded); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if decoded.ID != event.ID || decoded.Source != events.Source {
		t.Fatalf("unexpected envelope %+v", decoded)
	}
	var body report
	if err := json.Unmarshal(decoded.Payload, &body); err != nil || body.Status != "Success" {
		t.Fatalf("unexpected payload %s (%v)", decoded.Payload, err)
	}
}

func TestPublisherKeysByIDWhenKeyMissing(t *testing.T) {
	prod := &fakeSyncProducer{}
	pub := events.NewPublisher(prod, "at-events", zerolog.Nop())

	event, err := events.New(events.TypeSMSIncoming, "", map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(prod.key) != event.ID {
		t.Fatalf("expected key %s, got %s", event.ID, prod.key)
	}
}

func TestPublisherPropagatesProducerError(t *testing.T) {
	expectedErr := errors.New("broker down")
	pub := events.NewPublisher(&fakeSyncProducer{err: expectedErr}, "at-events", zerolog.Nop())

	err := pub.Publish(context.Background(), events.Event{ID: "id", Type: events.TypeVoiceCallEnded})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected producer error, got %v", err)
	}
}

func TestPublisherHandlesNilInstance(t *testing.T) {
	var pub *events.Publisher
	if err := pub.Publish(context.Background(), events.Event{}); !errors.Is(err, events.ErrProducerNotInitialised()) {
		t.Fatalf("expected not initialised error, got %v", err)
	}
	if events.NewPublisher(nil, "t", zerolog.Nop()) != nil {
		t.Fatalf("expected nil publisher without producer")
	}
}

func TestNewRejectsUnmarshalablePayload(t *testing.T) {
	if _, err := events.New(events.TypeSMSIncoming, "", make(chan int)); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestLogSinkWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := events.NewLogSink(zerolog.New(&buf))

	event, err := events.New(events.TypeUSSDNotification, "ATUid_1", map[string]string{"status": "Success"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"event_type":"ussd.notification"`) || !strings.Contains(out, `"status":"Success"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}
