// Package events carries gateway callbacks to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeUSSDNotification  = "ussd.notification"
	TypeSMSDeliveryReport = "sms.delivery_report"
	TypeSMSIncoming       = "sms.incoming"
	TypeVoiceCallEnded    = "voice.call_ended"
)

// Source identifies this service in emitted events.
const Source = "africastalking-go"

// Event is the envelope written to every sink.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	Key        string          `json:"key,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// New wraps payload in an envelope. key groups related events, typically a
// session or message id.
func New(eventType, key string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     Source,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Sink accepts events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
