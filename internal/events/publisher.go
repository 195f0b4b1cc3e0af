package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

var errProducerNotInitialised = errors.New("events: producer not initialised")

// ErrProducerNotInitialised is returned by a nil Publisher.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// SyncProducer captures the subset of producer behaviour the publisher needs.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// Publisher writes events to a Kafka topic.
type Publisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewPublisher returns nil when prod is nil.
func NewPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *Publisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Publisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}
}

// Publish writes the event synchronously, keyed by event.Key when set and
// by event.ID otherwise.
func (p *Publisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Type, err)
	}

	key := event.Key
	if key == "" {
		key = event.ID
	}
	headers := map[string][]byte{
		"content-type": []byte("application/json"),
		"event-type":   []byte(event.Type),
	}

	if err := p.producer.PublishSync(p.topic, []byte(key), headers, payload); err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	p.logger.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("event published")
	return nil
}

// LogSink logs events instead of forwarding them.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink builds a LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &LogSink{logger: logger}
}

// Publish never fails.
func (s *LogSink) Publish(_ context.Context, event Event) error {
	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("key", event.Key).
		RawJSON("payload", event.Payload).
		Msg("event received")
	return nil
}
