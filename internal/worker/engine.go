// Package worker dispatches queued SMS requests read from Kafka.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/events"
)

// Event types emitted by the engine.
const (
	EventDispatched     = "sms.dispatched"
	EventDispatchFailed = "sms.dispatch_failed"
)

// MessageIDHeader names the Kafka header that carries the caller's id.
const MessageIDHeader = "message-id"

// Config controls retries and concurrency.
type Config struct {
	MaxPayloadBytes int
	MaxAttempts     int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	Concurrency     int
}

// Record is a queued request. Commit acknowledges it to the source.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commitFn func(context.Context) error
}

// Commit runs the bound commit function, if any.
func (r *Record) Commit(ctx context.Context) error {
	if r == nil || r.commitFn == nil {
		return nil
	}
	return r.commitFn(ctx)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Key = cloneBytes(r.Key)
	clone.Value = cloneBytes(r.Value)
	clone.Headers = cloneHeaders(r.Headers)
	return &clone
}

// FailureType classifies a request that will not be retried.
type FailureType string

const (
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeTransient  FailureType = "transient"
	FailureTypeValidation FailureType = "validation"
	FailureTypeUnknown    FailureType = "unknown"
)

// Dispatched is the payload of an EventDispatched event.
type Dispatched struct {
	MessageID  string                `json:"message_id"`
	Attempts   int                   `json:"attempts"`
	Summary    string                `json:"summary,omitempty"`
	Recipients []client.SMSRecipient `json:"recipients"`
}

// DispatchFailed is the payload of an EventDispatchFailed event. It doubles
// as the dead letter: Request holds the original body.
type DispatchFailed struct {
	MessageID     string          `json:"message_id"`
	FailureType   FailureType     `json:"failure_type"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error"`
	FirstFailedAt time.Time       `json:"first_failed_at"`
	LastAttemptAt time.Time       `json:"last_attempt_at"`
	Request       json.RawMessage `json:"request,omitempty"`
}

// SMSSender sends one request.
type SMSSender interface {
	Send(ctx context.Context, req client.SendSMSRequest) (*client.SendSMSResponse, error)
}

// Committer acknowledges processed records.
type Committer interface {
	Commit(ctx context.Context, record *Record) error
}

// CommitFunc adapts a function to Committer.
type CommitFunc func(ctx context.Context, record *Record) error

// Commit calls f.
func (f CommitFunc) Commit(ctx context.Context, record *Record) error {
	return f(ctx, record)
}

// Dependencies collects the engine's collaborators.
type Dependencies struct {
	Sender    SMSSender
	Events    events.Sink
	Committer Committer
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Engine sends queued requests with bounded concurrency and retries.
type Engine struct {
	cfg       Config
	sender    SMSSender
	events    events.Sink
	committer Committer
	logger    zerolog.Logger

	semaphore *semaphore.Weighted
	wg        sync.WaitGroup

	now func() time.Time

	randMu sync.Mutex
	rnd    *rand.Rand
}

// NewEngine validates cfg and deps.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.MaxAttempts < 1 {
		return nil, errors.New("worker: max attempts must be >= 1")
	}
	if cfg.Concurrency < 1 {
		return nil, errors.New("worker: concurrency must be >= 1")
	}
	if cfg.MaxPayloadBytes < 0 {
		return nil, errors.New("worker: max payload bytes cannot be negative")
	}
	if deps.Sender == nil {
		return nil, errors.New("worker: sender dependency is required")
	}
	if deps.Events == nil {
		return nil, errors.New("worker: events dependency is required")
	}
	if deps.Committer == nil {
		return nil, errors.New("worker: committer dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Engine{
		cfg:       cfg,
		sender:    deps.Sender,
		events:    deps.Events,
		committer: deps.Committer,
		logger:    logger.With().Str("component", "sms_dispatcher").Logger(),
		semaphore: semaphore.NewWeighted(int64(cfg.Concurrency)),
		now:       nowFunc,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// HandleRecord validates the record and starts sending it in the
// background. It blocks while all concurrency slots are busy.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}
	id := messageID(record)

	if e.cfg.MaxPayloadBytes > 0 && len(record.Value) > e.cfg.MaxPayloadBytes {
		err := fmt.Errorf("payload exceeds maximum size: got %d bytes, limit %d bytes", len(record.Value), e.cfg.MaxPayloadBytes)
		e.reject(ctx, record, id, err)
		return
	}

	var req client.SendSMSRequest
	if err := json.Unmarshal(record.Value, &req); err != nil {
		e.reject(ctx, record, id, fmt.Errorf("decode sms request: %w", err))
		return
	}

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		e.logger.Error().Str("message_id", id).Err(err).Msg("worker: failed to acquire concurrency slot")
		return
	}

	e.wg.Add(1)
	go e.process(ctx, record.Clone(), id, req)
}

// Wait blocks until in-flight records finish.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) reject(ctx context.Context, record *Record, id string, err error) {
	e.logger.Warn().Str("message_id", id).Err(err).Msg("worker: record rejected")
	now := e.now()
	e.publish(ctx, EventDispatchFailed, id, DispatchFailed{
		MessageID:     id,
		FailureType:   FailureTypeValidation,
		LastError:     err.Error(),
		FirstFailedAt: now,
		LastAttemptAt: now,
		Request:       rawRequest(record.Value),
	})
	e.commit(ctx, record)
}

func (e *Engine) process(ctx context.Context, record *Record, id string, req client.SendSMSRequest) {
	defer e.wg.Done()
	defer e.semaphore.Release(1)

	var firstFailedAt time.Time
	for attempt := 1; ; attempt++ {
		start := e.now()
		resp, err := e.sender.Send(ctx, req)
		elapsed := e.now().Sub(start)

		log := e.logger.With().
			Str("message_id", id).
			Int("attempt", attempt).
			Dur("duration", elapsed).
			Logger()

		if err == nil {
			log.Info().Msg("worker: sms dispatched")
			out := Dispatched{MessageID: id, Attempts: attempt}
			if resp != nil {
				out.Summary = resp.SMSMessageData.Message
				out.Recipients = resp.SMSMessageData.Recipients
			}
			e.publish(ctx, EventDispatched, id, out)
			e.commit(ctx, record)
			return
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("worker: cancelled during send; leaving record uncommitted")
			return
		}

		log.Warn().Err(err).Msg("worker: send failed")

		now := e.now()
		if firstFailedAt.IsZero() {
			firstFailedAt = now
		}

		var failure FailureType
		switch {
		case errors.Is(err, client.ErrInvalidRequest):
			failure = FailureTypeValidation
		case errors.Is(err, client.ErrPermanent):
			failure = FailureTypePermanent
		case attempt >= e.cfg.MaxAttempts && errors.Is(err, client.ErrTransient):
			failure = FailureTypeTransient
		case attempt >= e.cfg.MaxAttempts:
			failure = FailureTypeUnknown
		}
		if failure != "" {
			e.publish(ctx, EventDispatchFailed, id, DispatchFailed{
				MessageID:     id,
				FailureType:   failure,
				Attempts:      attempt,
				LastError:     err.Error(),
				FirstFailedAt: firstFailedAt,
				LastAttemptAt: now,
				Request:       rawRequest(record.Value),
			})
			e.commit(ctx, record)
			return
		}

		backoff := e.computeBackoff(attempt)
		log.Info().Dur("backoff", backoff).Msg("worker: scheduling retry")
		if !e.wait(ctx, backoff) {
			e.logger.Warn().Str("message_id", id).Int("attempt", attempt).Msg("worker: cancelled while waiting for retry")
			return
		}
	}
}

func (e *Engine) computeBackoff(attempt int) time.Duration {
	if e.cfg.BaseBackoff <= 0 {
		return 0
	}

	multiplier := math.Pow(2, float64(attempt-1))
	raw := time.Duration(float64(e.cfg.BaseBackoff) * multiplier)
	if e.cfg.MaxBackoff > 0 && raw > e.cfg.MaxBackoff {
		raw = e.cfg.MaxBackoff
	}

	return e.fullJitter(raw)
}

func (e *Engine) fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	e.randMu.Lock()
	defer e.randMu.Unlock()

	return time.Duration(e.rnd.Int63n(int64(max) + 1))
}

func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) publish(ctx context.Context, eventType, id string, payload any) {
	event, err := events.New(eventType, id, payload)
	if err == nil {
		err = e.events.Publish(ctx, event)
	}
	if err != nil {
		e.logger.Error().Str("message_id", id).Str("event_type", eventType).Err(err).Msg("worker: failed to publish event")
	}
}

func (e *Engine) commit(ctx context.Context, record *Record) {
	if err := e.committer.Commit(ctx, record); err != nil {
		e.logger.Error().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
	}
}

func messageID(record *Record) string {
	if v := record.Headers[MessageIDHeader]; len(v) > 0 {
		return string(v)
	}
	if len(record.Key) > 0 {
		return string(record.Key)
	}
	return uuid.NewString()
}

func rawRequest(value []byte) json.RawMessage {
	if !json.Valid(value) {
		raw, _ := json.Marshal(string(value))
		return raw
	}
	return cloneBytes(value)
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	clone := make(map[string][]byte, len(headers))
	for k, v := range headers {
		clone[k] = cloneBytes(v)
	}
	return clone
}
