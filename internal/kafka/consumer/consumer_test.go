package consumer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/kafka/consumer"
)

type fakeSession struct {
	sarama.ConsumerGroupSession

	mu      sync.Mutex
	marked  []int64
	commits int
	ctx     context.Context
}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type fakeGroup struct {
	sarama.ConsumerGroup

	session  *fakeSession
	messages []*sarama.ConsumerMessage
	errs     chan error
}

func (g *fakeGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	g.session.ctx = ctx
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(g.messages))}
	for _, m := range g.messages {
		claim.messages <- m
	}
	close(claim.messages)

	if err := handler.Setup(g.session); err != nil {
		return err
	}
	if err := handler.ConsumeClaim(g.session, claim); err != nil {
		return err
	}
	if err := handler.Cleanup(g.session); err != nil {
		return err
	}
	return sarama.ErrClosedConsumerGroup
}

func (g *fakeGroup) Errors() <-chan error { return g.errs }

func (g *fakeGroup) Close() error {
	close(g.errs)
	return nil
}

func newGroup(msgs ...*sarama.ConsumerMessage) *fakeGroup {
	return &fakeGroup{session: &fakeSession{}, messages: msgs, errs: make(chan error)}
}

func TestConsumeDeliversAndCommits(t *testing.T) {
	group := newGroup(&sarama.ConsumerMessage{
		Topic:     "sms",
		Partition: 2,
		Offset:    41,
		Key:       []byte("msg-1"),
		Value:     []byte(`{"to":["+254711000000"]}`),
		Headers:   []*sarama.RecordHeader{{Key: []byte("message-id"), Value: []byte("msg-1")}},
	})
	cons, err := consumer.NewFromGroup(group, "dispatcher", zerolog.Nop(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []*consumer.Record
	err = cons.Consume(context.Background(), []string{"sms"}, func(ctx context.Context, rec *consumer.Record) error {
		got = append(got, rec)
		if err := cons.Commit(ctx, rec); err != nil {
			return err
		}
		return cons.Commit(ctx, rec)
	})
	if err != nil {
		t.Fatalf("unexpected consume error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	if got[0].Offset != 41 || string(got[0].Headers["message-id"]) != "msg-1" {
		t.Fatalf("unexpected record %+v", got[0])
	}
	if len(group.session.marked) != 1 || group.session.commits != 1 {
		t.Fatalf("expected single mark and commit, got %v / %d", group.session.marked, group.session.commits)
	}
	if cons.IsReady() {
		t.Fatalf("expected consumer to be not ready after cleanup")
	}
	if err := cons.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAutoCommitModeOnlyMarks(t *testing.T) {
	group := newGroup(&sarama.ConsumerMessage{Topic: "sms", Offset: 1})
	cons, err := consumer.NewFromGroup(group, "dispatcher", zerolog.Nop(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = cons.Consume(context.Background(), []string{"sms"}, func(ctx context.Context, rec *consumer.Record) error {
		return cons.Commit(ctx, rec)
	})
	if err != nil {
		t.Fatalf("unexpected consume error: %v", err)
	}
	if len(group.session.marked) != 1 || group.session.commits != 0 {
		t.Fatalf("expected mark without commit, got %v / %d", group.session.marked, group.session.commits)
	}
	_ = cons.Close()
}

func TestConsumeValidatesArguments(t *testing.T) {
	cons, err := consumer.NewFromGroup(newGroup(), "g", zerolog.Nop(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cons.Close()

	if err := cons.Consume(context.Background(), nil, func(context.Context, *consumer.Record) error { return nil }); err == nil {
		t.Fatalf("expected error without topics")
	}
	if err := cons.Consume(context.Background(), []string{"t"}, nil); err == nil {
		t.Fatalf("expected error without handler")
	}
	if err := cons.Commit(context.Background(), &consumer.Record{}); err == nil {
		t.Fatalf("expected error committing detached record")
	}
}

func TestConstructorsValidateInput(t *testing.T) {
	if _, err := consumer.New(nil, "g", zerolog.Nop(), true); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := consumer.New([]string{"localhost:9092"}, "", zerolog.Nop(), true); err == nil {
		t.Fatalf("expected error without group id")
	}
	if _, err := consumer.NewFromGroup(nil, "g", zerolog.Nop(), true); err == nil {
		t.Fatalf("expected error without group")
	}
}
