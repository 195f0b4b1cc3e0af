package producer_test

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/kafka/producer"
)

func TestPublishSyncSendsMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "events" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "ATUid_1" {
			return errors.New("unexpected key " + string(key))
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "content-type" {
			return errors.New("missing content-type header")
		}
		return nil
	})

	p, err := producer.NewFromSyncProducer(sp, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	headers := map[string][]byte{"content-type": []byte("application/json")}
	if err := p.PublishSync("events", []byte("ATUid_1"), headers, []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsReady() {
		t.Fatal("expected producer to be ready")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishSyncFailureMarksNotReady(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p, err := producer.NewFromSyncProducer(sp, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = p.PublishSync("events", nil, nil, []byte(`{}`))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected broker error, got %v", err)
	}
	if p.IsReady() {
		t.Fatal("expected producer to be not ready")
	}
	_ = p.Close()
}

func TestPublishSyncRequiresTopic(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p, err := producer.NewFromSyncProducer(sp, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSync("", nil, nil, nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	_ = p.Close()
}

func TestConstructorsValidateInput(t *testing.T) {
	if _, err := producer.New(nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error without brokers")
	}
	if _, err := producer.NewFromSyncProducer(nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error without producer")
	}
}
