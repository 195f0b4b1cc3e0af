package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/config"
	"github.com/example/africastalking-go/internal/events"
	"github.com/example/africastalking-go/internal/kafka/consumer"
	"github.com/example/africastalking-go/internal/kafka/producer"
	"github.com/example/africastalking-go/internal/logger"
	"github.com/example/africastalking-go/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		fail("config load", errors.New("KAFKA_BROKERS is required for the sms dispatcher"))
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "sms-dispatcher").Logger()

	// The engine owns retries; a retrying client would multiply attempts.
	clientCfg := cfg.AfricasTalking.Client()
	clientCfg.MaxRetries = 0
	at, err := client.New(clientCfg,
		client.WithLogger(logger.Component(log, "africastalking")),
		client.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create africastalking client")
	}

	prod, err := producer.New(cfg.Kafka.Brokers, logger.Component(log, "kafka"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	publisher := events.NewPublisher(prod, cfg.Kafka.EventsTopic, logger.Component(log, "event-publisher"))
	if publisher == nil {
		log.Fatal().Msg("failed to create event publisher")
	}

	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, logger.Component(log, "consumer"), cfg.Kafka.CommitOnSuccessOnly)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	engine, err := worker.NewEngine(worker.Config{
		MaxPayloadBytes: cfg.Dispatch.MaxPayloadBytes,
		MaxAttempts:     cfg.Dispatch.MaxAttempts,
		BaseBackoff:     time.Duration(cfg.AfricasTalking.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:      time.Duration(cfg.AfricasTalking.MaxBackoffMs) * time.Millisecond,
		Concurrency:     cfg.Dispatch.Concurrency,
	}, worker.Dependencies{
		Sender: at.SMS,
		Events: publisher,
		Committer: worker.CommitFunc(func(ctx context.Context, record *worker.Record) error {
			return record.Commit(ctx)
		}),
		Logger: logger.Component(log, "worker-engine"),
		Now:    time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker engine")
	}

	topics := []string{cfg.Kafka.SMSRequestTopic}
	handler := worker.KafkaHandler(engine, cons)

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, topics, handler); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("request_topic", cfg.Kafka.SMSRequestTopic).
		Str("events_topic", cfg.Kafka.EventsTopic).
		Int("concurrency", cfg.Dispatch.Concurrency).
		Msg("sms dispatcher started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}

	engine.Wait()
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("sms dispatcher init failed")
}
