package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/config"
	"github.com/example/africastalking-go/internal/events"
	"github.com/example/africastalking-go/internal/flow"
	"github.com/example/africastalking-go/internal/ivr"
	"github.com/example/africastalking-go/internal/kafka/producer"
	"github.com/example/africastalking-go/internal/logger"
	"github.com/example/africastalking-go/internal/session"
	"github.com/example/africastalking-go/internal/webhook"
	"github.com/example/africastalking-go/ussd"
)

const (
	shutdownTimeout = 10 * time.Second
	actionTimeout   = 15 * time.Second
	confirmationSMS = "Hi {name}, welcome to Tuungane. Dial {serviceCode} any time to manage your account."
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "ussd-server").Logger()

	at, err := client.New(cfg.AfricasTalking.Client(),
		client.WithLogger(logger.Component(log, "africastalking")),
		client.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create africastalking client")
	}

	store, closeStore, err := newSessionStore(ctx, cfg.Session, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session store")
	}
	defer closeStore()

	menu := flow.Default()
	if cfg.Flow.MenuFile != "" {
		menu, err = flow.LoadFile(cfg.Flow.MenuFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Flow.MenuFile).Msg("failed to load ussd menu")
		}
	}

	actions := []flow.Option{
		flow.WithAction("registered", detached("registered", flow.ConfirmationAction(at.SMS, cfg.AfricasTalking.SenderID, confirmationSMS), log)),
	}
	if cfg.Voice.VirtualNumber != "" {
		actions = append(actions, flow.WithAction("callback", detached("callback", flow.CallbackAction(at.Voice, cfg.Voice.VirtualNumber), log)))
	}

	engine, err := flow.NewEngine(menu, store, logger.Component(log, "flow"), actions...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create ussd flow engine")
	}

	var (
		sink  events.Sink = events.NewLogSink(logger.Component(log, "events"))
		ready webhook.ReadinessFunc
	)
	if len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(cfg.Kafka.Brokers, logger.Component(log, "kafka"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		defer func() {
			if err := prod.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka producer")
			}
		}()
		sink = events.NewPublisher(prod, cfg.Kafka.EventsTopic, logger.Component(log, "event-publisher"))
		ready = prod.IsReady
	}

	ivrHandler := ivr.New(ivr.Config{
		AgentNumber:          cfg.Voice.AgentNumber,
		RecordingCallbackURL: cfg.Voice.RecordingCallbackURL,
	}, logger.Component(log, "ivr"))

	srv, err := webhook.NewServer(webhook.Dependencies{
		USSD:         engine,
		Voice:        ivrHandler,
		Events:       sink,
		Logger:       logger.Component(log, "webhook"),
		Registerer:   prometheus.DefaultRegisterer,
		Gatherer:     prometheus.DefaultGatherer,
		MaxBodyBytes: cfg.App.MaxBodyBytes,
		Ready:        ready,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create webhook server")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Int("port", cfg.App.Port).
		Str("environment", string(cfg.AfricasTalking.Environment)).
		Bool("kafka", len(cfg.Kafka.Brokers) > 0).
		Bool("redis", cfg.Session.RedisURL != "").
		Msg("ussd server started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server terminated with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down http server")
	}
}

// newSessionStore returns a Redis store when a URL is configured and an
// in-memory store swept in the background otherwise.
func newSessionStore(ctx context.Context, cfg config.SessionConfig, log zerolog.Logger) (session.Store, func(), error) {
	if cfg.RedisURL != "" {
		rdb, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close redis client")
			}
		}
		return session.NewRedisStore(rdb, cfg.KeyPrefix, cfg.TTL()), closeFn, nil
	}

	store := session.NewMemoryStore(cfg.TTL())
	ticker := time.NewTicker(cfg.TTL())
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := store.Sweep(); n > 0 {
					log.Debug().Int("expired", n).Msg("swept ussd sessions")
				}
			}
		}
	}()
	return store, ticker.Stop, nil
}

// detached runs fn off the request path so the USSD reply is not held up by
// the gateway call.
func detached(name string, fn flow.ActionFunc, log zerolog.Logger) flow.ActionFunc {
	return func(_ context.Context, req ussd.Request, data map[string]string) error {
		captured := make(map[string]string, len(data))
		for k, v := range data {
			captured[k] = v
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
			defer cancel()
			if err := fn(ctx, req, captured); err != nil {
				log.Error().Err(err).Str("action", name).Str("session_id", req.SessionID).Msg("menu action failed")
			}
		}()
		return nil
	}
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("ussd server init failed")
}
