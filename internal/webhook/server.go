// Package webhook serves the callback endpoints the Africa's Talking gateway
// posts to: USSD sessions and notifications, voice calls, SMS delivery
// reports and incoming messages.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/events"
	"github.com/example/africastalking-go/ussd"
	"github.com/example/africastalking-go/voice"
)

const defaultMaxBodyBytes int64 = 64 << 10

// USSDHandler answers one USSD hop.
type USSDHandler interface {
	HandleUSSD(ctx context.Context, req ussd.Request) (ussd.Response, error)
}

// NotificationHandler is implemented by USSD handlers that want the end of
// session notification in addition to the published event.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, n ussd.Notification) error
}

// VoiceHandler returns the actions for an active call.
type VoiceHandler interface {
	HandleVoice(ctx context.Context, cb voice.Callback) (*voice.ActionBuilder, error)
}

// EventSink receives informational callbacks.
type EventSink = events.Sink

// ReadinessFunc reports whether the server's dependencies are usable.
type ReadinessFunc func() bool

// Dependencies wires a Server.
type Dependencies struct {
	USSD   USSDHandler
	Voice  VoiceHandler
	Events EventSink
	Logger zerolog.Logger

	// Registerer receives the HTTP metrics. When it is nil a private
	// registry is used and served on /metrics.
	Registerer prometheus.Registerer
	// Gatherer backs /metrics. It defaults to Registerer when that is
	// also a Gatherer.
	Gatherer prometheus.Gatherer

	MaxBodyBytes int64
	Ready        ReadinessFunc
}

// Server routes gateway callbacks to their handlers.
type Server struct {
	ussd     USSDHandler
	voice    VoiceHandler
	events   EventSink
	logger   zerolog.Logger
	validate *validator.Validate
	metrics  *metrics
	maxBody  int64
	ready    ReadinessFunc
	router   *mux.Router
}

// NewServer validates deps and builds the router.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.USSD == nil {
		return nil, errors.New("webhook: ussd handler is required")
	}
	if deps.Voice == nil {
		return nil, errors.New("webhook: voice handler is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "webhook").Logger()

	sink := deps.Events
	if sink == nil {
		sink = events.NewLogSink(logger)
	}

	reg, gatherer := deps.Registerer, deps.Gatherer
	if reg == nil {
		private := prometheus.NewRegistry()
		reg, gatherer = private, private
	}
	if gatherer == nil {
		if g, ok := reg.(prometheus.Gatherer); ok {
			gatherer = g
		} else {
			gatherer = prometheus.DefaultGatherer
		}
	}

	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	s := &Server{
		ussd:     deps.USSD,
		voice:    deps.Voice,
		events:   sink,
		logger:   logger,
		validate: validator.New(),
		metrics:  m,
		maxBody:  maxBody,
		ready:    deps.Ready,
	}
	s.router = s.routes(gatherer)
	return s, nil
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.instrument, s.recoverer, s.limitBody)

	r.HandleFunc("/ussd", s.handleUSSD).Methods(http.MethodPost)
	r.HandleFunc("/ussd/notifications", s.handleUSSDNotification).Methods(http.MethodPost)
	r.HandleFunc("/voice/callback", s.handleVoice).Methods(http.MethodPost)
	r.HandleFunc("/sms/delivery-reports", s.handleDeliveryReport).Methods(http.MethodPost)
	r.HandleFunc("/sms/incoming", s.handleIncomingSMS).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}
