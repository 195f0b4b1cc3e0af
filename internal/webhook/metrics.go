package webhook

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	events    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "africastalking_webhook_requests_total",
		Help: "Gateway callbacks handled, by route, method and status code.",
	}, []string{"route", "method", "code"}))
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "africastalking_webhook_request_duration_seconds",
		Help:    "Callback handling latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"}))
	if err != nil {
		return nil, err
	}
	published, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "africastalking_webhook_events_total",
		Help: "Events forwarded to the sink, by type and result.",
	}, []string{"type", "result"}))
	if err != nil {
		return nil, err
	}
	return &metrics{requests: requests, durations: durations, events: published}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("webhook: register metrics: %w", err)
	}
	return c, nil
}
