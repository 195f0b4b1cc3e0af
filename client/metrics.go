package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics is nil when WithMetrics was not supplied; every method tolerates that.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "africastalking_client_requests_total",
				Help: "HTTP requests sent to the gateway by service, path and status code.",
			},
			[]string{"service", "path", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "africastalking_client_request_duration_seconds",
				Help:    "Gateway request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "path"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "africastalking_client_retries_total",
				Help: "Retries scheduled after transient failures.",
			},
			[]string{"service", "path"},
		),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.retries, err = register(reg, m.retries); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an identical collector already registered by another client.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("africastalking: register metrics: %w", err)
	}
	return c, nil
}

func (m *metrics) observe(svc Service, path, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(svc.String(), path, code).Inc()
	m.duration.WithLabelValues(svc.String(), path).Observe(elapsed.Seconds())
}

func (m *metrics) retry(svc Service, path string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(svc.String(), path).Inc()
}
