package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/africastalking-go/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...client.Option) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig("sandbox", "test-key")
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 2
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond

	c, err := client.New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := client.New(client.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "api key is required")
	assert.Contains(t, err.Error(), "username is required")
}

func TestEnvironmentBaseURL(t *testing.T) {
	cases := []struct {
		env  client.Environment
		svc  client.Service
		want string
	}{
		{client.EnvironmentSandbox, client.ServiceAPI, "https://api.sandbox.africastalking.com"},
		{client.EnvironmentSandbox, client.ServiceVoice, "https://voice.sandbox.africastalking.com"},
		{client.EnvironmentSandbox, client.ServiceMobileData, "https://bundles.sandbox.africastalking.com"},
		{client.EnvironmentProduction, client.ServiceAPI, "https://api.africastalking.com"},
		{client.EnvironmentProduction, client.ServicePayments, "https://payments.africastalking.com"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.env.BaseURL(tc.svc))
	}

	env, err := client.ParseEnvironment(" Production ")
	require.NoError(t, err)
	assert.Equal(t, client.EnvironmentProduction, env)

	_, err = client.ParseEnvironment("staging")
	assert.ErrorIs(t, err, client.ErrInvalidConfig)
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"UserData":{"balance":"KES 10.00"}}`)
	})

	data, err := c.Application.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "KES 10.00", data.Balance())
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Application.Data(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ErrorMessage":"Invalid sender id","ErrorCode":"InvalidSenderId","MoreInfo":"https://docs"}`)
	})

	_, err := c.Application.Data(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrPermanent)
	assert.False(t, client.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid sender id", apiErr.Message)
	assert.Equal(t, "InvalidSenderId", apiErr.Code)
	assert.Equal(t, "https://docs", apiErr.MoreInfo)
}

func TestPlainTextErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "The supplied authentication is invalid\n")
	})

	_, err := c.Application.Data(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "The supplied authentication is invalid", apiErr.Message)
}

func TestRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig("sandbox", "test-key")
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 0
	c, err := client.New(cfg)
	require.NoError(t, err)

	_, err = c.Application.Data(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsRetryable(err))

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.RateLimited())
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)
}

func TestContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Application.Data(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequestHeadersAndUsername(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/version1/user", r.URL.Path)
		assert.Equal(t, "sandbox", r.URL.Query().Get("username"))
		assert.Equal(t, "test-key", r.Header.Get("apiKey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"UserData":{"balance":"KES 0"}}`)
	})

	_, err := c.Application.Data(context.Background())
	require.NoError(t, err)
}

func TestMetricsAreRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"UserData":{"balance":"KES 0"}}`)
	}, client.WithMetrics(reg))

	_, err := c.Application.Data(context.Background())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "africastalking_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A second client on the same registry reuses the collectors.
	_, err = client.New(c.Config(), client.WithMetrics(reg))
	require.NoError(t, err)
}

func TestDecodeFailureIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})

	_, err := c.Application.Data(context.Background())
	assert.ErrorIs(t, err, client.ErrPermanent)
}

func readForm(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
	require.NoError(t, r.ParseForm())
	return r.PostForm
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	require.Equal(t, "application/json", r.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}
