// Package client is a REST client for the Africa's Talking SMS, airtime,
// voice, mobile data and payments APIs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes   = 1 << 20
	errorBodyLimit = 2048

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises a Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger. Requests are logged at debug level and
// retries at warn level.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// Client talks to the gateway. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient HTTPClient
	logger     zerolog.Logger
	registerer prometheus.Registerer
	metrics    *metrics
	validate   *validator.Validate

	randMu sync.Mutex
	rnd    *rand.Rand

	SMS         *SMSService
	Airtime     *AirtimeService
	Application *ApplicationService
	Voice       *VoiceService
	MobileData  *MobileDataService
	Payments    *PaymentsService
}

// New validates cfg and returns a ready Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		validate: newValidator(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if reflect.ValueOf(c.logger).IsZero() {
		c.logger = zerolog.Nop()
	}
	c.logger = c.logger.With().Str("component", "africastalking_client").Logger()

	if c.registerer != nil {
		m, err := newMetrics(c.registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	c.SMS = &SMSService{client: c}
	c.Airtime = &AirtimeService{client: c}
	c.Application = &ApplicationService{client: c}
	c.Voice = &VoiceService{client: c}
	c.MobileData = &MobileDataService{client: c}
	c.Payments = &PaymentsService{client: c}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// call describes one logical API request.
type call struct {
	method  string
	service Service
	path    string
	// form is sent url-encoded on POST; username is added.
	form url.Values
	// query is sent on GET; username is added.
	query url.Values
	// body is sent as JSON on POST when form is nil.
	body           any
	idempotencyKey string
}

// do runs c with retries and decodes a JSON reply into out when out is not
// nil. A *[]byte out receives the raw body.
func (c *Client) do(ctx context.Context, req call, out any) error {
	payload, contentType, err := c.encode(req)
	if err != nil {
		return err
	}

	attempts := c.cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		body, err := c.send(ctx, req, payload, contentType)
		if err == nil {
			return decode(req, body, out)
		}
		if !IsRetryable(err) || attempt >= attempts || ctx.Err() != nil {
			return err
		}

		delay := c.computeBackoff(attempt)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
		}
		c.metrics.retry(req.service, req.path)
		c.logger.Warn().
			Err(err).
			Str("path", req.path).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("africastalking: retrying after transient error")

		if !wait(ctx, delay) {
			return fmt.Errorf("africastalking: %s %s: %w", req.method, req.path, ctx.Err())
		}
	}
}

func (c *Client) encode(req call) ([]byte, string, error) {
	switch {
	case req.method == http.MethodGet:
		return nil, "", nil
	case req.form != nil:
		form := cloneValues(req.form)
		form.Set("username", c.cfg.Username)
		return []byte(form.Encode()), contentTypeForm, nil
	case req.body != nil:
		raw, err := json.Marshal(req.body)
		if err != nil {
			return nil, "", fmt.Errorf("africastalking: marshal %s body: %w", req.path, err)
		}
		return raw, contentTypeJSON, nil
	default:
		return nil, "", nil
	}
}

func (c *Client) send(ctx context.Context, req call, payload []byte, contentType string) ([]byte, error) {
	endpoint := c.cfg.baseURL(req.service) + req.path
	if req.method == http.MethodGet {
		q := cloneValues(req.query)
		q.Set("username", c.cfg.Username)
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("africastalking: new request: %w", err)
	}
	httpReq.Header.Set("apiKey", c.cfg.APIKey)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observe(req.service, req.path, "error", time.Since(start))
		wrapped := fmt.Errorf("africastalking: %s %s: %w", req.method, req.path, err)
		if ctx.Err() != nil {
			return nil, wrapped
		}
		return nil, WrapTransient(wrapped)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.metrics.observe(req.service, req.path, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, WrapTransient(fmt.Errorf("africastalking: read body: %w", err))
	}

	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("africastalking: request completed")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classify(newAPIError(req, resp, body))
}

type errorBody struct {
	ErrorMessage string `json:"ErrorMessage"`
	ErrorCode    string `json:"ErrorCode"`
	MoreInfo     string `json:"MoreInfo"`
}

func newAPIError(req call, resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     req.method,
		Path:       req.path,
		Body:       TruncateRaw(string(body), errorBodyLimit),
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.ErrorMessage != "" {
		apiErr.Message = parsed.ErrorMessage
		apiErr.Code = parsed.ErrorCode
		apiErr.MoreInfo = parsed.MoreInfo
	} else {
		apiErr.Message = strings.TrimSpace(apiErr.Body)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return apiErr
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func decode(req call, body []byte, out any) error {
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return WrapPermanent(fmt.Errorf("africastalking: decode %s reply: %w", req.path, err))
	}
	return nil
}

func (c *Client) computeBackoff(attempt int) time.Duration {
	if c.cfg.BaseBackoff <= 0 {
		return 0
	}

	multiplier := math.Pow(2, float64(attempt-1))
	raw := time.Duration(float64(c.cfg.BaseBackoff) * multiplier)
	if c.cfg.MaxBackoff > 0 && raw > c.cfg.MaxBackoff {
		raw = c.cfg.MaxBackoff
	}

	return c.fullJitter(raw)
}

func (c *Client) fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	c.randMu.Lock()
	defer c.randMu.Unlock()

	return time.Duration(c.rnd.Int63n(int64(max) + 1))
}

func wait(ctx context.Context, d time.Duration) bool {
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

func (c *Client) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
