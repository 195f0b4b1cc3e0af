package client

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultUserAgent   = "africastalking-go"
)

// Environment selects the sandbox or the production gateway.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// ParseEnvironment accepts "sandbox" or "production", case-insensitively.
// An empty value selects the sandbox.
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(EnvironmentSandbox):
		return EnvironmentSandbox, nil
	case string(EnvironmentProduction), "live":
		return EnvironmentProduction, nil
	default:
		return "", fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, value)
	}
}

// Service names an API host family.
type Service int

const (
	ServiceAPI Service = iota
	ServiceVoice
	ServiceMobileData
	ServicePayments
)

func (s Service) String() string {
	switch s {
	case ServiceVoice:
		return "voice"
	case ServiceMobileData:
		return "mobile_data"
	case ServicePayments:
		return "payments"
	default:
		return "api"
	}
}

func (s Service) subdomain() string {
	switch s {
	case ServiceVoice:
		return "voice"
	case ServiceMobileData:
		return "bundles"
	case ServicePayments:
		return "payments"
	default:
		return "api"
	}
}

// Domain returns the gateway domain for the environment.
func (e Environment) Domain() string {
	if e == EnvironmentProduction {
		return "africastalking.com"
	}
	return "sandbox.africastalking.com"
}

// BaseURL returns the scheme and host serving svc in this environment.
func (e Environment) BaseURL(svc Service) string {
	return "https://" + svc.subdomain() + "." + e.Domain()
}

// Config holds the account credentials and transport tuning for a Client.
type Config struct {
	APIKey      string
	Username    string
	Environment Environment

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	UserAgent   string

	// BaseURL, when set, replaces the host of every service.
	BaseURL string
}

// withDefaults fills zero values. MaxRetries is left untouched because zero
// is a meaningful setting; use DefaultConfig to start from three retries.
func (c Config) withDefaults() Config {
	if c.Environment == "" {
		c.Environment = EnvironmentSandbox
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	return c
}

// DefaultConfig returns a sandbox configuration with default tuning.
func DefaultConfig(username, apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		Username:    username,
		Environment: EnvironmentSandbox,
		Timeout:     defaultTimeout,
		MaxRetries:  defaultMaxRetries,
		BaseBackoff: defaultBaseBackoff,
		MaxBackoff:  defaultMaxBackoff,
		UserAgent:   defaultUserAgent,
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, errors.New("api key is required"))
	}
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, errors.New("username is required"))
	}
	switch c.Environment {
	case EnvironmentSandbox, EnvironmentProduction:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must not be negative"))
	}
	if c.BaseBackoff < 0 || c.MaxBackoff < 0 {
		errs = append(errs, errors.New("backoff must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c Config) baseURL(svc Service) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return c.Environment.BaseURL(svc)
}
