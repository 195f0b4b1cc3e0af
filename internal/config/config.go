package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/util"
)

// Config captures all runtime configuration for the webhook server and CLI.
type Config struct {
	App            AppConfig
	AfricasTalking AfricasTalkingConfig
	Session        SessionConfig
	Kafka          KafkaConfig
	Dispatch       DispatchConfig
	Flow           FlowConfig
	Voice          VoiceConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env          string
	Port         int
	LogLevel     string
	MaxBodyBytes int64
}

// AfricasTalkingConfig holds the gateway account and client tuning.
type AfricasTalkingConfig struct {
	APIKey      string
	Username    string
	Environment client.Environment
	SenderID    string

	TimeoutSeconds int
	MaxRetries     int
	BaseBackoffMs  int
	MaxBackoffMs   int
}

// SessionConfig selects and tunes the USSD session store. An empty RedisURL
// selects the in-memory store.
type SessionConfig struct {
	RedisURL   string
	TTLSeconds int
	KeyPrefix  string
}

// KafkaConfig defines broker information. Events are only published to
// Kafka when Brokers is not empty.
type KafkaConfig struct {
	Brokers             []string
	EventsTopic         string
	SMSRequestTopic     string
	ConsumerGroup       string
	CommitOnSuccessOnly bool
}

// DispatchConfig tunes the queued SMS dispatcher.
type DispatchConfig struct {
	MaxAttempts     int
	Concurrency     int
	MaxPayloadBytes int
}

// FlowConfig points to the USSD menu definition.
type FlowConfig struct {
	MenuFile string
}

// VoiceConfig tunes the bundled IVR.
type VoiceConfig struct {
	AgentNumber          string
	RecordingCallbackURL string
	// VirtualNumber places USSD callback calls. Callbacks are disabled
	// when empty.
	VirtualNumber string
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("APP_PORT", 8080, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)
	cfg.App.MaxBodyBytes = int64(ldr.getInt("MAX_BODY_BYTES", 64*1024, false))

	cfg.AfricasTalking.APIKey = ldr.getString("AFRICASTALKING_API_KEY", "", true)
	cfg.AfricasTalking.Username = ldr.getString("AFRICASTALKING_USERNAME", "", true)
	cfg.AfricasTalking.Environment = ldr.getEnvironment("AFRICASTALKING_ENVIRONMENT")
	cfg.AfricasTalking.SenderID = ldr.getString("AFRICASTALKING_SENDER_ID", "", false)
	cfg.AfricasTalking.TimeoutSeconds = ldr.getInt("AFRICASTALKING_TIMEOUT_SECONDS", 30, false)
	cfg.AfricasTalking.MaxRetries = ldr.getInt("AFRICASTALKING_MAX_RETRIES", 3, false)
	cfg.AfricasTalking.BaseBackoffMs = ldr.getInt("AFRICASTALKING_BASE_BACKOFF_MS", 1000, false)
	cfg.AfricasTalking.MaxBackoffMs = ldr.getInt("AFRICASTALKING_MAX_BACKOFF_MS", 30000, false)

	cfg.Session.RedisURL = ldr.getString("REDIS_URL", "", false)
	cfg.Session.TTLSeconds = ldr.getInt("SESSION_TTL_SECONDS", 180, false)
	cfg.Session.KeyPrefix = ldr.getString("SESSION_KEY_PREFIX", "ussd:session:", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.EventsTopic = ldr.getString("KAFKA_EVENTS_TOPIC", "africastalking.events", false)
	cfg.Kafka.SMSRequestTopic = ldr.getString("KAFKA_SMS_REQUEST_TOPIC", "africastalking.sms.requests", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("KAFKA_CONSUMER_GROUP", "africastalking-sms-dispatcher", false)
	cfg.Kafka.CommitOnSuccessOnly = ldr.getBool("KAFKA_COMMIT_ON_SUCCESS_ONLY", true)

	cfg.Dispatch.MaxAttempts = ldr.getInt("DISPATCH_MAX_ATTEMPTS", 5, false)
	cfg.Dispatch.Concurrency = ldr.getInt("DISPATCH_CONCURRENCY", 8, false)
	cfg.Dispatch.MaxPayloadBytes = ldr.getInt("DISPATCH_MAX_PAYLOAD_BYTES", 64*1024, false)

	cfg.Flow.MenuFile = ldr.getString("USSD_MENU_FILE", "", false)

	cfg.Voice.AgentNumber = ldr.getPhone("VOICE_AGENT_NUMBER")
	cfg.Voice.RecordingCallbackURL = ldr.getURL("VOICE_RECORDING_CALLBACK_URL")
	cfg.Voice.VirtualNumber = ldr.getPhone("VOICE_VIRTUAL_NUMBER")

	ldr.check(cfg.AfricasTalking.TimeoutSeconds > 0, "AFRICASTALKING_TIMEOUT_SECONDS must be > 0")
	ldr.check(cfg.AfricasTalking.MaxRetries >= 0, "AFRICASTALKING_MAX_RETRIES must be >= 0")
	ldr.check(cfg.Session.TTLSeconds > 0, "SESSION_TTL_SECONDS must be > 0")
	ldr.check(cfg.App.MaxBodyBytes > 0, "MAX_BODY_BYTES must be > 0")
	ldr.check(cfg.Dispatch.MaxAttempts >= 1, "DISPATCH_MAX_ATTEMPTS must be >= 1")
	ldr.check(cfg.Dispatch.Concurrency >= 1, "DISPATCH_CONCURRENCY must be >= 1")
	ldr.check(cfg.Dispatch.MaxPayloadBytes >= 0, "DISPATCH_MAX_PAYLOAD_BYTES must be >= 0")

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Client maps the gateway settings onto a client configuration.
func (c AfricasTalkingConfig) Client() client.Config {
	return client.Config{
		APIKey:      c.APIKey,
		Username:    c.Username,
		Environment: c.Environment,
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		MaxRetries:  c.MaxRetries,
		BaseBackoff: time.Duration(c.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:  time.Duration(c.MaxBackoffMs) * time.Millisecond,
	}
}

// TTL returns the session time to live.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) check(ok bool, msg string) {
	if !ok {
		l.addError(msg)
	}
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool) bool {
	raw := l.getString(key, "", false)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return b
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return []string{}
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) getEnvironment(key string) client.Environment {
	env, err := client.ParseEnvironment(l.getString(key, "sandbox", false))
	if err != nil {
		l.addError(fmt.Sprintf("%s must be sandbox or production", key))
		return client.EnvironmentSandbox
	}
	return env
}

func (l *envLoader) getURL(key string) string {
	raw := l.getString(key, "", false)
	if raw == "" {
		return ""
	}
	u, err := util.ValidateHTTPURL(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s: %v", key, err))
		return ""
	}
	return u
}

func (l *envLoader) getPhone(key string) string {
	raw := l.getString(key, "", false)
	if raw == "" {
		return ""
	}
	phone, err := util.NormalizeE164(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s: %v", key, err))
		return ""
	}
	return phone
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
