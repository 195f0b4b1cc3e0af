// Package ivr is a small voice menu: callers press 1 to reach an agent or 2
// to leave a message.
package ivr

import (
	"context"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/voice"
)

const (
	greeting   = "Welcome to Tuungane. Press 1 to speak to an agent or 2 to leave a message, then press hash."
	noAgent    = "All our agents are busy. Please leave a message after the beep."
	recordHint = "Please leave your message after the beep. Press hash when done."
	invalid    = "Sorry, that is not a valid choice. Goodbye."
	goodbye    = "Thank you for calling. Goodbye."
)

// Config wires the menu's outbound targets.
type Config struct {
	// AgentNumber is dialled for option 1. When empty the caller is asked
	// to leave a message instead.
	AgentNumber string
	// RecordingCallbackURL receives the recording posted by the gateway.
	RecordingCallbackURL string
}

// Handler answers voice callbacks.
type Handler struct {
	cfg    Config
	logger zerolog.Logger
}

// New builds a Handler.
func New(cfg Config, logger zerolog.Logger) *Handler {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Handler{cfg: cfg, logger: logger.With().Str("component", "ivr").Logger()}
}

// HandleVoice returns the next actions for an active call.
func (h *Handler) HandleVoice(_ context.Context, cb voice.Callback) (*voice.ActionBuilder, error) {
	b := voice.NewActionBuilder()

	if url, ok := cb.Recording(); ok {
		h.logger.Info().Str("session_id", cb.SessionID).Str("recording_url", url).Msg("voicemail received")
		return b.Say(goodbye), nil
	}

	digits, ok := cb.Digits()
	if !ok {
		return b.GetDigits(voice.NewGetDigitsAction().
			Say(greeting).
			NumDigits(1).
			FinishOnKey("#").
			Timeout(30)), nil
	}

	switch strings.TrimSpace(digits) {
	case "1":
		if h.cfg.AgentNumber == "" {
			return h.record(b.Say(noAgent)), nil
		}
		return b.Dial(voice.NewDialAction(h.cfg.AgentNumber).
			Record(true).
			Sequential(true).
			CallerID(cb.DestinationNumber)), nil
	case "2":
		return h.record(b), nil
	default:
		return b.Say(invalid), nil
	}
}

func (h *Handler) record(b *voice.ActionBuilder) *voice.ActionBuilder {
	rec := voice.NewRecordAction().
		Say(recordHint).
		FinishOnKey("#").
		MaxLength(60).
		TrimSilence(true).
		PlayBeep(true)
	if h.cfg.RecordingCallbackURL != "" {
		rec.CallbackURL(h.cfg.RecordingCallbackURL)
	}
	return b.Record(rec)
}
