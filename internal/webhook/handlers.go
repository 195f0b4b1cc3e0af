package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/client"
	"github.com/example/africastalking-go/internal/events"
	"github.com/example/africastalking-go/ussd"
	"github.com/example/africastalking-go/voice"
)

var errTooLarge = errors.New("webhook: request body too large")

// decode reads a JSON body into T or parses the form and hands it to
// fromForm, depending on Content-Type.
func decode[T any](r *http.Request, fromForm func(url.Values) (T, error)) (T, error) {
	var out T

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
			return out, bodyError(err)
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return out, bodyError(err)
	}
	return fromForm(r.PostForm)
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errTooLarge
	}
	return fmt.Errorf("webhook: decode body: %w", err)
}

func noError[T any](fn func(url.Values) T) func(url.Values) (T, error) {
	return func(v url.Values) (T, error) { return fn(v), nil }
}

// badRequest writes 413 for oversized bodies and 400 otherwise.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rejected callback")
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(msg)
	w.WriteHeader(http.StatusInternalServerError)
}

func (s *Server) handleUSSD(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r, noError(ussd.RequestFromValues))
	if err == nil {
		err = s.validate.Struct(req)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	resp, err := s.ussd.HandleUSSD(r.Context(), req)
	if err != nil {
		s.internalError(w, r, err, "ussd handler failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Bytes())
}

func (s *Server) handleUSSDNotification(w http.ResponseWriter, r *http.Request) {
	n, err := decode(r, ussd.NotificationFromValues)
	if err == nil {
		err = s.validate.Struct(n)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	if h, ok := s.ussd.(NotificationHandler); ok {
		if err := h.HandleNotification(r.Context(), n); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("session_id", n.SessionID).Msg("notification handler failed")
		}
	}

	s.publish(r.Context(), events.TypeUSSDNotification, n.SessionID, n)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.badRequest(w, r, bodyError(err))
		return
	}
	cb, err := voice.CallbackFromValues(r.PostForm)
	if err == nil {
		err = s.validate.Struct(cb)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	if !cb.IsActive {
		s.publish(r.Context(), events.TypeVoiceCallEnded, cb.SessionID, cb)
		w.WriteHeader(http.StatusOK)
		return
	}

	builder, err := s.voice.HandleVoice(r.Context(), cb)
	if err != nil {
		s.internalError(w, r, err, "voice handler failed")
		return
	}
	if builder == nil {
		builder = voice.NewActionBuilder()
	}
	doc, err := builder.Build()
	if err != nil {
		s.internalError(w, r, err, "voice document failed to build")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleDeliveryReport(w http.ResponseWriter, r *http.Request) {
	report, err := decode(r, noError(client.DeliveryReportFromValues))
	if err == nil {
		err = s.validate.Struct(report)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.publish(r.Context(), events.TypeSMSDeliveryReport, report.ID, report)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIncomingSMS(w http.ResponseWriter, r *http.Request) {
	msg, err := decode(r, noError(client.IncomingMessageFromValues))
	if err == nil {
		err = s.validate.Struct(msg)
	}
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.publish(r.Context(), events.TypeSMSIncoming, msg.ID, msg)
	w.WriteHeader(http.StatusOK)
}

// publish forwards a callback to the sink. Failures are logged and counted;
// the gateway is still acknowledged because it does not act on the reply.
func (s *Server) publish(ctx context.Context, eventType, key string, payload any) {
	logger := zerolog.Ctx(ctx)

	event, err := events.New(eventType, key, payload)
	if err == nil {
		err = s.events.Publish(ctx, event)
	}
	if err != nil {
		s.metrics.events.WithLabelValues(eventType, "error").Inc()
		logger.Error().Err(err).Str("event_type", eventType).Str("key", key).Msg("failed to publish event")
		return
	}
	s.metrics.events.WithLabelValues(eventType, "ok").Inc()
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, code := "ok", http.StatusOK
	if s.ready != nil && !s.ready() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status})
}
