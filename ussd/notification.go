package ussd

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidNotification is returned when a notification payload cannot be decoded.
var ErrInvalidNotification = errors.New("ussd: invalid notification")

// SessionStatus is the final state of a USSD session.
type SessionStatus string

const (
	StatusSuccess    SessionStatus = "Success"
	StatusIncomplete SessionStatus = "Incomplete"
	StatusFailed     SessionStatus = "Failed"
)

// ParseSessionStatus maps the gateway status string to a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	switch s := SessionStatus(strings.TrimSpace(value)); s {
	case StatusSuccess, StatusIncomplete, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidNotification, value)
	}
}

// Notification is the end-of-session callback sent once a session finishes.
type Notification struct {
	Date             string        `json:"date"`
	SessionID        string        `json:"sessionId" validate:"required"`
	ServiceCode      string        `json:"serviceCode"`
	NetworkCode      string        `json:"networkCode"`
	PhoneNumber      string        `json:"phoneNumber" validate:"required"`
	Status           SessionStatus `json:"status" validate:"required,oneof=Success Incomplete Failed"`
	Cost             string        `json:"cost"`
	DurationInMillis string        `json:"durationInMillis"`
	HopsCount        int           `json:"hopsCount"`
	Input            string        `json:"input"`
	LastAppResponse  string        `json:"lastAppResponse"`
	// ErrorMessage is nil when the gateway did not send the field.
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// NotificationFromValues reads a form encoded notification body.
func NotificationFromValues(values url.Values) (Notification, error) {
	n := Notification{
		Date:             values.Get("date"),
		SessionID:        values.Get("sessionId"),
		ServiceCode:      values.Get("serviceCode"),
		NetworkCode:      values.Get("networkCode"),
		PhoneNumber:      values.Get("phoneNumber"),
		Cost:             values.Get("cost"),
		DurationInMillis: values.Get("durationInMillis"),
		Input:            values.Get("input"),
		LastAppResponse:  values.Get("lastAppResponse"),
	}

	status, err := ParseSessionStatus(values.Get("status"))
	if err != nil {
		return Notification{}, err
	}
	n.Status = status

	if raw := strings.TrimSpace(values.Get("hopsCount")); raw != "" {
		hops, err := strconv.Atoi(raw)
		if err != nil {
			return Notification{}, fmt.Errorf("%w: hopsCount %q is not an integer", ErrInvalidNotification, raw)
		}
		n.HopsCount = hops
	}

	if values.Has("errorMessage") {
		msg := values.Get("errorMessage")
		n.ErrorMessage = &msg
	}

	return n, nil
}

// Duration parses DurationInMillis. Unparseable values yield zero.
func (n Notification) Duration() time.Duration {
	ms, err := strconv.ParseInt(strings.TrimSpace(n.DurationInMillis), 10, 64)
	if err != nil || ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// Succeeded reports whether the session completed successfully.
func (n Notification) Succeeded() bool {
	return n.Status == StatusSuccess
}

// Network resolves the notification's network code.
func (n Notification) Network() NetworkCode {
	return FromCode(n.NetworkCode)
}
