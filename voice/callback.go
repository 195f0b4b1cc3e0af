package voice

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidCallback is returned when a voice callback cannot be decoded.
var ErrInvalidCallback = errors.New("voice: invalid callback")

// Direction tells whether the gateway placed or received the call.
type Direction string

const (
	DirectionInbound  Direction = "Inbound"
	DirectionOutbound Direction = "Outbound"
)

// Callback is the form the gateway posts to the voice callback URL. While
// IsActive is true the reply must be a voice document; the final post of a
// call has IsActive false and carries the billing fields.
type Callback struct {
	IsActive          bool      `json:"isActive"`
	SessionID         string    `json:"sessionId" validate:"required"`
	Direction         Direction `json:"direction"`
	CallerNumber      string    `json:"callerNumber" validate:"required"`
	DestinationNumber string    `json:"destinationNumber"`
	// DTMFDigits is nil unless the post follows a GetDigits action.
	DTMFDigits *string `json:"dtmfDigits,omitempty"`
	// RecordingURL is nil unless the post follows a Record action.
	RecordingURL *string `json:"recordingUrl,omitempty"`

	DurationInSeconds *string `json:"durationInSeconds,omitempty"`
	CurrencyCode      *string `json:"currencyCode,omitempty"`
	Amount            *string `json:"amount,omitempty"`
	HangupCause       *string `json:"hangupCause,omitempty"`
	CallSessionState  *string `json:"callSessionState,omitempty"`
}

// CallbackFromValues decodes a form encoded voice callback.
func CallbackFromValues(values url.Values) (Callback, error) {
	cb := Callback{
		SessionID:         values.Get("sessionId"),
		Direction:         Direction(values.Get("direction")),
		CallerNumber:      values.Get("callerNumber"),
		DestinationNumber: values.Get("destinationNumber"),
		DTMFDigits:        optional(values, "dtmfDigits"),
		RecordingURL:      optional(values, "recordingUrl"),
		DurationInSeconds: optional(values, "durationInSeconds"),
		CurrencyCode:      optional(values, "currencyCode"),
		Amount:            optional(values, "amount"),
		HangupCause:       optional(values, "hangupCause"),
		CallSessionState:  optional(values, "callSessionState"),
	}

	switch active := strings.TrimSpace(values.Get("isActive")); active {
	case "1", "true":
		cb.IsActive = true
	case "0", "false":
		cb.IsActive = false
	default:
		return Callback{}, fmt.Errorf("%w: isActive %q", ErrInvalidCallback, active)
	}

	return cb, nil
}

func optional(values url.Values, key string) *string {
	if !values.Has(key) {
		return nil
	}
	v := values.Get(key)
	return &v
}

// Digits returns the keypad input, if this post carries any.
func (c Callback) Digits() (string, bool) {
	if c.DTMFDigits == nil {
		return "", false
	}
	return *c.DTMFDigits, true
}

// Recording returns the recording URL, if this post carries one.
func (c Callback) Recording() (string, bool) {
	if c.RecordingURL == nil {
		return "", false
	}
	return *c.RecordingURL, true
}
