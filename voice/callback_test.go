package voice_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/example/africastalking-go/voice"
)

func TestCallbackFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("isActive", "1")
	v.Set("sessionId", "ATVId_1")
	v.Set("direction", "Inbound")
	v.Set("callerNumber", "+254711000000")
	v.Set("destinationNumber", "+254201234567")
	v.Set("dtmfDigits", "")

	cb, err := voice.CallbackFromValues(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cb.IsActive || cb.Direction != voice.DirectionInbound {
		t.Fatalf("unexpected callback %+v", cb)
	}
	digits, ok := cb.Digits()
	if !ok || digits != "" {
		t.Fatalf("expected present but empty digits, got (%q, %v)", digits, ok)
	}
	if _, ok := cb.Recording(); ok {
		t.Fatalf("expected absent recording url")
	}
	if cb.HangupCause != nil {
		t.Fatalf("expected absent hangup cause")
	}
}

func TestCallbackFinalPost(t *testing.T) {
	v := url.Values{}
	v.Set("isActive", "0")
	v.Set("sessionId", "ATVId_1")
	v.Set("callerNumber", "+254711000000")
	v.Set("durationInSeconds", "42")
	v.Set("currencyCode", "KES")
	v.Set("amount", "1.4")
	v.Set("hangupCause", "NORMAL_CLEARING")
	v.Set("recordingUrl", "https://example.com/r.mp3")

	cb, err := voice.CallbackFromValues(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.IsActive {
		t.Fatalf("expected inactive call")
	}
	if cb.DurationInSeconds == nil || *cb.DurationInSeconds != "42" {
		t.Fatalf("unexpected duration %v", cb.DurationInSeconds)
	}
	if rec, ok := cb.Recording(); !ok || rec != "https://example.com/r.mp3" {
		t.Fatalf("unexpected recording (%q, %v)", rec, ok)
	}
}

func TestCallbackRejectsBadActiveFlag(t *testing.T) {
	v := url.Values{}
	v.Set("isActive", "yes")
	if _, err := voice.CallbackFromValues(v); !errors.Is(err, voice.ErrInvalidCallback) {
		t.Fatalf("expected ErrInvalidCallback, got %v", err)
	}
}
