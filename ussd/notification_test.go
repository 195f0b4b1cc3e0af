package ussd_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/example/africastalking-go/ussd"
)

func notificationValues() url.Values {
	v := url.Values{}
	v.Set("date", "2024-01-02 10:11:12")
	v.Set("sessionId", "ATUid_1")
	v.Set("serviceCode", "*384#")
	v.Set("networkCode", "64110")
	v.Set("phoneNumber", "+256700000000")
	v.Set("status", "Success")
	v.Set("cost", "UGX 20.0000")
	v.Set("durationInMillis", "15320")
	v.Set("hopsCount", "3")
	v.Set("input", "1*2")
	v.Set("lastAppResponse", "END Thank you")
	return v
}

func TestNotificationFromValues(t *testing.T) {
	n, err := ussd.NotificationFromValues(notificationValues())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Status != ussd.StatusSuccess || !n.Succeeded() {
		t.Fatalf("unexpected status %q", n.Status)
	}
	if n.HopsCount != 3 {
		t.Fatalf("HopsCount = %d, want 3", n.HopsCount)
	}
	if n.Duration() != 15320*time.Millisecond {
		t.Fatalf("Duration() = %s", n.Duration())
	}
	if n.ErrorMessage != nil {
		t.Fatalf("expected absent error message, got %q", *n.ErrorMessage)
	}
	if n.Network().Name() != "MTN Uganda" {
		t.Fatalf("unexpected network %q", n.Network().Name())
	}
}

func TestNotificationErrorMessagePresence(t *testing.T) {
	v := notificationValues()
	v.Set("status", "Failed")
	v.Set("errorMessage", "")

	n, err := ussd.NotificationFromValues(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ErrorMessage == nil {
		t.Fatalf("expected present-but-empty error message")
	}
	if *n.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", *n.ErrorMessage)
	}
}

func TestNotificationRejectsMalformedFields(t *testing.T) {
	cases := map[string]func(url.Values){
		"status":    func(v url.Values) { v.Set("status", "Done") },
		"hopsCount": func(v url.Values) { v.Set("hopsCount", "three") },
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			v := notificationValues()
			mutate(v)
			if _, err := ussd.NotificationFromValues(v); !errors.Is(err, ussd.ErrInvalidNotification) {
				t.Fatalf("expected ErrInvalidNotification, got %v", err)
			}
		})
	}
}

func TestNotificationDurationFallback(t *testing.T) {
	n := ussd.Notification{DurationInMillis: "n/a"}
	if n.Duration() != 0 {
		t.Fatalf("expected zero duration for unparseable value")
	}
}
