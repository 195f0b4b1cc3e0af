package ivr_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/ivr"
	"github.com/example/africastalking-go/voice"
)

func strPtr(s string) *string { return &s }

func render(t *testing.T, h *ivr.Handler, cb voice.Callback) string {
	t.Helper()
	b, err := h.HandleVoice(context.Background(), cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func TestMenuFlow(t *testing.T) {
	h := ivr.New(ivr.Config{
		AgentNumber:          "+254722000000",
		RecordingCallbackURL: "https://example.com/recordings",
	}, zerolog.Nop())

	base := voice.Callback{IsActive: true, SessionID: "ATVId_1", CallerNumber: "+254711000000", DestinationNumber: "+254711082000"}

	cases := []struct {
		name   string
		digits *string
		rec    *string
		want   []string
	}{
		{"greeting", nil, nil, []string{`<GetDigits numDigits="1" finishOnKey="#" timeout="30">`, "Press 1"}},
		{"agent", strPtr("1"), nil, []string{`<Dial phoneNumbers="+254722000000" record="true" sequential="true" callerId="+254711082000">`}},
		{"voicemail", strPtr("2"), nil, []string{`<Record finishOnKey="#" maxLength="60" playBeep="true" trimSilence="true" callbackUrl="https://example.com/recordings">`}},
		{"invalid", strPtr("9"), nil, []string{"not a valid choice"}},
		{"recorded", nil, strPtr("https://cdn.example.com/r.mp3"), []string{"Thank you for calling"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cb := base
			cb.DTMFDigits = tc.digits
			cb.RecordingURL = tc.rec
			doc := render(t, h, cb)
			for _, want := range tc.want {
				if !strings.Contains(doc, want) {
					t.Fatalf("expected %q in %s", want, doc)
				}
			}
		})
	}
}

func TestAgentFallbackWithoutNumber(t *testing.T) {
	h := ivr.New(ivr.Config{}, zerolog.Nop())
	doc := render(t, h, voice.Callback{IsActive: true, SessionID: "s", CallerNumber: "+254711000000", DTMFDigits: strPtr("1")})

	if !strings.Contains(doc, "agents are busy") || !strings.Contains(doc, "<Record") {
		t.Fatalf("expected voicemail fallback, got %s", doc)
	}
	if strings.Contains(doc, "callbackUrl") {
		t.Fatalf("expected no callback url, got %s", doc)
	}
}
