package flow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/flow"
	"github.com/example/africastalking-go/internal/session"
	"github.com/example/africastalking-go/ussd"
)

const testMenu = `
invalid: "Invalid"
root:
  title: "Main"
  options:
    - key: "1"
      label: "Balance"
      message: "Balance for {phoneNumber}: KES 10"
    - key: "2"
      label: "Join"
      prompt: "Name?"
      store: name
      next:
        message: "Welcome {name}"
    - key: "3"
      label: "More"
      options:
        - key: "1"
          label: "Help"
          message: "Call 100"
`

func newEngine(t *testing.T, store session.Store) *flow.Engine {
	t.Helper()
	menu, err := flow.Load(strings.NewReader(testMenu))
	if err != nil {
		t.Fatalf("load menu: %v", err)
	}
	eng, err := flow.NewEngine(menu, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func TestEngineNavigation(t *testing.T) {
	eng := newEngine(t, nil)

	cases := []struct {
		text string
		want string
	}{
		{"", "CON Main\n1. Balance\n2. Join\n3. More"},
		{"1", "END Balance for +254711000000: KES 10"},
		{"2", "CON Name?"},
		{"2*Amina", "END Welcome Amina"},
		{"3", "CON More\n1. Help"},
		{"3*1", "END Call 100"},
		{"9", "END Invalid"},
		{"1*1", "END Invalid"},
		{"3*7", "END Invalid"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run("text_"+tc.text, func(t *testing.T) {
			req := ussd.NewRequest("ATUid_1", "*384#", "+254711000000", tc.text, "63902")
			resp, err := eng.HandleUSSD(context.Background(), req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := resp.String(); got != tc.want {
				t.Fatalf("HandleUSSD(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestEngineRecordsSession(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	eng := newEngine(t, store)
	ctx := context.Background()

	for _, text := range []string{"", "2", "2*Amina"} {
		req := ussd.NewRequest("ATUid_9", "*384#", "+254711000000", text, "63902")
		if _, err := eng.HandleUSSD(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	s, err := store.Get(ctx, "ATUid_9")
	if err != nil {
		t.Fatalf("expected stored session: %v", err)
	}
	if s.Hops != 3 || s.Data["name"] != "Amina" || s.LastResponse != "END Welcome Amina" {
		t.Fatalf("unexpected session %+v", s)
	}

	if err := eng.HandleNotification(ctx, ussd.Notification{SessionID: "ATUid_9"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, "ATUid_9"); err != session.ErrNotFound {
		t.Fatalf("expected session to be cleared, got %v", err)
	}
}

func TestLoadRejectsInvalidMenus(t *testing.T) {
	cases := map[string]string{
		"no root":       `invalid: "x"`,
		"duplicate key": "root:\n  title: t\n  options:\n    - {key: \"1\", message: a}\n    - {key: \"1\", message: b}\n",
		"prompt store":  "root:\n  prompt: p\n  next: {message: m}\n",
		"prompt next":   "root:\n  prompt: p\n  store: s\n",
		"two kinds":     "root:\n  message: m\n  prompt: p\n  store: s\n  next: {message: m}\n",
		"unknown field": "root:\n  mesage: m\n",
		"menu action":   "root:\n  title: t\n  action: a\n  options:\n    - {key: \"1\", message: a}\n",
	}
	for name, doc := range cases {
		if _, err := flow.Load(strings.NewReader(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultMenu(t *testing.T) {
	eng, err := flow.NewEngine(flow.Default(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := eng.HandleUSSD(context.Background(), ussd.NewRequest("s", "*384#", "+254711000000", "1*2", "63902"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.String() != "END You are on Safaricom Kenya." {
		t.Fatalf("unexpected response %q", resp.String())
	}
}

func TestEngineRunsActions(t *testing.T) {
	var (
		calls    int
		gotName  string
		gotPhone string
	)
	eng, err := flow.NewEngine(flow.Default(), nil, zerolog.Nop(),
		flow.WithAction("registered", func(_ context.Context, req ussd.Request, data map[string]string) error {
			calls++
			gotName = data["name"]
			gotPhone = req.PhoneNumber
			return nil
		}),
		flow.WithAction("callback", func(context.Context, ussd.Request, map[string]string) error {
			return errors.New("gateway down")
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	for _, text := range []string{"2", "2*Amina"} {
		if _, err := eng.HandleUSSD(ctx, ussd.NewRequest("s", "*384#", "+254711000000", text, "63902")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected no action before the final screen, got %d", calls)
	}

	resp, err := eng.HandleUSSD(ctx, ussd.NewRequest("s", "*384#", "+254711000000", "2*Amina*Nakuru", "63902"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.String() != "END Thank you Amina from Nakuru. You are now registered." {
		t.Fatalf("unexpected response %q", resp.String())
	}
	if calls != 1 || gotName != "Amina" || gotPhone != "+254711000000" {
		t.Fatalf("unexpected action call: calls=%d name=%q phone=%q", calls, gotName, gotPhone)
	}

	resp, err = eng.HandleUSSD(ctx, ussd.NewRequest("s", "*384#", "+254711000000", "3", "63902"))
	if err != nil || !resp.IsEnding() {
		t.Fatalf("expected failing action not to change the reply, got %q (%v)", resp.String(), err)
	}
}
