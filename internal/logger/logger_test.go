package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/africastalking-go/internal/logger"
)

func TestNewSetsGlobalLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		"Warn":     zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}

	for input, want := range cases {
		input := input
		want := want
		t.Run("level_"+input, func(t *testing.T) {
			prev := zerolog.GlobalLevel()
			t.Cleanup(func() {
				zerolog.SetGlobalLevel(prev)
			})

			var buf bytes.Buffer
			if _, err := logger.New("production", input, &buf); err != nil {
				t.Fatalf("New returned error for level %q: %v", input, err)
			}

			if got := zerolog.GlobalLevel(); got != want {
				t.Fatalf("global level = %s, want %s", got, want)
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prev)
	})

	if _, err := logger.New("production", "not-a-level"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestComponentField(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prev)
	})

	var buf bytes.Buffer
	base, err := logger.New("production", "info", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log := logger.Component(base, "webhook")
	log.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if entry["component"] != "webhook" || entry["message"] != "hello" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
