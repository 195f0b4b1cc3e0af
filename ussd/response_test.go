package ussd_test

import (
	"testing"

	"github.com/example/africastalking-go/ussd"
)

func TestResponseRendering(t *testing.T) {
	cases := []struct {
		name   string
		resp   ussd.Response
		want   string
		ending bool
	}{
		{name: "continue", resp: ussd.Continue("X"), want: "CON X"},
		{name: "end", resp: ussd.End("Y"), want: "END Y", ending: true},
		{name: "empty continue", resp: ussd.Continue(""), want: "CON "},
		{name: "multiline", resp: ussd.End("Thanks\nBye"), want: "END Thanks\nBye", ending: true},
		{name: "prefixed continue", resp: ussd.Continue("CON Menu"), want: "CON Menu"},
		{name: "prefixed end", resp: ussd.End("END Done"), want: "END Done", ending: true},
		{name: "opposite prefix", resp: ussd.End("CON Done"), want: "END Done", ending: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.resp.String(); got != tc.want {
				t.Fatalf("String() = %q, want %q", got, tc.want)
			}
			if string(tc.resp.Bytes()) != tc.want {
				t.Fatalf("Bytes() = %q, want %q", tc.resp.Bytes(), tc.want)
			}
			if tc.resp.IsEnding() != tc.ending || tc.resp.IsContinuing() == tc.ending {
				t.Fatalf("unexpected variant for %q", tc.want)
			}
		})
	}
}

func TestResponseMessageHasNoPrefix(t *testing.T) {
	if got := ussd.Continue("CON hello").Message(); got != "hello" {
		t.Fatalf("Message() = %q, want hello", got)
	}
	if got := ussd.End("plain").Message(); got != "plain" {
		t.Fatalf("Message() = %q, want plain", got)
	}
}

func TestMenuBuild(t *testing.T) {
	menu := ussd.NewMenu("Pick:").AddOption("1", "A").AddOption("2", "B")

	if got := menu.BuildContinue().String(); got != "CON Pick:\n1. A\n2. B" {
		t.Fatalf("BuildContinue() = %q", got)
	}
	if got := menu.BuildEnd().String(); got != "END Pick:\n1. A\n2. B" {
		t.Fatalf("BuildEnd() = %q", got)
	}
}

func TestMenuKeepsOrderAndDuplicates(t *testing.T) {
	menu := ussd.NewMenu("Choose").
		AddOptions(ussd.Option{Key: "2", Label: "Second"}, ussd.Option{Key: "1", Label: "First"}).
		AddOption("1", "Again")

	want := "Choose\n2. Second\n1. First\n1. Again"
	if got := menu.Text(); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
	if n := len(menu.Options()); n != 3 {
		t.Fatalf("expected 3 options, got %d", n)
	}
}

func TestMenuWithoutOptions(t *testing.T) {
	if got := ussd.NewMenu("Just a title").BuildEnd().String(); got != "END Just a title" {
		t.Fatalf("unexpected render %q", got)
	}
}
