package commands

import (
	"context"
	"errors"
	"testing"
)

type fakeExecutor struct {
	opened  []string
	queries []string
	typed   []string
	fail    bool
}

func (f *fakeExecutor) OpenApp(_ context.Context, command string) error {
	if f.fail {
		return errors.New("spawn failed")
	}
	f.opened = append(f.opened, command)
	return nil
}

func (f *fakeExecutor) Search(_ context.Context, query string) error {
	if f.fail {
		return errors.New("spawn failed")
	}
	f.queries = append(f.queries, query)
	return nil
}

func (f *fakeExecutor) TypeText(_ context.Context, text string) error {
	if f.fail {
		return errors.New("spawn failed")
	}
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeExecutor) PressKey(context.Context, string) error { return nil }

func TestParse(t *testing.T) {
	t.Parallel()

	p := New()
	cases := map[string]Intent{
		"open firefox":          {Kind: IntentOpenApp, Arg: "firefox"},
		"Open Firefox":          {Kind: IntentOpenApp, Arg: "firefox"},
		"  open firefox  ":      {Kind: IntentOpenApp, Arg: "firefox"},
		"search cute cats":      {Kind: IntentSearch, Arg: "cute cats"},
		"google weather berlin": {Kind: IntentSearch, Arg: "weather berlin"},
		"type hello world":      {Kind: IntentType, Arg: "hello world"},
		"write hello":           {Kind: IntentType, Arg: "hello"},
		"show the keypad":       {Kind: IntentKeypad},
		"keypad":                {Kind: IntentKeypad},
		"mumble mumble":         {Kind: IntentHeard, Arg: "mumble mumble"},
		"":                      {Kind: IntentHeard, Arg: ""},
	}
	for text, want := range cases {
		text := text
		want := want
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			if got := p.Parse(text); got != want {
				t.Fatalf("parse %q: expected %+v, got %+v", text, want, got)
			}
		})
	}
}

func TestExecuteOpenAppMapsKnownNames(t *testing.T) {
	t.Parallel()

	p := New()
	exec := &fakeExecutor{}

	feedback := p.Execute(context.Background(), Intent{Kind: IntentOpenApp, Arg: "vscode"}, exec)
	if feedback != "Opening vscode..." {
		t.Fatalf("unexpected feedback %q", feedback)
	}
	if len(exec.opened) != 1 || exec.opened[0] != "code" {
		t.Fatalf("expected mapped launch command, got %+v", exec.opened)
	}

	// Unknown names pass through as the command.
	p.Execute(context.Background(), Intent{Kind: IntentOpenApp, Arg: "firefox"}, exec)
	if exec.opened[1] != "firefox" {
		t.Fatalf("expected verbatim command, got %+v", exec.opened)
	}
}

func TestExecuteFeedbackText(t *testing.T) {
	t.Parallel()

	p := New()
	exec := &fakeExecutor{}
	cases := map[string]struct {
		intent Intent
		want   string
	}{
		"search": {Intent{Kind: IntentSearch, Arg: "cats"}, "Searching: cats"},
		"type":   {Intent{Kind: IntentType, Arg: "hi"}, "Typed: hi"},
		"keypad": {Intent{Kind: IntentKeypad}, "Opening Keypad..."},
		"heard":  {Intent{Kind: IntentHeard, Arg: "mumble"}, "Heard: mumble"},
	}
	for name, tc := range cases {
		if got := p.Execute(context.Background(), tc.intent, exec); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}

func TestExecuteFailuresBecomeFeedback(t *testing.T) {
	t.Parallel()

	p := New()
	exec := &fakeExecutor{fail: true}

	cases := map[string]struct {
		intent Intent
		want   string
	}{
		"open":   {Intent{Kind: IntentOpenApp, Arg: "firefox"}, "Failed to open firefox"},
		"search": {Intent{Kind: IntentSearch, Arg: "cats"}, "Search failed: cats"},
		"type":   {Intent{Kind: IntentType, Arg: "hi"}, "Typing failed"},
	}
	for name, tc := range cases {
		if got := p.Execute(context.Background(), tc.intent, exec); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}

func TestKeypadIntentNotExecuted(t *testing.T) {
	t.Parallel()

	p := New()
	exec := &fakeExecutor{}
	p.Execute(context.Background(), Intent{Kind: IntentKeypad}, exec)
	if len(exec.opened)+len(exec.queries)+len(exec.typed) != 0 {
		t.Fatalf("keypad intent must not spawn anything")
	}
}
