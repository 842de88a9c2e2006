// Package commands turns recognized utterances into executable intents and the
// feedback text shown in the Action toast.
package commands

import (
	"context"
	"fmt"
	"strings"

	"airvoice/internal/ports"
)

// IntentKind classifies what a recognized utterance asks for.
type IntentKind string

const (
	IntentOpenApp IntentKind = "open_app"
	IntentSearch  IntentKind = "search"
	IntentType    IntentKind = "type"
	IntentKeypad  IntentKind = "keypad"
	IntentHeard   IntentKind = "heard"
)

// Intent is one parsed utterance.
type Intent struct {
	Kind IntentKind
	Arg  string
}

// IntentParser recognizes one utterance form. Parsers are tried in order; the
// first match wins.
type IntentParser interface {
	CanParse(text string) bool
	Parse(text string) Intent
}

// Processor parses utterances and executes the resulting intents.
type Processor struct {
	parsers []IntentParser
	apps    map[string]string
}

// New returns a processor with the built-in parsers and app name map.
func New() *Processor {
	return &Processor{
		parsers: defaultParsers(),
		apps:    defaultAppMap(),
	}
}

// Parse classifies an utterance. Unrecognized text becomes IntentHeard so every
// utterance has a defined outcome.
func (p *Processor) Parse(text string) Intent {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, parser := range p.parsers {
		if parser.CanParse(text) {
			return parser.Parse(text)
		}
	}
	return Intent{Kind: IntentHeard, Arg: text}
}

// Execute performs intent through exec and returns the toast feedback text.
// IntentKeypad is not executed here; the caller turns it into a keypad request
// signal. Execution failures produce failure feedback, never an error: the
// overlay core treats every command outcome as presentable.
func (p *Processor) Execute(ctx context.Context, intent Intent, exec ports.ActionExecutor) string {
	switch intent.Kind {
	case IntentOpenApp:
		command := intent.Arg
		if mapped, ok := p.apps[intent.Arg]; ok {
			command = mapped
		}
		if err := exec.OpenApp(ctx, command); err != nil {
			return fmt.Sprintf("Failed to open %s", intent.Arg)
		}
		return fmt.Sprintf("Opening %s...", intent.Arg)

	case IntentSearch:
		if err := exec.Search(ctx, intent.Arg); err != nil {
			return fmt.Sprintf("Search failed: %s", intent.Arg)
		}
		return fmt.Sprintf("Searching: %s", intent.Arg)

	case IntentType:
		if err := exec.TypeText(ctx, intent.Arg); err != nil {
			return "Typing failed"
		}
		return fmt.Sprintf("Typed: %s", intent.Arg)

	case IntentKeypad:
		return "Opening Keypad..."
	}
	return fmt.Sprintf("Heard: %s", intent.Arg)
}

func defaultParsers() []IntentParser {
	return []IntentParser{
		prefixParser{prefixes: []string{"open "}, kind: IntentOpenApp},
		prefixParser{prefixes: []string{"search ", "google "}, kind: IntentSearch},
		prefixParser{prefixes: []string{"type ", "write "}, kind: IntentType},
		keypadParser{},
	}
}

// prefixParser strips a verb prefix and keeps the remainder as the argument.
type prefixParser struct {
	prefixes []string
	kind     IntentKind
}

func (p prefixParser) CanParse(text string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func (p prefixParser) Parse(text string) Intent {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(text, prefix) {
			return Intent{Kind: p.kind, Arg: strings.TrimSpace(strings.TrimPrefix(text, prefix))}
		}
	}
	return Intent{Kind: IntentHeard, Arg: text}
}

type keypadParser struct{}

func (keypadParser) CanParse(text string) bool {
	return strings.Contains(text, "keypad")
}

func (keypadParser) Parse(string) Intent {
	return Intent{Kind: IntentKeypad}
}

func defaultAppMap() map[string]string {
	return map[string]string{
		"vscode":             "code",
		"visual studio code": "code",
		"notepad":            "notepad",
		"calculator":         "calc",
		"chrome":             "chrome",
		"edge":               "msedge",
		"explorer":           "explorer",
		"files":              "nautilus",
		"terminal":           "x-terminal-emulator",
		"settings":           "gnome-control-center",
		"spotify":            "spotify",
	}
}
