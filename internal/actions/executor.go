// Package actions performs recognized voice commands on the host system:
// launching applications, opening web searches and injecting keystrokes
// through an external typing tool.
package actions

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"

	"go.uber.org/zap"
)

// SystemExecutor implements ports.ActionExecutor with child processes.
type SystemExecutor struct {
	opener     string
	typingTool string
	log        *zap.Logger
}

// NewSystemExecutor returns an executor. opener defaults to xdg-open and
// typingTool to xdotool.
func NewSystemExecutor(opener, typingTool string, log *zap.Logger) *SystemExecutor {
	if opener == "" {
		opener = "xdg-open"
	}
	if typingTool == "" {
		typingTool = "xdotool"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemExecutor{opener: opener, typingTool: typingTool, log: log}
}

// OpenApp launches command detached from the overlay process.
func (e *SystemExecutor) OpenApp(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %q: %w", command, err)
	}
	go func() { _ = cmd.Wait() }()
	e.log.Info("launched application", zap.String("command", command))
	return nil
}

// Search opens a web search for query in the default browser.
func (e *SystemExecutor) Search(ctx context.Context, query string) error {
	target := "https://www.google.com/search?q=" + url.QueryEscape(query)
	cmd := exec.CommandContext(ctx, e.opener, target)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open search: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// TypeText injects text into the focused window.
func (e *SystemExecutor) TypeText(ctx context.Context, text string) error {
	if err := exec.CommandContext(ctx, e.typingTool, "type", "--delay", "10", text).Run(); err != nil {
		return fmt.Errorf("failed to type text: %w", err)
	}
	return nil
}

// PressKey injects a single key press.
func (e *SystemExecutor) PressKey(ctx context.Context, code string) error {
	if err := exec.CommandContext(ctx, e.typingTool, "key", code).Run(); err != nil {
		return fmt.Errorf("failed to press key %q: %w", code, err)
	}
	return nil
}
