// Package speech voices phrases by running an external TTS command
// (espeak-ng, espeak or say). Calls are serialized so phrases never talk over
// each other; a slow or missing TTS binary never blocks the overlay core,
// which invokes Speak fire-and-forget.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CommandSpeaker implements ports.Speaker with a child process per phrase.
type CommandSpeaker struct {
	command string
	timeout time.Duration
	log     *zap.Logger

	mu sync.Mutex
}

// NewCommandSpeaker returns a speaker using command.
func NewCommandSpeaker(command string, log *zap.Logger) *CommandSpeaker {
	if command == "" {
		command = "espeak-ng"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandSpeaker{command: command, timeout: 10 * time.Second, log: log}
}

// Speak voices phrase, waiting for any in-flight phrase to finish first.
func (s *CommandSpeaker) Speak(ctx context.Context, phrase string) error {
	if phrase == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.command, phrase)
	if err := cmd.Run(); err != nil {
		s.log.Debug("speech command failed", zap.String("command", s.command), zap.Error(err))
		return fmt.Errorf("failed to speak phrase: %w", err)
	}
	return nil
}
