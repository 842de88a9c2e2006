package speech

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tts.sh")
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestSpeakRunsCommandWithPhrase(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "spoken.txt")
	script := writeScript(t, "#!/usr/bin/env bash\nprintf '%s' \"$1\" >> "+out+"\n")
	s := NewCommandSpeaker(script, nil)

	if err := s.Speak(context.Background(), "Listening"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	contents, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected phrase recorded: %v", err)
	}
	if string(contents) != "Listening" {
		t.Fatalf("unexpected phrase: %q", contents)
	}
}

func TestSpeakEmptyPhraseIsNoop(t *testing.T) {
	t.Parallel()

	s := NewCommandSpeaker("/nonexistent/tts", nil)
	if err := s.Speak(context.Background(), ""); err != nil {
		t.Fatalf("empty phrase must not run anything: %v", err)
	}
}

func TestSpeakMissingCommandFails(t *testing.T) {
	t.Parallel()

	s := NewCommandSpeaker("/nonexistent/tts", nil)
	err := s.Speak(context.Background(), "Listening")
	if err == nil {
		t.Fatalf("expected error for missing command")
	}
	if !strings.Contains(err.Error(), "failed to speak phrase") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSpeakSerializesPhrases(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "spoken.txt")
	script := writeScript(t, "#!/usr/bin/env bash\nprintf '%s\\n' \"$1\" >> "+out+"\n")
	s := NewCommandSpeaker(script, nil)

	var wg sync.WaitGroup
	for _, phrase := range []string{"one", "two", "three", "four"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_ = s.Speak(context.Background(), p)
		}(phrase)
	}
	wg.Wait()

	contents, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected phrases recorded: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 complete lines, got %q", contents)
	}
}
