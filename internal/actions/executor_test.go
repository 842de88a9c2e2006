package actions

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func writeScript(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if contents, err := os.ReadFile(path); err == nil {
			return string(contents)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
	return ""
}

func TestOpenAppLaunchesDetached(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "launched.txt")
	app := writeScript(t, "app.sh", "#!/usr/bin/env bash\necho started > "+out+"\n")
	e := NewSystemExecutor("", "", nil)

	if err := e.OpenApp(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := waitForFile(t, out); !strings.Contains(got, "started") {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestOpenAppMissingBinaryFails(t *testing.T) {
	t.Parallel()

	e := NewSystemExecutor("", "", nil)
	if err := e.OpenApp(context.Background(), "/nonexistent/app"); err == nil {
		t.Fatalf("expected launch error")
	}
}

func TestSearchEscapesQuery(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "opened.txt")
	opener := writeScript(t, "opener.sh", "#!/usr/bin/env bash\necho \"$1\" > "+out+"\n")
	e := NewSystemExecutor(opener, "", nil)

	if err := e.Search(context.Background(), "cute cats & dogs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := waitForFile(t, out)
	if !strings.Contains(got, "https://www.google.com/search?q=") {
		t.Fatalf("expected search url, got %q", got)
	}
	if strings.Contains(got, " & ") {
		t.Fatalf("query must be escaped, got %q", got)
	}
}

func TestSearchReapsOpener(t *testing.T) {
	t.Parallel()

	pidFile := filepath.Join(t.TempDir(), "pid.txt")
	opener := writeScript(t, "opener.sh", "#!/usr/bin/env bash\necho $$ > "+pidFile+"\n")
	e := NewSystemExecutor(opener, "", nil)

	if err := e.Search(context.Background(), "cats"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(waitForFile(t, pidFile)))
	if err != nil {
		t.Fatalf("bad pid file: %v", err)
	}

	// Once the exited opener is reaped, signal 0 stops reaching it.
	proc, err := os.FindProcess(pid)
	if err != nil {
		t.Fatalf("find process: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if proc.Signal(syscall.Signal(0)) != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("opener process %d was never reaped", pid)
}

func TestTypeTextUsesTypingTool(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "typed.txt")
	tool := writeScript(t, "xdotool.sh", "#!/usr/bin/env bash\necho \"$@\" > "+out+"\n")
	e := NewSystemExecutor("", tool, nil)

	if err := e.TypeText(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := waitForFile(t, out)
	if !strings.Contains(got, "type --delay 10 hello") {
		t.Fatalf("unexpected typing invocation: %q", got)
	}
}

func TestPressKeyUsesTypingTool(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "pressed.txt")
	tool := writeScript(t, "xdotool.sh", "#!/usr/bin/env bash\necho \"$@\" > "+out+"\n")
	e := NewSystemExecutor("", tool, nil)

	if err := e.PressKey(context.Background(), "enter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := waitForFile(t, out); !strings.Contains(got, "key enter") {
		t.Fatalf("unexpected press invocation: %q", got)
	}
}
