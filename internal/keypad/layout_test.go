package keypad

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLayoutShape(t *testing.T) {
	t.Parallel()

	l := Default()
	if len(l.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(l.Rows))
	}
	for _, code := range []string{"q", "a", "z", "1", "space", "backspace", "enter", "shift", "tab"} {
		if !l.HasKey(code) {
			t.Fatalf("expected default layout to contain %q", code)
		}
	}
	if l.HasKey("nosuchkey") {
		t.Fatalf("unexpected key reported present")
	}
}

func TestDefaultLayoutKeysWellFormed(t *testing.T) {
	t.Parallel()

	l := Default()
	if err := l.validate(); err != nil {
		t.Fatalf("default layout must validate: %v", err)
	}
	for i, row := range l.Rows {
		for j, key := range row {
			if key.Width <= 0 {
				t.Fatalf("row %d key %d has non-positive width", i+1, j+1)
			}
			if key.Label == "" {
				t.Fatalf("row %d key %d has no label", i+1, j+1)
			}
		}
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Parallel()

	l, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must fall back to default: %v", err)
	}
	if len(l.Rows) != 5 {
		t.Fatalf("expected default layout, got %d rows", len(l.Rows))
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	t.Parallel()

	l, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.HasKey("space") {
		t.Fatalf("expected default layout")
	}
}

func TestLoadCustomLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	contents := `rows:
  - - {label: "A", code: "a"}
    - {code: "b"}
  - - {label: "OK", code: "ok", width: 2, action: true}
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(l.Rows))
	}
	if l.Rows[0][1].Label != "b" {
		t.Fatalf("expected label defaulted to code, got %q", l.Rows[0][1].Label)
	}
	if l.Rows[0][0].Width != 1 {
		t.Fatalf("expected width defaulted to 1, got %v", l.Rows[0][0].Width)
	}
	if !l.Rows[1][0].Action || l.Rows[1][0].Width != 2 {
		t.Fatalf("expected action key preserved, got %+v", l.Rows[1][0])
	}
}

func TestLoadRejectsMalformedLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := map[string]string{
		"bad-yaml.yaml":  "rows: [not a row",
		"no-rows.yaml":   "rows: []",
		"empty-row.yaml": "rows:\n  - []\n",
		"no-code.yaml":   "rows:\n  - - {label: \"X\"}\n",
	}
	for name, contents := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
