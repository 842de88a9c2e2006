// Package keypad models the on-screen key grid shown in the Keypad overlay
// phase. The built-in layout is a 5-row laptop keyboard; a custom layout can
// be loaded from a YAML file.
package keypad

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Key is a single key cell. Width is a multiplier over the standard key size;
// Action marks non-character keys (Tab, Enter, Shift, ...).
type Key struct {
	Label  string  `yaml:"label" json:"label"`
	Code   string  `yaml:"code" json:"code"`
	Width  float64 `yaml:"width,omitempty" json:"width"`
	Action bool    `yaml:"action,omitempty" json:"action"`
}

// Layout is the full key grid.
type Layout struct {
	Rows [][]Key `yaml:"rows" json:"rows"`
}

// Default returns the built-in 5-row QWERTY layout.
func Default() Layout {
	chars := func(s string) []Key {
		keys := make([]Key, 0, len(s))
		for _, c := range s {
			keys = append(keys, Key{Label: string(c), Code: string(c), Width: 1})
		}
		return keys
	}
	action := func(label, code string, width float64) Key {
		return Key{Label: label, Code: code, Width: width, Action: true}
	}

	rows := [][]Key{
		append(chars("`1234567890-="), action("⌫", "backspace", 2.0)),
		append([]Key{action("Tab", "tab", 1.5)}, chars("qwertyuiop[]\\")...),
		append(append([]Key{action("Caps", "capslock", 1.8)}, chars("asdfghjkl;'")...), action("Enter", "enter", 2.2)),
		append(append([]Key{action("Shift", "shift", 2.3)}, chars("zxcvbnm,./")...), action("Shift", "shift", 2.3)),
		{
			action("Ctrl", "ctrl", 1.5), action("Win", "win", 1.5), action("Alt", "alt", 1.5),
			{Label: "SPACE", Code: "space", Width: 6},
			action("Alt", "alt", 1.5), action("Fn", "fn", 1.5), action("Ctrl", "ctrl", 1.5),
		},
	}
	return Layout{Rows: rows}
}

// Load reads a layout from a YAML file. A missing file falls back to the
// built-in layout; a malformed one is an error.
func Load(path string) (Layout, error) {
	if path == "" {
		return Default(), nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Layout{}, fmt.Errorf("failed to read keypad layout %q: %w", path, err)
	}

	var layout Layout
	if err := yaml.Unmarshal(contents, &layout); err != nil {
		return Layout{}, fmt.Errorf("failed to parse keypad layout %q: %w", path, err)
	}
	if err := layout.validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid keypad layout %q: %w", path, err)
	}
	layout.normalize()
	return layout, nil
}

// HasKey reports whether code exists in the layout.
func (l Layout) HasKey(code string) bool {
	for _, row := range l.Rows {
		for _, key := range row {
			if key.Code == code {
				return true
			}
		}
	}
	return false
}

func (l Layout) validate() error {
	if len(l.Rows) == 0 {
		return errors.New("layout has no rows")
	}
	for i, row := range l.Rows {
		if len(row) == 0 {
			return fmt.Errorf("row %d is empty", i+1)
		}
		for j, key := range row {
			if key.Code == "" {
				return fmt.Errorf("row %d key %d has no code", i+1, j+1)
			}
		}
	}
	return nil
}

func (l *Layout) normalize() {
	for i := range l.Rows {
		for j := range l.Rows[i] {
			if l.Rows[i][j].Width <= 0 {
				l.Rows[i][j].Width = 1
			}
			if l.Rows[i][j].Label == "" {
				l.Rows[i][j].Label = l.Rows[i][j].Code
			}
		}
	}
}
