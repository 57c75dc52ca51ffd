// Package palette drives an external dmenu-style launcher (rofi, fuzzel,
// wofi or dmenu) to pick a window or a command.
package palette

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the launcher closes without a selection.
var ErrCancelled = errors.New("palette cancelled")

// Item is one row of the launcher.
type Item struct {
	Label string
	// Action is the command line sent to the daemon when the row is picked.
	Action    string
	Icon      string
	Meta      string // extra search keywords
	IsHeader  bool
	IsDivider bool
	IsActive  bool
}

// Selectable reports whether picking the row does anything.
func (i Item) Selectable() bool {
	return !i.IsHeader && !i.IsDivider && i.Action != ""
}

// Capabilities describes what a launcher can render.
type Capabilities struct {
	Icons         bool
	Markup        bool
	NonSelectable bool
	// IndexOutput launchers print the selected row index instead of its text.
	IndexOutput bool
	MessageBar  bool
	RowStates   bool
}

// Backend shows items and returns the picked one.
type Backend interface {
	Show(prompt string, items []Item, message string) (Item, error)
	Capabilities() Capabilities
}

// launchers in detection order.
var launchers = []string{"rofi", "fuzzel", "wofi", "dmenu"}

// DetectBackend returns the first launcher found in PATH.
func DetectBackend() (string, error) {
	for _, name := range launchers {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no launcher found in PATH (looked for: %s)", strings.Join(launchers, ", "))
}

// NewBackend returns the named launcher; "" and "auto" detect one.
func NewBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		detected, err := DetectBackend()
		if err != nil {
			return nil, err
		}
		name = detected
	}
	b, ok := newLauncher(name)
	if !ok {
		return nil, fmt.Errorf("unknown launcher %q (expected: auto, %s)", name, strings.Join(launchers, ", "))
	}
	if _, err := exec.LookPath(b.command); err != nil {
		return nil, fmt.Errorf("launcher %q not found in PATH", name)
	}
	return b, nil
}
