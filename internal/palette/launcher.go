package palette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

type launcherKind int

const (
	kindRofi launcherKind = iota
	kindFuzzel
	kindWofi
	kindDmenu
)

type launcher struct {
	command string
	kind    launcherKind
	caps    Capabilities
}

func newLauncher(name string) (*launcher, bool) {
	switch name {
	case "rofi":
		return &launcher{command: "rofi", kind: kindRofi, caps: Capabilities{
			Icons: true, Markup: true, NonSelectable: true,
			IndexOutput: true, MessageBar: true, RowStates: true,
		}}, true
	case "fuzzel":
		return &launcher{command: "fuzzel", kind: kindFuzzel, caps: Capabilities{
			Icons: true, IndexOutput: true,
		}}, true
	case "wofi":
		return &launcher{command: "wofi", kind: kindWofi, caps: Capabilities{
			Icons: true, Markup: true,
		}}, true
	case "dmenu":
		return &launcher{command: "dmenu", kind: kindDmenu}, true
	}
	return nil, false
}

func (l *launcher) Capabilities() Capabilities {
	return l.caps
}

func (l *launcher) Show(prompt string, items []Item, message string) (Item, error) {
	if len(items) == 0 {
		return Item{}, fmt.Errorf("palette: no items to show")
	}
	shown := make([]Item, len(items))
	copy(shown, items)

	input, active := l.formatInput(shown)
	cmd := exec.Command(l.command, l.buildArgs(prompt, message, active)...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	selection := strings.TrimSpace(string(out))
	if err != nil {
		if selection == "" && isCancelExit(err) {
			return Item{}, ErrCancelled
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Item{}, fmt.Errorf("%s failed: %s", l.command, msg)
		}
		return Item{}, fmt.Errorf("%s failed: %w", l.command, err)
	}
	if selection == "" {
		return Item{}, ErrCancelled
	}
	return l.parseSelection(selection, shown)
}

func (l *launcher) buildArgs(prompt, message string, active []int) []string {
	var args []string
	switch l.kind {
	case kindRofi:
		args = []string{"-dmenu", "-i", "-format", "i", "-no-custom"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		if l.caps.Markup {
			args = append(args, "-markup-rows")
		}
		if l.caps.Icons {
			args = append(args, "-show-icons")
		}
		if len(active) > 0 {
			args = append(args, "-a", formatIndices(active), "-selected-row", strconv.Itoa(active[0]))
		}
		if message != "" {
			args = append(args, "-mesg", message)
		}
	case kindFuzzel:
		args = []string{"--dmenu", "--index"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
	case kindWofi:
		args = []string{"--dmenu", "--allow-markup", "--allow-images"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
	case kindDmenu:
		args = []string{"-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
	}
	return args
}

// formatInput renders one line per item and returns the rows to highlight.
// Launchers that echo the label back get duplicate labels numbered.
func (l *launcher) formatInput(items []Item) (string, []int) {
	if !l.caps.IndexOutput {
		seen := make(map[string]int)
		for i := range items {
			if !items[i].Selectable() {
				continue
			}
			key := sanitizeLabel(items[i].Label)
			if n := seen[key]; n > 0 {
				items[i].Label = fmt.Sprintf("%s (%d)", key, n+1)
			}
			seen[key]++
		}
	}

	lines := make([]string, 0, len(items))
	var active []int
	for i, item := range items {
		lines = append(lines, l.formatItem(item))
		if l.caps.RowStates && item.IsActive && item.Selectable() {
			active = append(active, i)
		}
	}
	return strings.Join(lines, "\n"), active
}

func (l *launcher) formatItem(item Item) string {
	display := sanitizeLabel(item.Label)
	if l.caps.Markup {
		display = html.EscapeString(display)
		switch {
		case item.IsHeader:
			display = "<b>" + display + "</b>"
		case item.IsDivider:
			display = "<span foreground='#666666'>" + display + "</span>"
		}
	}
	if l.kind != kindRofi {
		return display
	}

	// Rofi row properties: one NUL, then key\x1fvalue pairs joined by \x1f.
	var attrs []string
	if !item.Selectable() && l.caps.NonSelectable {
		attrs = append(attrs, "nonselectable", "true")
	}
	if item.Icon != "" {
		attrs = append(attrs, "icon", sanitizeRofiField(item.Icon))
	}
	if item.Meta != "" {
		attrs = append(attrs, "meta", sanitizeRofiField(item.Meta))
	}
	if len(attrs) == 0 {
		return display
	}
	return display + "\x00" + strings.Join(attrs, "\x1f")
}

func (l *launcher) parseSelection(selection string, items []Item) (Item, error) {
	if l.caps.IndexOutput {
		if idx, err := strconv.Atoi(selection); err == nil {
			if idx < 0 || idx >= len(items) {
				return Item{}, fmt.Errorf("palette: index %d out of range", idx)
			}
			return items[idx], nil
		}
	}
	for _, item := range items {
		if sanitizeLabel(item.Label) == selection {
			return item, nil
		}
	}
	return Item{}, fmt.Errorf("palette: unknown selection %q", selection)
}

func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, "\r", " ")
	label = strings.ReplaceAll(label, "\n", " ")
	return strings.TrimSpace(label)
}

func sanitizeRofiField(value string) string {
	value = strings.ReplaceAll(value, "\x00", " ")
	value = strings.ReplaceAll(value, "\x1f", " ")
	return sanitizeLabel(value)
}

func formatIndices(indices []int) string {
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		parts = append(parts, strconv.Itoa(i))
	}
	return strings.Join(parts, ",")
}

// isCancelExit reports the launcher exit statuses for "nothing picked".
func isCancelExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	switch exitErr.ExitCode() {
	case 1, 130:
		return true
	}
	return false
}
