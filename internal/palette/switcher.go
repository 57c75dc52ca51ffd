package palette

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/ipc"
)

// Sender delivers one command line to the daemon.
type Sender interface {
	Send(line string) (ipc.Reply, error)
}

// WindowItems lists managed windows grouped under a header per workspace.
func WindowItems(windows []ipc.WindowEntry) []Item {
	sorted := make([]ipc.WindowEntry, len(windows))
	copy(sorted, windows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Output != sorted[j].Output {
			return sorted[i].Output < sorted[j].Output
		}
		return sorted[i].Workspace < sorted[j].Workspace
	})

	var items []Item
	type wsKey struct{ output, workspace int }
	var last *wsKey
	for _, w := range sorted {
		key := wsKey{w.Output, w.Workspace}
		if last == nil || *last != key {
			items = append(items, Item{
				Label:    fmt.Sprintf("Workspace %d (output %d)", w.Workspace, w.Output),
				IsHeader: true,
			})
			last = &key
		}
		id := command.FormatWindowID(uint32(w.ID))
		class := w.Class
		if class == "" {
			class = "window"
		}
		label := fmt.Sprintf("%s  %s", class, id)
		if w.Floating {
			label += "  (floating)"
		}
		items = append(items, Item{
			Label:    label,
			Action:   "window focus-id " + id,
			Icon:     strings.ToLower(w.Class),
			Meta:     strings.ToLower(w.Class),
			IsActive: w.Focused,
		})
	}
	return items
}

// CommandItems lists the distinct commands bound to hotkeys.
func CommandItems(bindings map[string]string) []Item {
	byCommand := make(map[string][]string)
	for chord, line := range bindings {
		byCommand[line] = append(byCommand[line], chord)
	}
	lines := make([]string, 0, len(byCommand))
	for line := range byCommand {
		lines = append(lines, line)
	}
	sort.Strings(lines)

	items := []Item{{Label: "Commands", IsHeader: true}}
	for _, line := range lines {
		chords := byCommand[line]
		sort.Strings(chords)
		items = append(items, Item{
			Label:  fmt.Sprintf("%s  [%s]", line, strings.Join(chords, ", ")),
			Action: line,
			Icon:   "system-run",
		})
	}
	return items
}

// Switcher builds the launcher rows from the daemon and runs the pick.
type Switcher struct {
	daemon  Sender
	backend Backend
}

// NewSwitcher returns a switcher showing rows through backend.
func NewSwitcher(daemon Sender, backend Backend) *Switcher {
	return &Switcher{daemon: daemon, backend: backend}
}

// Run shows the managed windows followed by the bound commands and sends
// the picked row's command. It returns the command sent.
func (s *Switcher) Run(bindings map[string]string) (string, error) {
	reply, err := s.daemon.Send("window list")
	if err != nil {
		return "", fmt.Errorf("tilewm daemon unavailable: %w", err)
	}
	var windows []ipc.WindowEntry
	if err := reply.Decode(&windows); err != nil {
		return "", err
	}

	items := WindowItems(windows)
	if len(bindings) > 0 {
		if len(items) > 0 {
			items = append(items, Item{Label: "────────", IsDivider: true})
		}
		items = append(items, CommandItems(bindings)...)
	}
	if len(items) == 0 {
		return "", errors.New("nothing to pick: no windows and no bindings")
	}

	for {
		picked, err := s.backend.Show("tilewm", items, fmt.Sprintf("%d windows", len(windows)))
		if err != nil {
			return "", err
		}
		// Launchers without non-selectable rows can return headers.
		if !picked.Selectable() {
			continue
		}
		if _, err := command.Parse(picked.Action); err != nil {
			return "", err
		}
		reply, err := s.daemon.Send(picked.Action)
		if err != nil {
			return "", err
		}
		return picked.Action, reply.Err()
	}
}
