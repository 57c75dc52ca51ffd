// Package tui is a live terminal dashboard for a running window manager.
package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/ipc"
)

// Sender delivers one command line to the daemon.
type Sender interface {
	Send(line string) (ipc.Reply, error)
}

// Run shows the dashboard until the user quits.
func Run(daemon Sender, interval time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("dashboard requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	_, err := tea.NewProgram(newModel(daemon, interval), tea.WithAltScreen()).Run()
	return err
}

type snapshot struct {
	windows    []ipc.WindowEntry
	workspaces []ipc.WorkspaceEntry
	monitors   []ipc.MonitorEntry
}

type snapshotMsg struct {
	snap snapshot
	err  error
}

type tickMsg time.Time

type actionMsg struct {
	err error
}

type model struct {
	daemon   Sender
	interval time.Duration

	activeTab Tab
	selected  int
	snap      snapshot
	connected bool
	lastError string

	width  int
	height int
}

func newModel(daemon Sender, interval time.Duration) model {
	if interval <= 0 {
		interval = time.Second
	}
	return model{daemon: daemon, interval: interval}
}

func (m model) fetch() tea.Cmd {
	daemon := m.daemon
	return func() tea.Msg {
		var snap snapshot
		for _, q := range []struct {
			line string
			out  any
		}{
			{"window list", &snap.windows},
			{"workspace list", &snap.workspaces},
			{"monitor list", &snap.monitors},
		} {
			reply, err := daemon.Send(q.line)
			if err == nil {
				err = reply.Decode(q.out)
			}
			if err != nil {
				return snapshotMsg{err: err}
			}
		}
		return snapshotMsg{snap: snap}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// run sends lines in order, stopping at the first failure.
func (m model) run(lines ...string) tea.Cmd {
	daemon := m.daemon
	return func() tea.Msg {
		for _, line := range lines {
			reply, err := daemon.Send(line)
			if err == nil {
				err = reply.Err()
			}
			if err != nil {
				return actionMsg{err: err}
			}
		}
		return actionMsg{}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case snapshotMsg:
		if msg.err != nil {
			m.connected = false
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.connected = true
		m.lastError = ""
		m.snap = msg.snap
		m.selected = clamp(m.selected, m.rows())
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.lastError = ""
		return m, m.fetch()

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		m.activeTab = (m.activeTab + 1) % tabCount
		m.selected = clamp(m.selected, m.rows())
	case "shift+tab":
		m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		m.selected = clamp(m.selected, m.rows())
	case "j", "down":
		m.selected = clamp(m.selected+1, m.rows())
	case "k", "up":
		m.selected = clamp(m.selected-1, m.rows())
	case "r":
		return m, m.fetch()
	case "enter":
		if line := m.activateLine(); line != "" {
			return m, m.run(line)
		}
	case "x":
		if m.activeTab == TabWindows && m.selected < len(m.snap.windows) {
			id := m.snap.windows[m.selected].ID
			return m, m.run(fmt.Sprintf("window focus-id %s", command.FormatWindowID(uint32(id))), "window close")
		}
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
			return m, m.run("workspace switch " + key)
		}
	}
	return m, nil
}

// activateLine is the command for enter on the selected row.
func (m model) activateLine() string {
	switch m.activeTab {
	case TabWindows:
		if m.selected < len(m.snap.windows) {
			return "window focus-id " + command.FormatWindowID(uint32(m.snap.windows[m.selected].ID))
		}
	case TabWorkspaces:
		if m.selected < len(m.snap.workspaces) {
			ws := m.snap.workspaces[m.selected]
			return fmt.Sprintf("workspace switch %d", ws.Index)
		}
	case TabMonitors:
		if m.selected < len(m.snap.monitors) {
			return fmt.Sprintf("monitor focus %d", m.snap.monitors[m.selected].ID)
		}
	}
	return ""
}

func (m model) rows() int {
	switch m.activeTab {
	case TabWindows:
		return len(m.snap.windows)
	case TabWorkspaces:
		return len(m.snap.workspaces)
	case TabMonitors:
		return len(m.snap.monitors)
	}
	return 0
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	statusBar := renderStatusBar(m.connected, len(m.snap.windows), len(m.snap.monitors), m.lastError, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.width)

	contentHeight := m.height - lipgloss.Height(statusBar) - lipgloss.Height(tabBar) - lipgloss.Height(helpBar)
	if contentHeight < 1 {
		contentHeight = 1
	}
	content := lipgloss.NewStyle().Width(m.width).Height(contentHeight).Render(m.renderRows())

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, tabBar, content, helpBar)
}

func (m model) renderRows() string {
	var lines []string
	switch m.activeTab {
	case TabWindows:
		for _, w := range m.snap.windows {
			state := "tiled"
			if w.Floating {
				state = "floating"
			}
			if !w.Mapped {
				state += ", hidden"
			}
			line := fmt.Sprintf("%-10s %-18s ws %d/%d  %4dx%-4d %s",
				command.FormatWindowID(uint32(w.ID)), orDash(w.Class), w.Output, w.Workspace,
				w.Geometry.Width, w.Geometry.Height, state)
			lines = append(lines, markFocused(line, w.Focused))
		}
	case TabWorkspaces:
		for _, ws := range m.snap.workspaces {
			line := fmt.Sprintf("output %d  workspace %d  %-12s %s",
				ws.Output, ws.Index, ws.Layout, pluralize(ws.Windows, "window"))
			lines = append(lines, markFocused(line, ws.Active))
		}
	case TabMonitors:
		for _, mon := range m.snap.monitors {
			line := fmt.Sprintf("%d %-10s %dx%d+%d+%d  usable %dx%d  workspace %d",
				mon.ID, mon.Name, mon.Bounds.Width, mon.Bounds.Height, mon.Bounds.X, mon.Bounds.Y,
				mon.Usable.Width, mon.Usable.Height, mon.ActiveWorkspace)
			lines = append(lines, markFocused(line, mon.Focused))
		}
	}
	if len(lines) == 0 {
		return dimStyle.Render("  nothing to show")
	}
	for i := range lines {
		if i == m.selected {
			lines[i] = selectedRowStyle.Render(lines[i])
		}
	}
	return strings.Join(lines, "\n")
}

func markFocused(line string, focused bool) string {
	if focused {
		return focusedStyle.Render("* ") + line
	}
	return "  " + line
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
