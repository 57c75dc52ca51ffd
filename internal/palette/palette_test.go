package palette

import (
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/tilewm/internal/ipc"
)

func rofi(t *testing.T) *launcher {
	t.Helper()
	l, ok := newLauncher("rofi")
	if !ok {
		t.Fatal("rofi launcher missing")
	}
	return l
}

func TestRofiFormatItemUsesSingleNullSeparator(t *testing.T) {
	out := rofi(t).formatItem(Item{Label: "Header", IsHeader: true, Icon: "folder", Meta: "meta"})
	if got := strings.Count(out, "\x00"); got != 1 {
		t.Fatalf("expected exactly 1 NUL separator, got %d (%q)", got, out)
	}
	if !strings.Contains(out, "<b>Header</b>\x00nonselectable\x1ftrue") {
		t.Fatalf("expected bold nonselectable header, got %q", out)
	}
	if !strings.Contains(out, "icon\x1ffolder") || !strings.Contains(out, "meta\x1fmeta") {
		t.Fatalf("expected icon and meta attributes, got %q", out)
	}
}

func TestRofiFormatItemEscapesMarkup(t *testing.T) {
	out := rofi(t).formatItem(Item{Label: "a <b> & c", Action: "window close"})
	if out != "a &lt;b&gt; &amp; c" {
		t.Fatalf("formatItem() = %q", out)
	}
}

func TestRofiBuildArgsHighlightsActiveRow(t *testing.T) {
	l := rofi(t)
	_, active := l.formatInput([]Item{
		{Label: "Workspace 1", IsHeader: true, IsActive: true},
		{Label: "a", Action: "window focus-id 0x1"},
		{Label: "b", Action: "window focus-id 0x2", IsActive: true},
	})
	args := strings.Join(l.buildArgs("tilewm", "2 windows", active), " ")
	for _, want := range []string{"-format i", "-no-custom", "-a 2", "-selected-row 2", "-mesg 2 windows"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args %q missing %q", args, want)
		}
	}
}

func TestDmenuDisambiguatesDuplicateLabels(t *testing.T) {
	l, _ := newLauncher("dmenu")
	items := []Item{
		{Label: "XTerm", Action: "window focus-id 0x1"},
		{Label: "XTerm", Action: "window focus-id 0x2"},
	}
	input, _ := l.formatInput(items)
	if input != "XTerm\nXTerm (2)" {
		t.Fatalf("input = %q", input)
	}
	got, err := l.parseSelection("XTerm (2)", items)
	if err != nil || got.Action != "window focus-id 0x2" {
		t.Fatalf("parseSelection() = %+v, %v", got, err)
	}
}

func TestParseSelectionByIndex(t *testing.T) {
	l, _ := newLauncher("fuzzel")
	items := []Item{{Label: "a", Action: "x"}, {Label: "b", Action: "y"}}
	if got, err := l.parseSelection("1", items); err != nil || got.Action != "y" {
		t.Fatalf("parseSelection(1) = %+v, %v", got, err)
	}
	if _, err := l.parseSelection("5", items); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestNewBackendRejectsUnknown(t *testing.T) {
	if _, err := NewBackend("wmenu"); err == nil {
		t.Fatal("expected error for unknown launcher")
	}
}

func TestWindowItemsGroupsByWorkspace(t *testing.T) {
	items := WindowItems([]ipc.WindowEntry{
		{ID: 3, Output: 0, Workspace: 2, Class: "Firefox"},
		{ID: 1, Output: 0, Workspace: 1, Class: "XTerm", Focused: true},
		{ID: 2, Output: 0, Workspace: 1, Floating: true},
	})
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	want := []string{
		"Workspace 1 (output 0)",
		"XTerm  0x1",
		"window  0x2  (floating)",
		"Workspace 2 (output 0)",
		"Firefox  0x3",
	}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("labels = %q, want %q", labels, want)
	}
	if items[1].Action != "window focus-id 0x1" || !items[1].IsActive {
		t.Fatalf("focused row = %+v", items[1])
	}
}

func TestCommandItemsMergesChords(t *testing.T) {
	items := CommandItems(map[string]string{
		"Mod4-j":   "window focus next",
		"Mod4-Tab": "window focus next",
		"Mod4-S-q": "window close",
	})
	if len(items) != 3 || !items[0].IsHeader {
		t.Fatalf("items = %+v", items)
	}
	if items[1].Action != "window close" || items[2].Label != "window focus next  [Mod4-Tab, Mod4-j]" {
		t.Fatalf("items = %+v", items)
	}
}

type scriptedBackend struct {
	picks []int
	shown int
}

func (b *scriptedBackend) Show(prompt string, items []Item, message string) (Item, error) {
	if b.shown >= len(b.picks) {
		return Item{}, ErrCancelled
	}
	idx := b.picks[b.shown]
	b.shown++
	return items[idx], nil
}

func (b *scriptedBackend) Capabilities() Capabilities { return Capabilities{} }

type fakeDaemon struct {
	sent []string
}

func (f *fakeDaemon) Send(line string) (ipc.Reply, error) {
	f.sent = append(f.sent, line)
	if line == "window list" {
		return ipc.ParseReply(`OK:[{"id":7,"output":0,"workspace":1,"class":"XTerm"}]`)
	}
	return ipc.ParseReply("OK")
}

func TestSwitcherSendsPickedCommand(t *testing.T) {
	d := &fakeDaemon{}
	// First pick lands on the header and is re-shown.
	b := &scriptedBackend{picks: []int{0, 1}}
	sent, err := NewSwitcher(d, b).Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent != "window focus-id 0x7" || b.shown != 2 {
		t.Fatalf("sent %q after %d shows", sent, b.shown)
	}
	if d.sent[len(d.sent)-1] != "window focus-id 0x7" {
		t.Fatalf("daemon saw %q", d.sent)
	}
}

func TestSwitcherCancel(t *testing.T) {
	_, err := NewSwitcher(&fakeDaemon{}, &scriptedBackend{}).Run(map[string]string{"Mod4-q": "window close"})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run() = %v, want ErrCancelled", err)
	}
}
