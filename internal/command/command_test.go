package command

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		subject Subject
		action  string
		args    []string
	}{
		{"window focus next", Window, "focus", []string{"next"}},
		{"WINDOW Focus PREV", Window, "focus", []string{"prev"}},
		{"window close", Window, "close", nil},
		{"  window   swap   next  ", Window, "swap", []string{"next"}},
		{"window toggle-monocle", Window, "toggle-monocle", nil},
		{"window focus-id 0x1a00003", Window, "focus-id", []string{"0x1a00003"}},
		{"window resize grow 10", Window, "resize", []string{"grow", "10"}},
		{"window split v", Window, "split", []string{"v"}},
		{"workspace switch 2", Workspace, "switch", []string{"2"}},
		{`monitor focus "next"`, Monitor, "focus", []string{"next"}},
		{"monitor list", Monitor, "list", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.line, err)
			}
			if cmd.Subject != tt.subject || cmd.Action != tt.action {
				t.Fatalf("got %s %s, want %s %s", cmd.Subject, cmd.Action, tt.subject, tt.action)
			}
			if len(cmd.Args) != len(tt.args) {
				t.Fatalf("args = %q, want %q", cmd.Args, tt.args)
			}
			for i := range tt.args {
				if cmd.Args[i] != tt.args[i] {
					t.Fatalf("args = %q, want %q", cmd.Args, tt.args)
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		line   string
		reason Reason
	}{
		{"", Malformed},
		{"   ", Malformed},
		{`window focus "next`, Malformed},
		{"window", UnknownCommand},
		{"desk focus next", UnknownCommand},
		{"window fly", UnknownCommand},
		{"workspace close", UnknownCommand},
		{"window focus", BadArgument},
		{"window focus sideways", BadArgument},
		{"window close now", BadArgument},
		{"window focus-id abc", BadArgument},
		{"window resize grow 0", BadArgument},
		{"window resize grow lots", BadArgument},
		{"workspace switch two", BadArgument},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Parse(tt.line)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want %s", tt.line, tt.reason)
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("error %T is not *Error", err)
			}
			if cerr.Reason != tt.reason {
				t.Fatalf("reason = %s, want %s (%v)", cerr.Reason, tt.reason, err)
			}
		})
	}
}

func TestErrorText(t *testing.T) {
	err := Errorf(NotALeaf, "node %d is a split", 4)
	if got := err.Error(); got != "NotALeaf: node 4 is a split" {
		t.Fatalf("Error() = %q", got)
	}
	if got := (&Error{Reason: UnknownCommand}).Error(); got != "UnknownCommand" {
		t.Fatalf("Error() = %q", got)
	}
	if ReasonOf(errors.New("boom")) != Internal {
		t.Fatalf("plain errors should map to Internal")
	}
}

func TestParseWindowID(t *testing.T) {
	for in, want := range map[string]uint32{"42": 42, "0x2a": 42, "0X2A": 42} {
		got, err := ParseWindowID(in)
		if err != nil || got != want {
			t.Fatalf("ParseWindowID(%q) = %d, %v", in, got, err)
		}
	}
}

func TestFormatWindowIDRoundTrips(t *testing.T) {
	id := uint32(0x1c00007)
	got, err := ParseWindowID(FormatWindowID(id))
	if err != nil || got != id {
		t.Fatalf("round trip of 0x%x = %d, %v", id, got, err)
	}
}
