// Package command parses command-channel lines into structured commands.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Subject is the kind of thing a command acts on.
type Subject int

const (
	Window Subject = iota
	Workspace
	Monitor
)

func (s Subject) String() string {
	switch s {
	case Workspace:
		return "workspace"
	case Monitor:
		return "monitor"
	default:
		return "window"
	}
}

// Command is one parsed request.
type Command struct {
	Subject Subject
	Action  string
	Args    []string
}

func (c Command) String() string {
	parts := append([]string{c.Subject.String(), c.Action}, c.Args...)
	return strings.Join(parts, " ")
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Reason names why a command was rejected. It is the text after ERR: on the wire.
type Reason string

const (
	UnknownCommand  Reason = "UnknownCommand"
	Malformed       Reason = "Malformed"
	BadArgument     Reason = "BadArgument"
	NoFocus         Reason = "NoFocus"
	NotALeaf        Reason = "NotALeaf"
	NoSuchWindow    Reason = "NoSuchWindow"
	NoSuchWorkspace Reason = "NoSuchWorkspace"
	NoSuchMonitor   Reason = "NoSuchMonitor"
	DuplicateWindow Reason = "DuplicateWindow"
	ShuttingDown    Reason = "ShuttingDown"
	Internal        Reason = "Internal"
)

// Error is a rejected command. Rejection never mutates state.
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

// Errorf builds an *Error with a formatted detail.
func Errorf(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the reason from err, or Internal.
func ReasonOf(err error) Reason {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Reason
	}
	return Internal
}

type argKind int

const (
	argWord argKind = iota
	argInt
	argUint
)

// action describes the accepted arguments of one verb.
type action struct {
	min, max int
	kind     argKind
	choices  []string
}

var vocabulary = map[Subject]map[string]action{
	Window: {
		"focus":             {min: 1, max: 1, choices: []string{"next", "prev", "parent"}},
		"focus-id":          {min: 1, max: 1, kind: argUint},
		"focus-node":        {min: 1, max: 1, kind: argInt},
		"close":             {},
		"swap":              {min: 1, max: 1, choices: []string{"next", "prev"}},
		"toggle-floating":   {},
		"toggle-monocle":    {},
		"split":             {min: 1, max: 1, choices: []string{"horizontal", "vertical", "h", "v"}},
		"resize":            {min: 1, max: 2, choices: []string{"grow", "shrink"}},
		"move-to-workspace": {min: 1, max: 1, kind: argInt},
		"list":              {},
	},
	Workspace: {
		"switch": {min: 1, max: 1, kind: argInt},
		"list":   {},
	},
	Monitor: {
		"focus": {min: 1, max: 1},
		"list":  {},
	},
}

var subjects = map[string]Subject{
	"window":    Window,
	"workspace": Workspace,
	"monitor":   Monitor,
}

// Parse tokenizes line with shell quoting rules and checks it against the
// vocabulary. Subject and action are case-insensitive.
func Parse(line string) (Command, error) {
	words, err := shellwords.Parse(strings.TrimSpace(line))
	if err != nil {
		return Command{}, Errorf(Malformed, "%v", err)
	}
	if len(words) == 0 {
		return Command{}, &Error{Reason: Malformed, Detail: "empty command"}
	}
	if len(words) < 2 {
		return Command{}, Errorf(UnknownCommand, "%q", line)
	}

	subject, ok := subjects[strings.ToLower(words[0])]
	if !ok {
		return Command{}, Errorf(UnknownCommand, "unknown subject %q", words[0])
	}
	verb := strings.ToLower(words[1])
	rule, ok := vocabulary[subject][verb]
	if !ok {
		return Command{}, Errorf(UnknownCommand, "%s has no action %q", subject, words[1])
	}

	cmd := Command{Subject: subject, Action: verb, Args: words[2:]}
	if err := rule.check(cmd); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func (a action) check(cmd Command) error {
	n := len(cmd.Args)
	if n < a.min || n > a.max {
		if a.min == a.max {
			return Errorf(BadArgument, "%s %s takes %d argument(s), got %d", cmd.Subject, cmd.Action, a.min, n)
		}
		return Errorf(BadArgument, "%s %s takes %d to %d arguments, got %d", cmd.Subject, cmd.Action, a.min, a.max, n)
	}
	if n == 0 {
		return nil
	}
	first := cmd.Args[0]
	if len(a.choices) > 0 {
		lower := strings.ToLower(first)
		for _, c := range a.choices {
			if lower == c {
				cmd.Args[0] = lower
				return a.checkRest(cmd)
			}
		}
		return Errorf(BadArgument, "%q is not one of %s", first, strings.Join(a.choices, ", "))
	}
	switch a.kind {
	case argInt:
		if _, err := strconv.Atoi(first); err != nil {
			return Errorf(BadArgument, "%q is not an integer", first)
		}
	case argUint:
		if _, err := ParseWindowID(first); err != nil {
			return Errorf(BadArgument, "%q is not a window id", first)
		}
	}
	return a.checkRest(cmd)
}

// checkRest validates the optional trailing percentage of resize.
func (a action) checkRest(cmd Command) error {
	if cmd.Action == "resize" && len(cmd.Args) == 2 {
		pct, err := strconv.Atoi(cmd.Args[1])
		if err != nil || pct <= 0 || pct > 100 {
			return Errorf(BadArgument, "%q is not a percentage", cmd.Args[1])
		}
	}
	return nil
}

// ParseWindowID accepts decimal or 0x-prefixed hexadecimal ids.
func ParseWindowID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// FormatWindowID renders id the way ParseWindowID reads it back.
func FormatWindowID(id uint32) string {
	return fmt.Sprintf("0x%x", id)
}

// Mutates reports whether cmd can change layout or focus.
func (c Command) Mutates() bool {
	return c.Action != "list"
}
