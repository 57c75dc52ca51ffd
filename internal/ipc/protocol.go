package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/platform"
)

// Wire format: one command per line; one reply line per command, either
// "OK", "OK:<payload>" or "ERR:<reason>[: <detail>]".
const (
	okPrefix  = "OK"
	errPrefix = "ERR:"
)

// FormatOK renders a success reply. Payloads are flattened to one line.
func FormatOK(payload string) string {
	if payload == "" {
		return okPrefix
	}
	return okPrefix + ":" + oneLine(payload)
}

// FormatError renders a failure reply from err.
func FormatError(err error) string {
	if err == nil {
		return FormatOK("")
	}
	reason := command.ReasonOf(err)
	detail := err.Error()
	var cerr *command.Error
	if errors.As(err, &cerr) {
		detail = cerr.Detail
	}
	if detail == "" {
		return errPrefix + string(reason)
	}
	return errPrefix + string(reason) + ": " + oneLine(detail)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// Reply is a parsed reply line.
type Reply struct {
	OK      bool
	Payload string
	Reason  command.Reason
	Detail  string
}

// Err returns nil for OK replies and a *command.Error otherwise.
func (r Reply) Err() error {
	if r.OK {
		return nil
	}
	return &command.Error{Reason: r.Reason, Detail: r.Detail}
}

// Decode unmarshals a JSON payload.
func (r Reply) Decode(out any) error {
	if !r.OK {
		return r.Err()
	}
	if err := json.Unmarshal([]byte(r.Payload), out); err != nil {
		return fmt.Errorf("failed to parse reply payload: %w", err)
	}
	return nil
}

// ParseReply parses one reply line, without its newline.
func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == okPrefix:
		return Reply{OK: true}, nil
	case strings.HasPrefix(line, okPrefix+":"):
		return Reply{OK: true, Payload: line[len(okPrefix)+1:]}, nil
	case strings.HasPrefix(line, errPrefix):
		rest := line[len(errPrefix):]
		reason, detail, _ := strings.Cut(rest, ": ")
		if reason == "" {
			return Reply{}, fmt.Errorf("malformed error reply %q", line)
		}
		return Reply{Reason: command.Reason(reason), Detail: detail}, nil
	default:
		return Reply{}, fmt.Errorf("malformed reply %q", line)
	}
}

// WindowEntry is one row of "window list".
type WindowEntry struct {
	ID        platform.WindowID `json:"id"`
	Node      int               `json:"node"`
	Output    int               `json:"output"`
	Workspace int               `json:"workspace"`
	Geometry  platform.Rect     `json:"geometry"`
	Mapped    bool              `json:"mapped"`
	Floating  bool              `json:"floating"`
	Focused   bool              `json:"focused"`
	Class     string            `json:"class,omitempty"`
}

// WorkspaceEntry is one row of "workspace list".
type WorkspaceEntry struct {
	Output   int           `json:"output"`
	Index    int           `json:"index"`
	Active   bool          `json:"active"`
	Windows  int           `json:"windows"`
	Layout   string        `json:"layout"`
	Viewport platform.Rect `json:"viewport"`
}

// MonitorEntry is one row of "monitor list".
type MonitorEntry struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Bounds          platform.Rect `json:"bounds"`
	Usable          platform.Rect `json:"usable"`
	ActiveWorkspace int           `json:"active_workspace"`
	Focused         bool          `json:"focused"`
}
