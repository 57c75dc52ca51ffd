package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/tilewm/internal/command"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/logging"
)

// fakeDaemon answers from a fixed table of reply lines.
type fakeDaemon struct {
	replies map[string]string
	sent    []string
	err     error
}

func (f *fakeDaemon) Send(line string) (ipc.Reply, error) {
	f.sent = append(f.sent, line)
	if f.err != nil {
		return ipc.Reply{}, f.err
	}
	raw, ok := f.replies[line]
	if !ok {
		raw = "ERR:UnknownCommand"
	}
	return ipc.ParseReply(raw)
}

func newTestServer(d *fakeDaemon) *Server {
	return NewServer(d, logging.Discard())
}

func TestRunCommandForwardsLine(t *testing.T) {
	d := &fakeDaemon{replies: map[string]string{"window focus next": "OK"}}
	s := newTestServer(d)

	_, out, err := s.handleRunCommand(context.Background(), nil, RunCommandInput{Command: "  window focus next "})
	if err != nil {
		t.Fatalf("handleRunCommand: %v", err)
	}
	if out.Command != "window focus next" || out.Payload != "" {
		t.Fatalf("unexpected output %+v", out)
	}
	if len(d.sent) != 1 || d.sent[0] != "window focus next" {
		t.Fatalf("sent %q", d.sent)
	}
}

func TestRunCommandRejections(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantReason command.Reason
		wantSent   bool
	}{
		{name: "empty", input: "   "},
		{name: "multi-line", input: "window close\nwindow close"},
		{name: "unparseable", input: "window teleport", wantReason: command.UnknownCommand},
		{name: "daemon refuses", input: "workspace switch 9", wantReason: command.NoSuchWorkspace, wantSent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDaemon{replies: map[string]string{"workspace switch 9": "ERR:NoSuchWorkspace: 9 (have 4)"}}
			s := newTestServer(d)
			_, _, err := s.handleRunCommand(context.Background(), nil, RunCommandInput{Command: tt.input})
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantReason != "" {
				var cmdErr *command.Error
				if !errors.As(err, &cmdErr) || cmdErr.Reason != tt.wantReason {
					t.Fatalf("error = %v, want reason %s", err, tt.wantReason)
				}
			}
			if sent := len(d.sent) > 0; sent != tt.wantSent {
				t.Fatalf("sent = %v, want %v", sent, tt.wantSent)
			}
		})
	}
}

func TestListTools(t *testing.T) {
	d := &fakeDaemon{replies: map[string]string{
		"window list":    `OK:[{"id":4194305,"node":3,"output":0,"workspace":1,"geometry":{"x":0,"y":0,"width":960,"height":1080},"mapped":true,"floating":false,"focused":true,"class":"Alacritty"}]`,
		"workspace list": `OK:[{"output":0,"index":1,"active":true,"windows":1,"layout":"horizontal","viewport":{"x":0,"y":0,"width":1920,"height":1080}}]`,
		"monitor list":   `OK:[{"id":0,"name":"eDP-1","bounds":{"x":0,"y":0,"width":1920,"height":1080},"usable":{"x":0,"y":0,"width":1920,"height":1080},"active_workspace":1,"focused":true}]`,
	}}
	s := newTestServer(d)
	ctx := context.Background()

	_, windows, err := s.handleListWindows(ctx, nil, ListInput{})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(windows.Windows) != 1 || windows.Windows[0].Class != "Alacritty" || windows.Windows[0].Geometry.Width != 960 {
		t.Fatalf("unexpected windows %+v", windows)
	}

	_, workspaces, err := s.handleListWorkspaces(ctx, nil, ListInput{})
	if err != nil {
		t.Fatalf("list_workspaces: %v", err)
	}
	if len(workspaces.Workspaces) != 1 || !workspaces.Workspaces[0].Active {
		t.Fatalf("unexpected workspaces %+v", workspaces)
	}

	_, monitors, err := s.handleListMonitors(ctx, nil, ListInput{})
	if err != nil {
		t.Fatalf("list_monitors: %v", err)
	}
	if len(monitors.Monitors) != 1 || monitors.Monitors[0].Name != "eDP-1" {
		t.Fatalf("unexpected monitors %+v", monitors)
	}
}

func TestDaemonUnavailable(t *testing.T) {
	s := newTestServer(&fakeDaemon{err: errors.New("connection refused")})
	if _, _, err := s.handleListMonitors(context.Background(), nil, ListInput{}); err == nil {
		t.Fatal("expected an error when the daemon is down")
	}
	if _, _, err := s.handleRunCommand(context.Background(), nil, RunCommandInput{Command: "window close"}); err == nil {
		t.Fatal("expected an error when the daemon is down")
	}
}
