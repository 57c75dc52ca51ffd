// Package mcp exposes the window manager's command channel as MCP tools.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tilewm/internal/ipc"
)

const (
	ServerName    = "tilewm"
	ServerVersion = "0.1.0"
)

// Sender delivers one command line to the daemon and returns its reply.
// *ipc.Client satisfies it.
type Sender interface {
	Send(line string) (ipc.Reply, error)
}

// Server is the MCP server for tilewm.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Sender
	logger    *slog.Logger
}

// NewServer creates an MCP server whose tools forward to daemon.
func NewServer(daemon Sender, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_command",
		Description: "Run one tilewm command line, for example 'window focus next', 'window split vertical', 'window move-to-workspace 2' or 'monitor focus next'. Rejected commands return the daemon's reason (NoFocus, NoSuchWorkspace, BadArgument, ...).",
	}, s.handleRunCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every managed window with its output, workspace, geometry, and whether it is mapped, floating or focused.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_workspaces",
		Description: "List the workspaces of every output with their layout, window count and whether each is shown.",
	}, s.handleListWorkspaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List the outputs with their bounds, usable area and active workspace.",
	}, s.handleListMonitors)
}
