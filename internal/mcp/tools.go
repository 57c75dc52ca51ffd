package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tilewm/internal/command"
)

func (s *Server) handleRunCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args RunCommandInput) (*mcpsdk.CallToolResult, RunCommandOutput, error) {
	line := strings.TrimSpace(args.Command)
	if line == "" {
		return nil, RunCommandOutput{}, fmt.Errorf("command is required")
	}
	if strings.ContainsAny(line, "\r\n") {
		return nil, RunCommandOutput{}, fmt.Errorf("command must be a single line")
	}
	// Parse locally so malformed input never reaches the daemon.
	if _, err := command.Parse(line); err != nil {
		return nil, RunCommandOutput{}, err
	}

	payload, err := s.run(line)
	if err != nil {
		return nil, RunCommandOutput{}, err
	}
	s.logger.Debug("mcp command", "command", line)
	return nil, RunCommandOutput{Command: line, Payload: payload}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	var out ListWindowsOutput
	if err := s.list("window list", &out.Windows); err != nil {
		return nil, ListWindowsOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleListWorkspaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInput) (*mcpsdk.CallToolResult, ListWorkspacesOutput, error) {
	var out ListWorkspacesOutput
	if err := s.list("workspace list", &out.Workspaces); err != nil {
		return nil, ListWorkspacesOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	var out ListMonitorsOutput
	if err := s.list("monitor list", &out.Monitors); err != nil {
		return nil, ListMonitorsOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) run(line string) (string, error) {
	reply, err := s.daemon.Send(line)
	if err != nil {
		return "", fmt.Errorf("tilewm daemon unavailable: %w", err)
	}
	if err := reply.Err(); err != nil {
		return "", err
	}
	return reply.Payload, nil
}

func (s *Server) list(line string, out any) error {
	reply, err := s.daemon.Send(line)
	if err != nil {
		return fmt.Errorf("tilewm daemon unavailable: %w", err)
	}
	if err := reply.Err(); err != nil {
		return err
	}
	if err := reply.Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", line, err)
	}
	return nil
}
