package mcp

import "github.com/1broseidon/tilewm/internal/ipc"

// RunCommandInput is the input for the run_command tool.
type RunCommandInput struct {
	Command string `json:"command" jsonschema:"required,A tilewm command line such as 'window focus next' or 'workspace switch 2'"`
}

// RunCommandOutput is the output for the run_command tool.
type RunCommandOutput struct {
	Command string `json:"command"`
	Payload string `json:"payload,omitempty"`
}

// ListInput is the (empty) input for the list tools.
type ListInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowEntry `json:"windows"`
}

// ListWorkspacesOutput is the output for the list_workspaces tool.
type ListWorkspacesOutput struct {
	Workspaces []ipc.WorkspaceEntry `json:"workspaces"`
}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []ipc.MonitorEntry `json:"monitors"`
}
