package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/tilewm/internal/ipc"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the window manager is running and what it manages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newClient(v).Dial()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "tilewm: not running")
				return &exitError{code: 1}
			}
			defer session.Close()
			return printStatus(session, cmd.OutOrStdout())
		},
	}
}

func printStatus(s lineSender, out io.Writer) error {
	var monitors []ipc.MonitorEntry
	var workspaces []ipc.WorkspaceEntry
	var windows []ipc.WindowEntry
	for _, q := range []struct {
		line string
		out  any
	}{
		{"monitor list", &monitors},
		{"workspace list", &workspaces},
		{"window list", &windows},
	} {
		reply, err := s.Send(q.line)
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		if err := reply.Decode(q.out); err != nil {
			return &exitError{code: 1, err: err}
		}
	}

	fmt.Fprintf(out, "tilewm: running, %d windows\n", len(windows))
	for _, m := range monitors {
		marker := " "
		if m.Focused {
			marker = "*"
		}
		fmt.Fprintf(out, "%s monitor %d %s %dx%d+%d+%d\n", marker, m.ID, m.Name,
			m.Bounds.Width, m.Bounds.Height, m.Bounds.X, m.Bounds.Y)
		for _, ws := range workspaces {
			if ws.Output != m.ID {
				continue
			}
			active := " "
			if ws.Active {
				active = "*"
			}
			fmt.Fprintf(out, "  %s workspace %d: %d windows, %s\n", active, ws.Index, ws.Windows, ws.Layout)
		}
	}
	return nil
}
