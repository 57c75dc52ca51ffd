package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/tilewm/internal/logging"
	"github.com/1broseidon/tilewm/internal/mcp"
)

func newMCPCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol bridge",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve window manager tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := v.GetString(keyLogLevel)
			if level == "" {
				level = "warn"
			}
			// stdout carries the protocol, so logs go to stderr.
			logger := logging.New(os.Stderr, level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return mcp.NewServer(newClient(v), logger).Run(ctx)
		},
	})
	return cmd
}
