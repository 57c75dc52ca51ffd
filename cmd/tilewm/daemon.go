package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/tilewm/internal/daemon"
	"github.com/1broseidon/tilewm/internal/logging"
	"github.com/1broseidon/tilewm/internal/runtimepath"
)

func newDaemonCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the window manager in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(v)
			if err != nil {
				return &exitError{code: daemon.ExitConfig, err: err}
			}
			logger := logging.New(os.Stderr, cfg.LogLevel)

			err = daemon.Run(context.Background(), daemon.Options{
				Config:     cfg,
				ConfigPath: path,
				Display:    v.GetString(keyDisplay),
				Logger:     logger,
			})
			if err != nil {
				return &exitError{code: daemon.ExitCode(err), err: err}
			}
			return nil
		},
	}
}

func socketForDisplay(display string) string {
	p, err := runtimepath.SocketPathForDisplay(display)
	if err != nil {
		return ""
	}
	return p
}
