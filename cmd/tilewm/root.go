package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/ipc"
)

// Flag and environment keys. Every key can also be set as TILEWM_<KEY>,
// with dashes replaced by underscores.
const (
	keyConfig   = "config"
	keySocket   = "socket"
	keyDisplay  = "display"
	keyLogLevel = "log-level"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TILEWM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "tilewm",
		Short:         "A tiling window manager for X11",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String(keyConfig, "", "configuration file (default ~/.config/tilewm/config.yaml)")
	flags.String(keySocket, "", "command socket path (default $XDG_RUNTIME_DIR/tilewm-<display>.sock)")
	flags.String(keyDisplay, "", "X display to manage (default $DISPLAY)")
	flags.String(keyLogLevel, "", "log level: debug, info, warn or error")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newDaemonCmd(v),
		newMsgCmd(v),
		newStatusCmd(v),
		newConfigCmd(v),
		newMCPCmd(v),
		newMenuCmd(v),
		newTopCmd(v),
	)
	return root
}

// configPath returns the configured file path, or the default location.
func configPath(v *viper.Viper) (string, error) {
	if p := v.GetString(keyConfig); p != "" {
		return p, nil
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the configuration and applies flag and environment
// overrides on top.
func loadConfig(v *viper.Viper) (*config.Config, string, error) {
	path, err := configPath(v)
	if err != nil {
		return nil, "", err
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	cfg := res.Config
	if s := v.GetString(keySocket); s != "" {
		cfg.SocketPath = s
	}
	if l := v.GetString(keyLogLevel); l != "" {
		cfg.LogLevel = l
	}
	return cfg, path, nil
}

// newClient returns a command channel client honouring --socket, then the
// configured socket_path, then the per-display default.
func newClient(v *viper.Viper) *ipc.Client {
	if s := v.GetString(keySocket); s != "" {
		return ipc.NewClient(s)
	}
	if cfg, _, err := loadConfig(v); err == nil && cfg.SocketPath != "" {
		return ipc.NewClient(cfg.SocketPath)
	}
	if d := v.GetString(keyDisplay); d != "" {
		return ipc.NewClient(socketForDisplay(d))
	}
	return ipc.NewClient("")
}
