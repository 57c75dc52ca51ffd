package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/1broseidon/tilewm/internal/palette"
)

const keyLauncher = "launcher"

func newMenuCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Pick a window or a bound command from a launcher",
		Long: `Show managed windows and the configured hotkey commands in rofi,
fuzzel, wofi or dmenu, then send the picked entry to the window manager.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := palette.NewBackend(v.GetString(keyLauncher))
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			var bindings map[string]string
			if cfg, _, err := loadConfig(v); err == nil {
				bindings = cfg.Bindings
			}

			sent, err := palette.NewSwitcher(newClient(v), backend).Run(bindings)
			if errors.Is(err, palette.ErrCancelled) {
				return nil
			}
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Fprintln(cmd.OutOrStdout(), sent)
			}
			return nil
		},
	}
	cmd.Flags().String(keyLauncher, "auto", "launcher: auto, rofi, fuzzel, wofi or dmenu")
	cmd.Flags().BoolP("verbose", "v", false, "print the command that was sent")
	_ = v.BindPFlag(keyLauncher, cmd.Flags().Lookup(keyLauncher))
	return cmd
}
