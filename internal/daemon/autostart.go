package daemon

import (
	"log/slog"
	"os"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

// Autostart launches each command line detached from the daemon's stdio.
// Children are reaped when SIGCHLD arrives. It returns how many started.
func Autostart(commands []string, logger *slog.Logger) int {
	started := 0
	for _, line := range commands {
		args, err := shellwords.Parse(line)
		if err != nil || len(args) == 0 {
			logger.Warn("skipping autostart command", "command", line, "error", err)
			continue
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Env = os.Environ()
		if err := cmd.Start(); err != nil {
			logger.Warn("failed to start autostart command", "command", line, "error", err)
			continue
		}
		logger.Info("autostarted", "command", line, "pid", cmd.Process.Pid)
		// The SIGCHLD reaper collects the exit status.
		_ = cmd.Process.Release()
		started++
	}
	return started
}
