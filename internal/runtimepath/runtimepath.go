package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir returns the runtime directory holding the command socket. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/tilewm-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/tilewm-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the command socket path for the current DISPLAY.
func SocketPath() (string, error) {
	return SocketPathForDisplay(os.Getenv("DISPLAY"))
}

// SocketPathForDisplay returns the command socket path for display. One
// daemon runs per display, so each display gets its own socket.
func SocketPathForDisplay(display string) (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	name := "tilewm.sock"
	if suffix := sanitizeDisplay(display); suffix != "" {
		name = "tilewm-" + suffix + ".sock"
	}
	return filepath.Join(runtimeDir, name), nil
}

// sanitizeDisplay keeps the display and screen numbers of ":1.0"-style
// names; host-qualified displays keep their host too.
func sanitizeDisplay(display string) string {
	display = strings.TrimSpace(display)
	if display == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range display {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '.', r == '-':
			b.WriteRune(r)
		case r == ':':
			if b.Len() > 0 {
				b.WriteRune('_')
			}
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
