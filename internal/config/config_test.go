package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Bindings["Mod4-j"] != "window focus next" {
		t.Fatalf("expected default focus binding, got %q", cfg.Bindings["Mod4-j"])
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.WorkspacesPerOutput != DefaultWorkspacesPerOutput {
		t.Fatalf("workspaces = %d", res.Config.WorkspacesPerOutput)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.DefaultOrientation != "horizontal" {
		t.Fatalf("default_orientation = %q", res.Config.DefaultOrientation)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"workspaces_per_output: 6",
		"default_orientation: Vertical",
		"focus_follows_mouse: true",
		"max_windows: 12",
		"screen_padding:",
		"  top: 24",
		"floating_classes: [mpv]",
		"bindings:",
		"  Mod4-j: window focus prev",
		"  Mod4-m: \"\"",
		"  Mod1-Return: window toggle-floating",
		"log_level: DEBUG",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.WorkspacesPerOutput != 6 || cfg.DefaultOrientation != "vertical" || !cfg.FocusFollowsMouse || cfg.MaxWindows != 12 {
		t.Fatalf("scalars not applied: %+v", cfg)
	}
	if cfg.ScreenPadding.Top != 24 || cfg.ScreenPadding.Left != 0 {
		t.Fatalf("padding = %+v", cfg.ScreenPadding)
	}
	if !cfg.IsFloatingClass("MPV") || cfg.IsFloatingClass("Pinentry") {
		t.Fatalf("floating classes = %v", cfg.FloatingClasses)
	}
	if cfg.Bindings["Mod4-j"] != "window focus prev" {
		t.Fatalf("binding override not applied")
	}
	if _, ok := cfg.Bindings["Mod4-m"]; ok {
		t.Fatalf("empty binding should remove the default")
	}
	if cfg.Bindings["Mod4-k"] != "window focus prev" {
		t.Fatalf("untouched defaults should survive")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}
}

func TestLoadFromPath_ReplaceBindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "replace_bindings: true\nbindings:\n  Mod4-x: window close\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Config.Bindings) != 1 || res.Config.Bindings["Mod4-x"] != "window close" {
		t.Fatalf("bindings = %v", res.Config.Bindings)
	}
}

func TestLoadFromPath_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "config.yaml")
	writeFile(t, filepath.Join(dir, "conf.d", "10-base.yaml"), "max_windows: 5\nlog_level: warn\n")
	writeFile(t, filepath.Join(dir, "conf.d", "20-more.yaml"), "max_windows: 7\n")
	writeFile(t, filepath.Join(dir, "conf.d", "notes.txt"), "ignored")
	writeFile(t, main, "include: conf.d\nlog_level: error\n")

	res, err := LoadFromPath(main)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.MaxWindows != 7 {
		t.Fatalf("max_windows = %d, want 7", res.Config.MaxWindows)
	}
	if res.Config.LogLevel != "error" {
		t.Fatalf("main file should override includes, got %q", res.Config.LogLevel)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v, want 3 entries", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: b.yaml\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadFromPath_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "workspace_count: 3\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected strict decoding to reject unknown field")
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\nbindings:\n  Mod4-z: window dance\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Path != "bindings.Mod4-z" {
		t.Fatalf("path = %q", verr.Path)
	}
	if verr.Source.Line != 3 {
		t.Fatalf("source line = %d, want 3 (%v)", verr.Source.Line, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
	}{
		{"zero workspaces", func(c *Config) { c.WorkspacesPerOutput = 0 }, "workspaces_per_output"},
		{"bad orientation", func(c *Config) { c.DefaultOrientation = "diagonal" }, "default_orientation"},
		{"negative capacity", func(c *Config) { c.MaxWindows = -1 }, "max_windows"},
		{"negative padding", func(c *Config) { c.ScreenPadding.Left = -3 }, "screen_padding.left"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad resize step", func(c *Config) { c.ResizeStepPercent = 90 }, "resize_step_percent"},
		{"empty autostart", func(c *Config) { c.Autostart = []string{" "} }, "autostart[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestDefaultConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != "/tmp/xdg-test/tilewm/config.yaml" {
		t.Fatalf("path = %q", path)
	}
}

func TestMarshalRoundTripsThroughLoader(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWindows = 9
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, string(data))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load marshalled config: %v", err)
	}
	if res.Config.MaxWindows != 9 {
		t.Fatalf("max_windows = %d", res.Config.MaxWindows)
	}
}
