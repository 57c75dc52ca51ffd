package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/tilewm/internal/command"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkspacesPerOutput = 4
	DefaultReconcileInterval   = 10
	DefaultResizeStepPercent   = 5
	maxWorkspacesPerOutput     = 32
)

// Margins insets every output's usable area.
type Margins struct {
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
}

// Config is the effective daemon configuration.
type Config struct {
	SocketPath               string            `yaml:"socket_path,omitempty"`
	WorkspacesPerOutput      int               `yaml:"workspaces_per_output"`
	DefaultOrientation       string            `yaml:"default_orientation"`
	FocusFollowsMouse        bool              `yaml:"focus_follows_mouse"`
	MaxWindows               int               `yaml:"max_windows"`
	ScreenPadding            Margins           `yaml:"screen_padding"`
	FloatingClasses          []string          `yaml:"floating_classes"`
	Bindings                 map[string]string `yaml:"bindings"`
	Autostart                []string          `yaml:"autostart,omitempty"`
	LogLevel                 string            `yaml:"log_level"`
	WatchConfig              bool              `yaml:"watch_config"`
	ReconcileIntervalSeconds int               `yaml:"reconcile_interval_seconds"`
	ResizeStepPercent        int               `yaml:"resize_step_percent"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		WorkspacesPerOutput:      DefaultWorkspacesPerOutput,
		DefaultOrientation:       "horizontal",
		FocusFollowsMouse:        false,
		MaxWindows:               0,
		FloatingClasses:          []string{"Pinentry", "Gcr-prompter"},
		Bindings:                 defaultBindings(),
		LogLevel:                 "info",
		WatchConfig:              true,
		ReconcileIntervalSeconds: DefaultReconcileInterval,
		ResizeStepPercent:        DefaultResizeStepPercent,
	}
}

func defaultBindings() map[string]string {
	b := map[string]string{
		"Mod4-j":       "window focus next",
		"Mod4-k":       "window focus prev",
		"Mod4-a":       "window focus parent",
		"Mod4-Shift-j": "window swap next",
		"Mod4-Shift-k": "window swap prev",
		"Mod4-h":       "window resize shrink",
		"Mod4-l":       "window resize grow",
		"Mod4-m":       "window toggle-monocle",
		"Mod4-f":       "window toggle-floating",
		"Mod4-s":       "window split vertical",
		"Mod4-v":       "window split horizontal",
		"Mod4-Shift-q": "window close",
		"Mod4-comma":   "monitor focus prev",
		"Mod4-period":  "monitor focus next",
	}
	for i := 1; i <= DefaultWorkspacesPerOutput; i++ {
		b[fmt.Sprintf("Mod4-%d", i)] = fmt.Sprintf("workspace switch %d", i)
		b[fmt.Sprintf("Mod4-Shift-%d", i)] = fmt.Sprintf("window move-to-workspace %d", i)
	}
	return b
}

// IsFloatingClass reports whether windows of class start floating.
func (c *Config) IsFloatingClass(class string) bool {
	for _, fc := range c.FloatingClasses {
		if strings.EqualFold(fc, class) {
			return true
		}
	}
	return false
}

// BindingKeys returns binding chords in sorted order.
func (c *Config) BindingKeys() []string {
	keys := make([]string, 0, len(c.Bindings))
	for k := range c.Bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks value ranges and that every binding is a well-formed command.
func (c *Config) Validate() error {
	if c.WorkspacesPerOutput < 1 || c.WorkspacesPerOutput > maxWorkspacesPerOutput {
		return &ValidationError{Path: "workspaces_per_output", Err: fmt.Errorf("must be between 1 and %d", maxWorkspacesPerOutput)}
	}
	switch c.DefaultOrientation {
	case "horizontal", "vertical":
	default:
		return &ValidationError{Path: "default_orientation", Err: fmt.Errorf("must be horizontal or vertical, got %q", c.DefaultOrientation)}
	}
	if c.MaxWindows < 0 {
		return &ValidationError{Path: "max_windows", Err: fmt.Errorf("must be >= 0")}
	}
	pad := map[string]int{
		"screen_padding.top":    c.ScreenPadding.Top,
		"screen_padding.bottom": c.ScreenPadding.Bottom,
		"screen_padding.left":   c.ScreenPadding.Left,
		"screen_padding.right":  c.ScreenPadding.Right,
	}
	for _, path := range []string{"screen_padding.top", "screen_padding.bottom", "screen_padding.left", "screen_padding.right"} {
		if pad[path] < 0 {
			return &ValidationError{Path: path, Err: fmt.Errorf("must be >= 0")}
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("unknown level %q", c.LogLevel)}
	}
	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("must be >= 0")}
	}
	if c.ResizeStepPercent < 1 || c.ResizeStepPercent > 50 {
		return &ValidationError{Path: "resize_step_percent", Err: fmt.Errorf("must be between 1 and 50")}
	}
	for _, chord := range c.BindingKeys() {
		if strings.TrimSpace(chord) == "" {
			return &ValidationError{Path: "bindings", Err: fmt.Errorf("empty key chord")}
		}
		if _, err := command.Parse(c.Bindings[chord]); err != nil {
			return &ValidationError{Path: "bindings." + chord, Err: err}
		}
	}
	for i, line := range c.Autostart {
		if strings.TrimSpace(line) == "" {
			return &ValidationError{Path: fmt.Sprintf("autostart[%d]", i), Err: fmt.Errorf("empty command")}
		}
	}
	return nil
}
