package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults and validates the result.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.SocketPath != nil {
		cfg.SocketPath = strings.TrimSpace(*raw.SocketPath)
	}
	if raw.WorkspacesPerOutput != nil {
		cfg.WorkspacesPerOutput = *raw.WorkspacesPerOutput
	}
	if raw.DefaultOrientation != nil {
		cfg.DefaultOrientation = strings.ToLower(strings.TrimSpace(*raw.DefaultOrientation))
	}
	if raw.FocusFollowsMouse != nil {
		cfg.FocusFollowsMouse = *raw.FocusFollowsMouse
	}
	if raw.MaxWindows != nil {
		cfg.MaxWindows = *raw.MaxWindows
	}
	if raw.ScreenPadding != nil {
		cfg.ScreenPadding = Margins{
			Top:    derefInt(raw.ScreenPadding.Top, cfg.ScreenPadding.Top),
			Bottom: derefInt(raw.ScreenPadding.Bottom, cfg.ScreenPadding.Bottom),
			Left:   derefInt(raw.ScreenPadding.Left, cfg.ScreenPadding.Left),
			Right:  derefInt(raw.ScreenPadding.Right, cfg.ScreenPadding.Right),
		}
	}
	if raw.FloatingClasses != nil {
		cfg.FloatingClasses = raw.FloatingClasses
	}
	if raw.ReplaceBindings != nil && *raw.ReplaceBindings {
		cfg.Bindings = map[string]string{}
	}
	for chord, cmd := range raw.Bindings {
		if strings.TrimSpace(cmd) == "" {
			delete(cfg.Bindings, chord)
			continue
		}
		cfg.Bindings[chord] = cmd
	}
	if raw.Autostart != nil {
		cfg.Autostart = raw.Autostart
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.WatchConfig != nil {
		cfg.WatchConfig = *raw.WatchConfig
	}
	if raw.ReconcileIntervalSeconds != nil {
		cfg.ReconcileIntervalSeconds = *raw.ReconcileIntervalSeconds
	}
	if raw.ResizeStepPercent != nil {
		cfg.ResizeStepPercent = *raw.ResizeStepPercent
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func derefInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
