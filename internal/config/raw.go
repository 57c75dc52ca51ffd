package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawMargins struct {
	Top    *int `yaml:"top"`
	Bottom *int `yaml:"bottom"`
	Left   *int `yaml:"left"`
	Right  *int `yaml:"right"`
}

// RawConfig mirrors one YAML file; nil fields were not set.
type RawConfig struct {
	Include                  IncludeList       `yaml:"include"`
	SocketPath               *string           `yaml:"socket_path"`
	WorkspacesPerOutput      *int              `yaml:"workspaces_per_output"`
	DefaultOrientation       *string           `yaml:"default_orientation"`
	FocusFollowsMouse        *bool             `yaml:"focus_follows_mouse"`
	MaxWindows               *int              `yaml:"max_windows"`
	ScreenPadding            *RawMargins       `yaml:"screen_padding"`
	FloatingClasses          []string          `yaml:"floating_classes"`
	Bindings                 map[string]string `yaml:"bindings"`
	ReplaceBindings          *bool             `yaml:"replace_bindings"`
	Autostart                []string          `yaml:"autostart"`
	LogLevel                 *string           `yaml:"log_level"`
	WatchConfig              *bool             `yaml:"watch_config"`
	ReconcileIntervalSeconds *int              `yaml:"reconcile_interval_seconds"`
	ResizeStepPercent        *int              `yaml:"resize_step_percent"`
}

// merge overlays another file on c. Scalars replace, bindings merge by
// chord, lists replace.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.SocketPath != nil {
		out.SocketPath = overlay.SocketPath
	}
	if overlay.WorkspacesPerOutput != nil {
		out.WorkspacesPerOutput = overlay.WorkspacesPerOutput
	}
	if overlay.DefaultOrientation != nil {
		out.DefaultOrientation = overlay.DefaultOrientation
	}
	if overlay.FocusFollowsMouse != nil {
		out.FocusFollowsMouse = overlay.FocusFollowsMouse
	}
	if overlay.MaxWindows != nil {
		out.MaxWindows = overlay.MaxWindows
	}
	if overlay.ScreenPadding != nil {
		if out.ScreenPadding == nil {
			out.ScreenPadding = &RawMargins{}
		} else {
			cp := *out.ScreenPadding
			out.ScreenPadding = &cp
		}
		if overlay.ScreenPadding.Top != nil {
			out.ScreenPadding.Top = overlay.ScreenPadding.Top
		}
		if overlay.ScreenPadding.Bottom != nil {
			out.ScreenPadding.Bottom = overlay.ScreenPadding.Bottom
		}
		if overlay.ScreenPadding.Left != nil {
			out.ScreenPadding.Left = overlay.ScreenPadding.Left
		}
		if overlay.ScreenPadding.Right != nil {
			out.ScreenPadding.Right = overlay.ScreenPadding.Right
		}
	}
	if overlay.FloatingClasses != nil {
		out.FloatingClasses = overlay.FloatingClasses
	}
	if overlay.ReplaceBindings != nil {
		out.ReplaceBindings = overlay.ReplaceBindings
		if *overlay.ReplaceBindings {
			out.Bindings = nil
		}
	}
	if overlay.Bindings != nil {
		merged := make(map[string]string, len(out.Bindings)+len(overlay.Bindings))
		for chord, cmd := range out.Bindings {
			merged[chord] = cmd
		}
		for chord, cmd := range overlay.Bindings {
			merged[chord] = cmd
		}
		out.Bindings = merged
	}
	if overlay.Autostart != nil {
		out.Autostart = overlay.Autostart
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.WatchConfig != nil {
		out.WatchConfig = overlay.WatchConfig
	}
	if overlay.ReconcileIntervalSeconds != nil {
		out.ReconcileIntervalSeconds = overlay.ReconcileIntervalSeconds
	}
	if overlay.ResizeStepPercent != nil {
		out.ResizeStepPercent = overlay.ResizeStepPercent
	}
	return out
}
