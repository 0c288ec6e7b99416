package search

import (
	"context"
	"strings"

	"github.com/teranos/dossier/plugin"
)

// OriginBuiltin tags results produced by built-in commands
const OriginBuiltin = "builtin"

// Builtin is a launcher command offered alongside plugin results
type Builtin struct {
	Result plugin.Result
	Run    func(ctx context.Context) error
}

// Window is the part of the host bridge the built-in commands drive
type Window interface {
	SetWindowShown(ctx context.Context, shown bool) error
	OpenSettingsWindow(ctx context.Context) error
	ToggleWindow(ctx context.Context) error
}

// DefaultBuiltins returns the Settings, Hide and Reload plugins commands
func DefaultBuiltins(window Window, reload func(ctx context.Context) error) []Builtin {
	run := []plugin.Action{{ID: "run", Label: "Run", Shortcut: "Enter"}}

	return []Builtin{
		{
			Result: plugin.Result{
				ID:       "builtin:settings",
				Title:    "Settings",
				Subtitle: "Open launcher settings",
				Icon:     "⚙️",
				Actions:  run,
			},
			Run: window.OpenSettingsWindow,
		},
		{
			Result: plugin.Result{
				ID:       "builtin:hide",
				Title:    "Hide",
				Subtitle: "Hide the launcher window",
				Icon:     "👋",
				Actions:  run,
			},
			Run: func(ctx context.Context) error { return window.SetWindowShown(ctx, false) },
		},
		{
			Result: plugin.Result{
				ID:       "builtin:reload",
				Title:    "Reload plugins",
				Subtitle: "Fetch the plugin catalog again",
				Icon:     "🔄",
				Actions:  run,
			},
			Run: reload,
		},
	}
}

// matchBuiltins returns the commands whose title or subtitle contains query,
// ignoring case
func matchBuiltins(builtins []Builtin, query string) []plugin.Result {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	var out []plugin.Result
	for _, b := range builtins {
		if strings.Contains(strings.ToLower(b.Result.Title), needle) ||
			strings.Contains(strings.ToLower(b.Result.Subtitle), needle) {
			r := b.Result
			r.Origin = OriginBuiltin
			out = append(out, r)
		}
	}
	return out
}
