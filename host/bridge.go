// Package host defines the bridge between the launcher and the process that owns
// native plugin libraries, windows and settings.
//
// Two implementations exist: host/local runs providers in-process, host/ws talks to a
// remote host over a websocket. Both satisfy Bridge.
package host

import (
	"context"

	"github.com/teranos/dossier/plugin"
)

// Bridge is every call the launcher makes into the host
type Bridge interface {
	plugin.Host

	// ExecutePluginAction runs actionID on resultID in the owning plugin and returns its
	// confirmation message
	ExecutePluginAction(ctx context.Context, pluginID, resultID, actionID string) (string, error)

	// SetWindowShown shows or hides the launcher window
	SetWindowShown(ctx context.Context, shown bool) error

	// OpenSettingsWindow opens the host-side settings UI
	OpenSettingsWindow(ctx context.Context) error

	// ToggleWindow flips launcher window visibility
	ToggleWindow(ctx context.Context) error
}
