// Package plugin defines the capability boundary between the launcher and its
// dynamically loaded plugins, and the registry that exposes the host's catalog.
//
// Plugins are native shared libraries loaded by the host process. The launcher never
// calls into plugin code directly: every capability is a call through the host
// (see Host), so a misbehaving plugin can fail a call but cannot take down the search
// session.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/teranos/dossier/settings"
)

// Info describes one plugin as reported by the host catalog
type Info struct {
	// ID is the unique, stable plugin identifier (e.g., "files", "google")
	ID string `json:"id"`

	// Name and Description are shown in the settings UI
	Name        string `json:"name"`
	Description string `json:"description"`

	// Prefix scopes a query to this plugin when it is the query's first token (e.g., "f")
	Prefix string `json:"prefix"`

	// Icon is an emoji or image reference
	Icon string `json:"icon"`

	// Config is opaque plugin configuration
	Config map[string]any `json:"config,omitempty"`

	// HostVersion optionally constrains the host versions this plugin supports (semver constraint)
	HostVersion string `json:"hostVersion,omitempty"`
}

// Action is something the user can do with a result. The first action of a result is
// its primary action.
type Action struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Shortcut string `json:"shortcut,omitempty"`
}

// Result is one search hit. IDs are unique only within the response that produced them.
type Result struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Actions  []Action `json:"actions"`

	// Origin is the id of the plugin that produced this result. It is assigned by the
	// search orchestrator at aggregation time, never by plugins.
	Origin string `json:"origin,omitempty"`
}

// PrimaryAction returns the default action, if any
func (r Result) PrimaryAction() (Action, bool) {
	if len(r.Actions) == 0 {
		return Action{}, false
	}
	return r.Actions[0], true
}

// SearchResponse is what a plugin returns for a query: either a result list or
// rendered HTML content.
type SearchResponse struct {
	Results []Result `json:"results,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// IsHTML reports whether the plugin answered with rendered content
func (r SearchResponse) IsHTML() bool {
	return r.HTML != ""
}

// UnmarshalJSON accepts both wire forms: a bare result array or {"html": "..."}.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []Result
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return err
		}
		*r = SearchResponse{Results: results}
		return nil
	}

	type wire SearchResponse
	var w wire
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}
	*r = SearchResponse(w)
	return nil
}

// Plugin is a searchable capability exposed by the registry
type Plugin interface {
	// Info returns the catalog entry
	Info() Info

	// Search runs query against this plugin
	Search(ctx context.Context, query string) (SearchResponse, error)
}

// Activator is an optional interface for plugins that want to know when a query
// becomes scoped to them. Activate is called once per activation, not per keystroke.
type Activator interface {
	Plugin
	Activate(ctx context.Context)
}

// Host is the part of the host bridge the registry needs
type Host interface {
	ListPlugins(ctx context.Context) ([]Info, error)
	GetSettings(ctx context.Context) (settings.Settings, error)
	SearchPlugin(ctx context.Context, pluginID, query string) (SearchResponse, error)
}
