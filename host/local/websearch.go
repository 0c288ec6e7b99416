package local

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/plugin"
)

// WebSearchID is the id of the web search provider, the default search fallback
const WebSearchID = "google"

const webSearchURL = "https://www.google.com/search?q="

// OpenFunc opens a URL in the user's browser
type OpenFunc func(ctx context.Context, target string) error

// WebSearch offers a single "search the web" result for any non-empty query
type WebSearch struct {
	open OpenFunc
}

// NewWebSearch creates the web search provider. A nil open uses OpenBrowser.
func NewWebSearch(open OpenFunc) *WebSearch {
	if open == nil {
		open = OpenBrowser
	}
	return &WebSearch{open: open}
}

func (w *WebSearch) Info() plugin.Info {
	return plugin.Info{
		ID:          WebSearchID,
		Name:        "Google Search",
		Description: "Search the web with Google",
		Prefix:      "g",
		Icon:        "🔍",
	}
}

// Search returns one result whose id is the query itself
func (w *WebSearch) Search(ctx context.Context, query string) (plugin.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return plugin.SearchResponse{}, nil
	}

	return plugin.SearchResponse{Results: []plugin.Result{{
		ID:       query,
		Title:    fmt.Sprintf("Search Google for '%s'", query),
		Subtitle: "Open in browser",
		Icon:     "🔍",
		Actions:  []plugin.Action{{ID: "search", Label: "Search", Shortcut: "Enter"}},
	}}}, nil
}

func (w *WebSearch) Execute(ctx context.Context, resultID, actionID string) (string, error) {
	if actionID != "search" {
		return "", errors.Newf("unknown action %q", actionID)
	}

	target := SearchURL(resultID)
	if err := w.open(ctx, target); err != nil {
		return "", errors.Wrapf(err, "failed to open %s", target)
	}
	return "Opened Google search", nil
}

// SearchURL builds the search page URL for query
func SearchURL(query string) string {
	return webSearchURL + url.QueryEscape(query)
}

// OpenBrowser hands target to the platform's URL opener.
// The opener outlives ctx; only its start is synchronous.
func OpenBrowser(_ context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
