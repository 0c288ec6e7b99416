package search

import (
	"strings"

	"github.com/teranos/dossier/plugin"
)

// Mode is the routing state of the current query
type Mode int

const (
	// ModeIdle means the query is empty
	ModeIdle Mode = iota
	// ModeGlobal means the query fans out to every enabled plugin
	ModeGlobal
	// ModeScoped means the query's first token matched a plugin prefix
	ModeScoped
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeGlobal:
		return "global"
	case ModeScoped:
		return "scoped"
	default:
		return "unknown"
	}
}

// State is a snapshot of the search session
type State struct {
	// Query is the text as typed
	Query string
	Mode  Mode

	// Active is the plugin the query is scoped to, nil outside ModeScoped
	Active plugin.Plugin

	// Text is what gets searched: the query without its prefix token in ModeScoped,
	// the query as typed in ModeGlobal
	Text string

	// Results and HTML are the published result set of the current generation
	Results []plugin.Result
	HTML    string

	Selected int

	// Generation increases on every query mutation; responses tagged with an older
	// generation are discarded
	Generation uint64
	Loading    bool

	// Plugins are the enabled plugins in registration order
	Plugins []plugin.Plugin
}

// SelectedResult returns the highlighted result
func (s State) SelectedResult() (plugin.Result, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Results) {
		return plugin.Result{}, false
	}
	return s.Results[s.Selected], true
}

// ActiveID returns the id of the scoped plugin, or ""
func (s State) ActiveID() string {
	if s.Active == nil {
		return ""
	}
	return s.Active.Info().ID
}

// Provenance maps each published result id to the plugin that produced it.
// When two sources return the same id the first one in result order wins.
func (s State) Provenance() map[string]string {
	out := make(map[string]string, len(s.Results))
	for _, r := range s.Results {
		if _, ok := out[r.ID]; !ok && r.Origin != "" {
			out[r.ID] = r.Origin
		}
	}
	return out
}

// Event is an input to Reduce
type Event interface {
	isEvent()
}

// QueryChanged replaces the query text
type QueryChanged struct{ Query string }

// PluginsLoaded replaces the plugin list and re-runs the current query against it
type PluginsLoaded struct{ Plugins []plugin.Plugin }

// ResultsArrived publishes the result set of a search
type ResultsArrived struct {
	Generation uint64
	Results    []plugin.Result
	HTML       string
}

// NavigateDown moves the selection one result down
type NavigateDown struct{}

// NavigateUp moves the selection one result up
type NavigateUp struct{}

// Hover selects the result under the pointer
type Hover struct{ Index int }

// Hidden resets the session after the window is hidden or toggled
type Hidden struct{}

func (QueryChanged) isEvent()   {}
func (PluginsLoaded) isEvent()  {}
func (ResultsArrived) isEvent() {}
func (NavigateDown) isEvent()   {}
func (NavigateUp) isEvent()     {}
func (Hover) isEvent()          {}
func (Hidden) isEvent()         {}

// Request is a search to perform on behalf of one generation
type Request struct {
	Generation uint64
	Mode       Mode
	Text       string
	Plugin     plugin.Plugin   // ModeScoped only
	Plugins    []plugin.Plugin // ModeGlobal only
}

// Effects are the side effects a transition asks for
type Effects struct {
	// Activate is set when the query became scoped to a different plugin
	Activate plugin.Plugin

	// Search is set when a new generation needs results
	Search *Request
}

// Reduce applies e to s. It is pure: searches and activation hooks are returned as
// effects for the caller to carry out.
func Reduce(s State, e Event) (State, Effects) {
	switch e := e.(type) {
	case QueryChanged:
		if e.Query == s.Query && s.Generation > 0 {
			return s, Effects{}
		}
		s.Query = e.Query
		return evaluate(s)

	case PluginsLoaded:
		s.Plugins = e.Plugins
		return evaluate(s)

	case ResultsArrived:
		if e.Generation != s.Generation || s.Mode == ModeIdle {
			return s, Effects{}
		}
		s.Results = e.Results
		s.HTML = e.HTML
		s.Selected = 0
		s.Loading = false
		return s, Effects{}

	case NavigateDown:
		s.Selected = Clamp(s.Selected+1, len(s.Results))
		return s, Effects{}

	case NavigateUp:
		s.Selected = Clamp(s.Selected-1, len(s.Results))
		return s, Effects{}

	case Hover:
		s.Selected = Clamp(e.Index, len(s.Results))
		return s, Effects{}

	case Hidden:
		s.Query = ""
		return evaluate(s)
	}
	return s, Effects{}
}

// evaluate recomputes routing for the current query and opens a new generation
func evaluate(s State) (State, Effects) {
	previous := s.ActiveID()
	s.Generation++

	trimmed := strings.TrimSpace(s.Query)
	if trimmed == "" {
		s.Mode = ModeIdle
		s.Active = nil
		s.Text = ""
		s.Results = nil
		s.HTML = ""
		s.Selected = 0
		s.Loading = false
		return s, Effects{}
	}

	var fx Effects
	first := strings.Fields(trimmed)[0]
	if p := matchPrefix(s.Plugins, strings.ToLower(first)); p != nil {
		s.Mode = ModeScoped
		s.Active = p
		s.Text = strings.TrimSpace(trimmed[len(first):])
		if p.Info().ID != previous {
			fx.Activate = p
		}
		fx.Search = &Request{Generation: s.Generation, Mode: ModeScoped, Text: s.Text, Plugin: p}
	} else {
		s.Mode = ModeGlobal
		s.Active = nil
		s.Text = s.Query
		fx.Search = &Request{Generation: s.Generation, Mode: ModeGlobal, Text: s.Text, Plugins: s.Plugins}
	}

	s.Loading = true
	return s, fx
}

// matchPrefix returns the first plugin whose prefix equals token
func matchPrefix(plugins []plugin.Plugin, token string) plugin.Plugin {
	for _, p := range plugins {
		prefix := p.Info().Prefix
		if prefix != "" && prefix == token {
			return p
		}
	}
	return nil
}

// Clamp bounds a selection index into [0, max(0, n-1)]
func Clamp(index, n int) int {
	if index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}
	return index
}
