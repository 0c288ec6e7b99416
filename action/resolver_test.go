package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/plugin"
	"github.com/teranos/dossier/search"
)

// =============================================================================
// Test fixtures
// =============================================================================

type call struct {
	pluginID, resultID, actionID string
}

type fakeExecutor struct {
	calls []call
	err   error
}

func (e *fakeExecutor) ExecutePluginAction(ctx context.Context, pluginID, resultID, actionID string) (string, error) {
	e.calls = append(e.calls, call{pluginID, resultID, actionID})
	if e.err != nil {
		return "", e.err
	}
	return "ok", nil
}

type fakeBuiltins struct {
	ran []string
	err error
}

func (b *fakeBuiltins) RunBuiltin(ctx context.Context, resultID string) error {
	b.ran = append(b.ran, resultID)
	return b.err
}

type stubPlugin struct {
	id       string
	results  map[string][]string
	searches int
}

func (p *stubPlugin) Info() plugin.Info { return plugin.Info{ID: p.id} }

func (p *stubPlugin) Search(ctx context.Context, query string) (plugin.SearchResponse, error) {
	p.searches++
	var out []plugin.Result
	for _, id := range p.results[query] {
		out = append(out, plugin.Result{ID: id})
	}
	return plugin.SearchResponse{Results: out}, nil
}

func result(id, origin string, actions ...string) plugin.Result {
	r := plugin.Result{ID: id, Title: id, Origin: origin}
	for _, a := range actions {
		r.Actions = append(r.Actions, plugin.Action{ID: a, Label: a})
	}
	return r
}

func newTestResolver(strategy string) (*Resolver, *fakeExecutor, *fakeBuiltins) {
	exec := &fakeExecutor{}
	builtins := &fakeBuiltins{}
	return NewResolver(exec, builtins, strategy, zap.NewNop().Sugar()), exec, builtins
}

// =============================================================================
// Routing
// =============================================================================

func TestRun_ScopedRoutesToActivePlugin(t *testing.T) {
	r, exec, _ := newTestResolver(am.ProvenanceIndex)
	files := &stubPlugin{id: "files"}

	out := r.Run(context.Background(), search.State{
		Mode:    search.ModeScoped,
		Active:  files,
		Results: []plugin.Result{result("readme.md", "files", "open", "reveal")},
	})

	require.NoError(t, out.Err)
	assert.Equal(t, "ok", out.Message)
	assert.Equal(t, []call{{"files", "readme.md", "open"}}, exec.calls)
}

func TestRun_GlobalUsesProvenance(t *testing.T) {
	r, exec, _ := newTestResolver(am.ProvenanceIndex)
	files := &stubPlugin{id: "files"}
	apps := &stubPlugin{id: "apps"}

	out := r.Run(context.Background(), search.State{
		Mode:     search.ModeGlobal,
		Query:    "term",
		Plugins:  []plugin.Plugin{files, apps},
		Selected: 1,
		Results: []plugin.Result{
			result("x", "files", "open"),
			result("x", "apps", "launch"),
		},
	})

	require.NoError(t, out.Err)
	assert.Equal(t, []call{{"apps", "x", "launch"}}, exec.calls, "colliding ids resolve by origin")
	assert.Zero(t, files.searches+apps.searches, "index strategy never re-searches")
}

func TestRun_ResearchStrategy(t *testing.T) {
	r, exec, _ := newTestResolver(am.ProvenanceResearch)
	files := &stubPlugin{id: "files", results: map[string][]string{"term": {"a"}}}
	apps := &stubPlugin{id: "apps", results: map[string][]string{"term": {"b"}}}
	clip := &stubPlugin{id: "clipboard", results: map[string][]string{"term": {"b"}}}

	out := r.Run(context.Background(), search.State{
		Mode:    search.ModeGlobal,
		Query:   "term",
		Plugins: []plugin.Plugin{files, apps, clip},
		Results: []plugin.Result{result("b", "", "open")},
	})

	require.NoError(t, out.Err)
	assert.Equal(t, "apps", out.PluginID, "first plugin in registration order owns it")
	assert.Equal(t, []call{{"apps", "b", "open"}}, exec.calls)
	assert.Zero(t, clip.searches, "search stops at the first owner")
}

func TestRun_NoOwnerSkipsWithoutHostCall(t *testing.T) {
	for _, strategy := range []string{am.ProvenanceIndex, am.ProvenanceResearch} {
		t.Run(strategy, func(t *testing.T) {
			r, exec, _ := newTestResolver(strategy)
			files := &stubPlugin{id: "files", results: map[string][]string{"term": {"other"}}}

			out := r.Run(context.Background(), search.State{
				Mode:    search.ModeGlobal,
				Query:   "term",
				Plugins: []plugin.Plugin{files},
				Results: []plugin.Result{result("ghost", "", "open")},
			})

			assert.True(t, out.Skipped)
			assert.True(t, errors.Is(out.Err, errors.ErrActionResolution))
			assert.Empty(t, exec.calls)
		})
	}
}

func TestRun_NoActionsIsNoop(t *testing.T) {
	r, exec, _ := newTestResolver(am.ProvenanceIndex)

	out := r.Run(context.Background(), search.State{
		Mode:    search.ModeGlobal,
		Results: []plugin.Result{result("bare", "files")},
	})
	assert.True(t, out.Skipped)
	assert.NoError(t, out.Err)
	assert.Empty(t, exec.calls)
}

func TestRun_NoSelection(t *testing.T) {
	r, exec, _ := newTestResolver(am.ProvenanceIndex)
	out := r.Run(context.Background(), search.State{})
	assert.True(t, out.Skipped)
	assert.Empty(t, exec.calls)
}

func TestRun_ExecutionFailureIsContained(t *testing.T) {
	r, exec, _ := newTestResolver(am.ProvenanceIndex)
	exec.err = errors.New("plugin unloaded")

	out := r.Run(context.Background(), search.State{
		Mode:    search.ModeGlobal,
		Results: []plugin.Result{result("x", "files", "open")},
	})
	assert.True(t, errors.Is(out.Err, errors.ErrActionResolution))
	assert.Len(t, exec.calls, 1)

	assert.NotPanics(t, func() {
		r.ExecuteSelected(context.Background(), search.State{
			Mode:    search.ModeGlobal,
			Results: []plugin.Result{result("x", "files", "open")},
		})
	})
}

func TestRun_Builtin(t *testing.T) {
	r, exec, builtins := newTestResolver(am.ProvenanceIndex)

	out := r.Run(context.Background(), search.State{
		Mode:    search.ModeGlobal,
		Results: []plugin.Result{result("builtin:settings", search.OriginBuiltin, "run")},
	})
	require.NoError(t, out.Err)
	assert.Equal(t, []string{"builtin:settings"}, builtins.ran)
	assert.Empty(t, exec.calls)
}

func TestNewResolver_UnknownStrategyUsesIndex(t *testing.T) {
	r, _, _ := newTestResolver("guess")
	assert.Equal(t, am.ProvenanceIndex, r.strategy)
}
