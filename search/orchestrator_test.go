package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/plugin"
)

// =============================================================================
// Test fixtures
// =============================================================================

type fakePlugin struct {
	info plugin.Info

	mu          sync.Mutex
	results     map[string][]plugin.Result // query -> results; "*" matches any
	html        string
	err         error
	panics      bool
	delay       time.Duration
	block       map[string]chan struct{} // query -> released when closed
	queries     []string
	activations int
}

func newFakePlugin(id, prefix string) *fakePlugin {
	return &fakePlugin{
		info:    plugin.Info{ID: id, Prefix: prefix},
		results: map[string][]plugin.Result{},
		block:   map[string]chan struct{}{},
	}
}

func (p *fakePlugin) returns(query string, ids ...string) *fakePlugin {
	var results []plugin.Result
	for _, id := range ids {
		results = append(results, plugin.Result{
			ID:      id,
			Title:   id,
			Actions: []plugin.Action{{ID: "open", Label: "Open"}},
		})
	}
	p.results[query] = results
	return p
}

func (p *fakePlugin) Info() plugin.Info { return p.info }

func (p *fakePlugin) Search(ctx context.Context, query string) (plugin.SearchResponse, error) {
	p.mu.Lock()
	p.queries = append(p.queries, query)
	gate := p.block[query]
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.panics {
		panic("index corrupted")
	}
	if p.err != nil {
		return plugin.SearchResponse{}, p.err
	}
	if p.html != "" {
		return plugin.SearchResponse{HTML: p.html}, nil
	}
	if r, ok := p.results[query]; ok {
		return plugin.SearchResponse{Results: r}, nil
	}
	return plugin.SearchResponse{Results: p.results["*"]}, nil
}

func (p *fakePlugin) Activate(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activations++
}

func (p *fakePlugin) searched() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queries...)
}

type fakeLoader struct {
	plugins []plugin.Plugin
	loads   int
}

func (l *fakeLoader) Load(ctx context.Context) []plugin.Plugin {
	l.loads++
	return l.plugins
}

type fakeWindow struct {
	mu       sync.Mutex
	shown    []bool
	toggles  int
	settings int
	err      error
}

func (w *fakeWindow) SetWindowShown(ctx context.Context, shown bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.shown = append(w.shown, shown)
	return nil
}

func (w *fakeWindow) OpenSettingsWindow(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settings++
	return nil
}

func (w *fakeWindow) ToggleWindow(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.toggles++
	return w.err
}

type recordingExecutor struct {
	states []State
}

func (e *recordingExecutor) ExecuteSelected(ctx context.Context, st State) {
	e.states = append(e.states, st)
}

func newTestOrchestrator(t *testing.T, builtins bool, plugins ...plugin.Plugin) (*Orchestrator, *fakeWindow) {
	t.Helper()
	window := &fakeWindow{}
	loader := &fakeLoader{plugins: plugins}
	o := New(loader, window, Options{Fallback: "google"}, zap.NewNop().Sugar())
	if builtins {
		o.SetBuiltins(DefaultBuiltins(window, o.Reload))
	}
	require.NoError(t, o.Reload(context.Background()))
	o.Settle()
	return o, window
}

func query(o *Orchestrator, q string) State {
	o.SetQuery(context.Background(), q)
	o.Settle()
	return o.State()
}

func resultIDs(results []plugin.Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

// =============================================================================
// Scoped search
// =============================================================================

func TestOrchestrator_ScopedSearch(t *testing.T) {
	files := newFakePlugin("files", "f").returns("readme", "readme.md", "README.txt")
	apps := newFakePlugin("apps", "a").returns("*", "app-1")
	o, _ := newTestOrchestrator(t, false, files, apps)

	st := query(o, "f readme")

	assert.Equal(t, ModeScoped, st.Mode)
	assert.Equal(t, "files", st.ActiveID())
	assert.Equal(t, []string{"readme.md", "README.txt"}, resultIDs(st.Results))
	assert.Equal(t, []string{"readme"}, files.searched())
	assert.Empty(t, apps.searched(), "only the active plugin is searched")
	for _, r := range st.Results {
		assert.Equal(t, "files", r.Origin)
	}
	assert.Equal(t, 1, files.activations)
}

func TestOrchestrator_ActivationHookOncePerActivation(t *testing.T) {
	files := newFakePlugin("files", "f")
	o, _ := newTestOrchestrator(t, false, files)

	for _, q := range []string{"f", "f r", "f re", "f rea"} {
		query(o, q)
	}
	assert.Equal(t, 1, files.activations)
}

func TestOrchestrator_ScopedHTML(t *testing.T) {
	color := newFakePlugin("color", "c")
	color.html = `<div style="background:#ff0000"></div>`
	o, _ := newTestOrchestrator(t, false, color)

	st := query(o, "c #ff0000")
	assert.Equal(t, color.html, st.HTML)
	assert.Empty(t, st.Results)
}

// =============================================================================
// Global search
// =============================================================================

func TestOrchestrator_GlobalOrder(t *testing.T) {
	slow := newFakePlugin("slow", "s").returns("*", "s1", "s2")
	slow.delay = 30 * time.Millisecond
	fast := newFakePlugin("fast", "").returns("*", "f1")
	o, _ := newTestOrchestrator(t, false, slow, fast)

	st := query(o, "anything")
	assert.Equal(t, ModeGlobal, st.Mode)
	assert.Equal(t, []string{"s1", "s2", "f1"}, resultIDs(st.Results), "registration order, not arrival order")
	assert.Equal(t, "slow", st.Results[0].Origin)
	assert.Equal(t, "fast", st.Results[2].Origin)
}

func TestOrchestrator_BuiltinsFirst(t *testing.T) {
	files := newFakePlugin("files", "f").returns("*", "settings.json")
	o, _ := newTestOrchestrator(t, true, files)

	st := query(o, "SETT")
	require.Len(t, st.Results, 2)
	assert.Equal(t, "builtin:settings", st.Results[0].ID)
	assert.Equal(t, OriginBuiltin, st.Results[0].Origin)
	assert.Equal(t, "settings.json", st.Results[1].ID)
}

func TestOrchestrator_BuiltinSubtitleMatch(t *testing.T) {
	o, _ := newTestOrchestrator(t, true)
	st := query(o, "catalog")
	assert.Equal(t, []string{"builtin:reload"}, resultIDs(st.Results))
}

func TestOrchestrator_Fallback(t *testing.T) {
	files := newFakePlugin("files", "f")
	apps := newFakePlugin("apps", "a")
	google := newFakePlugin("google", "g")
	o, _ := newTestOrchestrator(t, false, files, apps, google)

	st := query(o, "hello")
	assert.Len(t, google.searched(), 2, "searched in the fan-out and once more as fallback")
	assert.Empty(t, st.Results)
}

func TestOrchestrator_FallbackOnlyWhenEmpty(t *testing.T) {
	files := newFakePlugin("files", "f").returns("hello", "hello.txt")
	google := newFakePlugin("google", "g").returns("hello", "google-hello")
	o, _ := newTestOrchestrator(t, false, files, google)

	st := query(o, "hello")
	assert.Equal(t, []string{"hello.txt", "google-hello"}, resultIDs(st.Results))
	assert.Len(t, google.searched(), 1)
}

func TestOrchestrator_FallbackResultsAreFinal(t *testing.T) {
	files := newFakePlugin("files", "f")
	stub := &fallbackOnly{fakePlugin: newFakePlugin("google", "g")}
	o, _ := newTestOrchestrator(t, false, files, stub)

	st := query(o, "hello")
	assert.Equal(t, []string{"web:hello"}, resultIDs(st.Results))
	assert.Equal(t, "google", st.Results[0].Origin)
}

// fallbackOnly answers empty in the fan-out and with results on its second call
type fallbackOnly struct {
	*fakePlugin
	calls int
	mu    sync.Mutex
}

func (f *fallbackOnly) Search(ctx context.Context, q string) (plugin.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls%2 == 1 {
		return plugin.SearchResponse{}, nil
	}
	return plugin.SearchResponse{Results: []plugin.Result{{ID: "web:" + q, Title: q}}}, nil
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	broken := newFakePlugin("broken", "b")
	broken.err = errors.New("plugin crashed")
	panicky := newFakePlugin("panicky", "p")
	panicky.panics = true
	files := newFakePlugin("files", "f").returns("*", "ok")
	o, _ := newTestOrchestrator(t, false, broken, panicky, files)

	st := query(o, "anything")
	assert.Equal(t, []string{"ok"}, resultIDs(st.Results))
	assert.False(t, st.Loading)

	st = query(o, "p anything")
	assert.Empty(t, st.Results)
	assert.False(t, st.Loading, "failure never leaves the session loading")
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	files := newFakePlugin("files", "f").returns("*", "x")
	o, _ := newTestOrchestrator(t, false, files)

	query(o, "x")
	st := query(o, "")
	assert.Empty(t, st.Results)
	assert.Zero(t, st.Selected)
	assert.Equal(t, []string{"x"}, files.searched(), "empty query never searches")
}

// =============================================================================
// Generations
// =============================================================================

func TestOrchestrator_StaleResponseDiscarded(t *testing.T) {
	files := newFakePlugin("files", "").returns("rea", "stale").returns("read", "fresh")
	gate := make(chan struct{})
	files.block["rea"] = gate
	o, _ := newTestOrchestrator(t, false, files)

	o.SetQuery(context.Background(), "rea")
	o.SetQuery(context.Background(), "read")

	require.Eventually(t, func() bool {
		return len(o.State().Results) == 1
	}, time.Second, 5*time.Millisecond)

	close(gate)
	o.Settle()

	st := o.State()
	assert.Equal(t, []string{"fresh"}, resultIDs(st.Results))
	assert.Equal(t, "read", st.Query)
}

func TestOrchestrator_Subscribe(t *testing.T) {
	files := newFakePlugin("files", "f").returns("*", "x")
	o, _ := newTestOrchestrator(t, false, files)

	var mu sync.Mutex
	var published []State
	o.Subscribe(func(st State) {
		mu.Lock()
		published = append(published, st)
		mu.Unlock()
	})

	query(o, "x")
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, published, 2)
	assert.True(t, published[0].Loading)
	assert.Len(t, published[1].Results, 1)
}

func TestOrchestrator_SubscribersNeverEndOnSupersededState(t *testing.T) {
	files := newFakePlugin("files", "f").returns("hello", "greeting")
	o, _ := newTestOrchestrator(t, false, files)
	ctx := context.Background()

	paused := make(chan struct{})
	resume := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var last State
	o.Subscribe(func(st State) {
		if len(st.Results) > 0 {
			once.Do(func() {
				close(paused)
				<-resume
			})
		}
		mu.Lock()
		last = st
		mu.Unlock()
	})

	o.SetQuery(ctx, "hello")
	<-paused

	cleared := make(chan struct{})
	go func() {
		defer close(cleared)
		o.SetQuery(ctx, "")
	}()
	time.Sleep(50 * time.Millisecond)
	close(resume)
	<-cleared
	o.Settle()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ModeIdle, last.Mode)
	assert.Empty(t, last.Results)
	assert.Equal(t, o.State().Generation, last.Generation)
}

// =============================================================================
// Keys and window
// =============================================================================

func TestOrchestrator_HandleKey(t *testing.T) {
	files := newFakePlugin("files", "f").returns("*", "a", "b", "c")
	o, window := newTestOrchestrator(t, false, files)
	exec := &recordingExecutor{}
	o.SetExecutor(exec)
	ctx := context.Background()

	query(o, "f x")
	o.HandleKey(ctx, KeyDown)
	o.HandleKey(ctx, KeyDown)
	o.HandleKey(ctx, KeyDown)
	assert.Equal(t, 2, o.State().Selected)
	o.HandleKey(ctx, KeyUp)
	assert.Equal(t, 1, o.State().Selected)

	o.HandleKey(ctx, KeyEnter)
	require.Len(t, exec.states, 1)
	selected, ok := exec.states[0].SelectedResult()
	require.True(t, ok)
	assert.Equal(t, "b", selected.ID)

	st := o.HandleKey(ctx, KeyEscape)
	assert.Equal(t, "", st.Query)
	assert.Nil(t, st.Active)
	assert.Zero(t, st.Selected)
	assert.Equal(t, []bool{false}, window.shown)
}

func TestOrchestrator_HideFailureKeepsState(t *testing.T) {
	files := newFakePlugin("files", "f").returns("*", "a")
	o, window := newTestOrchestrator(t, false, files)
	query(o, "f x")

	window.err = errors.New("window gone")
	st := o.Hide(context.Background())
	assert.Equal(t, "f x", st.Query)
}

func TestOrchestrator_Toggle(t *testing.T) {
	o, window := newTestOrchestrator(t, false, newFakePlugin("files", "f"))
	query(o, "f x")

	st := o.Toggle(context.Background())
	assert.Equal(t, 1, window.toggles)
	assert.Equal(t, "", st.Query)
	assert.Zero(t, st.Selected)
}

func TestOrchestrator_RunBuiltin(t *testing.T) {
	o, window := newTestOrchestrator(t, true)
	ctx := context.Background()

	require.NoError(t, o.RunBuiltin(ctx, "builtin:settings"))
	assert.Equal(t, 1, window.settings)

	require.NoError(t, o.RunBuiltin(ctx, "builtin:hide"))
	assert.Equal(t, []bool{false}, window.shown)

	loader := o.loader.(*fakeLoader)
	before := loader.loads
	require.NoError(t, o.RunBuiltin(ctx, "builtin:reload"))
	assert.Equal(t, before+1, loader.loads)

	assert.True(t, errors.IsPluginNotFound(o.RunBuiltin(ctx, "builtin:nope")))
}
