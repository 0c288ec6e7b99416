// Package search routes launcher queries to plugins and owns the result selection.
//
// Routing is a pure state machine (see Reduce). The Orchestrator applies events to it,
// performs the searches it asks for and publishes each new state. Every query mutation
// opens a new generation; results from an older generation are discarded, so a slow
// plugin can never overwrite the results of a newer query.
package search

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
	"github.com/teranos/dossier/plugin"
)

// Loader supplies the enabled plugins
type Loader interface {
	Load(ctx context.Context) []plugin.Plugin
}

// Executor runs the primary action of the selected result
type Executor interface {
	ExecuteSelected(ctx context.Context, st State)
}

// Key is a navigation key understood by HandleKey
type Key string

const (
	KeyDown   Key = "Down"
	KeyUp     Key = "Up"
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Options configures an Orchestrator
type Options struct {
	// Fallback is the id of the plugin searched when global results are empty
	Fallback string

	// Builtins are offered ahead of plugin results in global mode
	Builtins []Builtin
}

// Orchestrator drives one search session
type Orchestrator struct {
	loader   Loader
	window   Window
	executor Executor
	opts     Options
	logger   *zap.SugaredLogger

	mu          sync.Mutex
	state       State
	seq         uint64
	cancel      context.CancelFunc
	subscribers []func(State)

	// publishMu serializes delivery. Subscribers must not dispatch.
	publishMu sync.Mutex
	published uint64

	inflight sync.WaitGroup
}

// New creates an orchestrator in the Idle state with no plugins
func New(loader Loader, window Window, opts Options, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		loader: loader,
		window: window,
		opts:   opts,
		logger: logger,
	}
}

// SetExecutor attaches the action executor used for KeyEnter
func (o *Orchestrator) SetExecutor(e Executor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.executor = e
}

// SetBuiltins replaces the built-in commands
func (o *Orchestrator) SetBuiltins(builtins []Builtin) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts.Builtins = builtins
}

// Subscribe registers fn to receive published states in reduction order. fn runs
// under the publish lock and must not call Dispatch or its wrappers.
func (o *Orchestrator) Subscribe(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

// State returns the current snapshot
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Settle blocks until every search started so far has published or been discarded
func (o *Orchestrator) Settle() {
	o.inflight.Wait()
}

// Reload fetches the plugin list from the loader and re-runs the current query
func (o *Orchestrator) Reload(ctx context.Context) error {
	plugins := o.loader.Load(ctx)
	o.Dispatch(ctx, PluginsLoaded{Plugins: plugins})
	return nil
}

// SetQuery replaces the query text
func (o *Orchestrator) SetQuery(ctx context.Context, query string) State {
	return o.Dispatch(ctx, QueryChanged{Query: query})
}

// Hover selects the result at index, clamped to the result list
func (o *Orchestrator) Hover(ctx context.Context, index int) State {
	return o.Dispatch(ctx, Hover{Index: index})
}

// HandleKey applies a navigation key
func (o *Orchestrator) HandleKey(ctx context.Context, key Key) State {
	switch key {
	case KeyDown:
		return o.Dispatch(ctx, NavigateDown{})
	case KeyUp:
		return o.Dispatch(ctx, NavigateUp{})
	case KeyEnter:
		st := o.State()
		o.mu.Lock()
		executor := o.executor
		o.mu.Unlock()
		if executor != nil {
			executor.ExecuteSelected(ctx, st)
		}
		return st
	case KeyEscape:
		return o.Hide(ctx)
	default:
		o.logger.Debugw("Ignoring unknown key", "key", string(key))
		return o.State()
	}
}

// Hide hides the window and resets the session. The state is left untouched when
// the host refuses to hide.
func (o *Orchestrator) Hide(ctx context.Context) State {
	if err := o.window.SetWindowShown(ctx, false); err != nil {
		o.logger.Errorw("Failed to hide window", logger.FieldError, err)
		return o.State()
	}
	return o.Dispatch(ctx, Hidden{})
}

// Toggle flips window visibility and clears the query
func (o *Orchestrator) Toggle(ctx context.Context) State {
	if err := o.window.ToggleWindow(ctx); err != nil {
		o.logger.Errorw("Failed to toggle window", logger.FieldError, err)
		return o.State()
	}
	return o.Dispatch(ctx, Hidden{})
}

// RunBuiltin executes the built-in command with the given result id
func (o *Orchestrator) RunBuiltin(ctx context.Context, resultID string) error {
	o.mu.Lock()
	builtins := o.opts.Builtins
	o.mu.Unlock()

	for _, b := range builtins {
		if b.Result.ID == resultID {
			return b.Run(ctx)
		}
	}
	return errors.NewNotFoundError("built-in command %s", resultID)
}

// Dispatch applies e and carries out the resulting effects
func (o *Orchestrator) Dispatch(ctx context.Context, e Event) State {
	o.mu.Lock()
	previous := o.state.Generation
	next, fx := Reduce(o.state, e)
	o.state = next
	o.seq++
	seq := o.seq

	if next.Generation != previous && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}

	var searchCtx context.Context
	var cancel context.CancelFunc
	if fx.Search != nil {
		searchCtx, cancel = context.WithCancel(ctx)
		o.cancel = cancel
		o.inflight.Add(1)
	}
	subscribers := slices.Clone(o.subscribers)
	o.mu.Unlock()

	if fx.Activate != nil {
		o.activate(ctx, fx.Activate)
	}

	o.publish(seq, next, subscribers)

	if fx.Search != nil {
		req := *fx.Search
		o.logger.Debugw("Searching",
			logger.FieldQuery, req.Text,
			logger.FieldMode, req.Mode.String(),
			logger.FieldGeneration, req.Generation)

		go func() {
			defer o.inflight.Done()
			defer cancel()
			arrived := o.run(searchCtx, req)
			o.Dispatch(ctx, arrived)
		}()
	}
	return next
}

// publish delivers st to subscribers in the order states were reduced. A state
// reduced before the last delivered one is dropped.
func (o *Orchestrator) publish(seq uint64, st State, subscribers []func(State)) {
	o.publishMu.Lock()
	defer o.publishMu.Unlock()

	if seq < o.published {
		o.logger.Debugw("Dropping superseded state", logger.FieldGeneration, st.Generation)
		return
	}
	o.published = seq
	for _, fn := range subscribers {
		fn(st)
	}
}

// activate calls the plugin's activation hook, isolated from panics
func (o *Orchestrator) activate(ctx context.Context, p plugin.Plugin) {
	activator, ok := p.(plugin.Activator)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorw("Plugin activation panicked", logger.FieldPlugin, p.Info().ID, "panic", r)
		}
	}()
	activator.Activate(ctx)
}

func (o *Orchestrator) run(ctx context.Context, req Request) ResultsArrived {
	arrived := ResultsArrived{Generation: req.Generation}

	switch req.Mode {
	case ModeScoped:
		resp := o.search(ctx, req.Plugin, req.Text)
		arrived.Results = tag(resp.Results, req.Plugin.Info().ID)
		arrived.HTML = resp.HTML

	case ModeGlobal:
		arrived.Results = o.global(ctx, req)
	}
	return arrived
}

// global collects built-in matches, then every plugin's results in registration
// order, then the fallback plugin's results if nothing matched
func (o *Orchestrator) global(ctx context.Context, req Request) []plugin.Result {
	o.mu.Lock()
	builtins := o.opts.Builtins
	o.mu.Unlock()

	results := o.builtins(builtins, req.Text)

	slots := make([][]plugin.Result, len(req.Plugins))
	var g errgroup.Group
	for i, p := range req.Plugins {
		g.Go(func() error {
			resp := o.search(ctx, p, req.Text)
			if resp.IsHTML() {
				o.logger.Debugw("Ignoring HTML response in global search", logger.FieldPlugin, p.Info().ID)
			}
			slots[i] = tag(resp.Results, p.Info().ID)
			return nil
		})
	}
	_ = g.Wait()

	for _, slot := range slots {
		results = append(results, slot...)
	}
	if len(results) > 0 || o.opts.Fallback == "" {
		return results
	}

	for _, p := range req.Plugins {
		if p.Info().ID == o.opts.Fallback {
			resp := o.search(ctx, p, req.Text)
			return tag(resp.Results, p.Info().ID)
		}
	}
	return results
}

// builtins matches built-in commands, degrading to no matches on failure
func (o *Orchestrator) builtins(builtins []Builtin, query string) (results []plugin.Result) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.SearchFailure(errors.Newf("panic: %s", fmt.Sprint(r)), OriginBuiltin)
			o.logger.Warnw("Built-in command match failed", logger.FieldError, err)
			results = nil
		}
	}()
	return matchBuiltins(builtins, query)
}

// search queries one plugin. Failures and panics are logged and yield an empty response.
func (o *Orchestrator) search(ctx context.Context, p plugin.Plugin, query string) (resp plugin.SearchResponse) {
	id := p.Info().ID
	defer func() {
		if r := recover(); r != nil {
			err := errors.SearchFailure(errors.Newf("panic: %s", fmt.Sprint(r)), id)
			o.logger.Warnw("Plugin search failed", logger.FieldPlugin, id, logger.FieldError, err)
			resp = plugin.SearchResponse{}
		}
	}()

	resp, err := p.Search(ctx, query)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warnw("Plugin search failed",
				logger.FieldPlugin, id,
				logger.FieldError, errors.SearchFailure(err, id))
		}
		return plugin.SearchResponse{}
	}
	return resp
}

// tag records the producing plugin on each result
func tag(results []plugin.Result, origin string) []plugin.Result {
	if len(results) == 0 {
		return nil
	}
	out := make([]plugin.Result, len(results))
	for i, r := range results {
		r.Origin = origin
		out[i] = r
	}
	return out
}
