// Package action executes the primary action of the selected search result in the
// plugin that produced it.
package action

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
	"github.com/teranos/dossier/plugin"
	"github.com/teranos/dossier/search"
)

// Executor is the host call that runs a plugin action
type Executor interface {
	ExecutePluginAction(ctx context.Context, pluginID, resultID, actionID string) (string, error)
}

// BuiltinRunner runs built-in commands by result id
type BuiltinRunner interface {
	RunBuiltin(ctx context.Context, resultID string) error
}

// Outcome describes what ExecuteSelected did
type Outcome struct {
	PluginID string
	ResultID string
	ActionID string
	Message  string
	Skipped  bool // Nothing was executed
	Err      error
}

// Resolver routes actions to their owning plugin
type Resolver struct {
	executor Executor
	builtins BuiltinRunner
	strategy string
	logger   *zap.SugaredLogger
}

// NewResolver creates a resolver. strategy is am.ProvenanceIndex or
// am.ProvenanceResearch; anything else falls back to the index.
func NewResolver(executor Executor, builtins BuiltinRunner, strategy string, logger *zap.SugaredLogger) *Resolver {
	if strategy != am.ProvenanceResearch {
		strategy = am.ProvenanceIndex
	}
	return &Resolver{
		executor: executor,
		builtins: builtins,
		strategy: strategy,
		logger:   logger,
	}
}

// ExecuteSelected runs the selected result's primary action. It never fails: every
// problem is logged and the action is skipped.
func (r *Resolver) ExecuteSelected(ctx context.Context, st search.State) {
	r.Run(ctx, st)
}

// Run is ExecuteSelected returning what happened
func (r *Resolver) Run(ctx context.Context, st search.State) Outcome {
	result, ok := st.SelectedResult()
	if !ok {
		return Outcome{Skipped: true}
	}
	action, ok := result.PrimaryAction()
	if !ok {
		r.logger.Debugw("Selected result has no actions", logger.FieldResultID, result.ID)
		return Outcome{ResultID: result.ID, Skipped: true}
	}

	out := Outcome{ResultID: result.ID, ActionID: action.ID}

	if result.Origin == search.OriginBuiltin && st.Mode != search.ModeScoped {
		out.PluginID = search.OriginBuiltin
		if r.builtins == nil {
			out.Skipped = true
			return out
		}
		if err := r.builtins.RunBuiltin(ctx, result.ID); err != nil {
			out.Err = errors.Mark(errors.Wrapf(err, "built-in %s failed", result.ID), errors.ErrActionResolution)
			r.logger.Errorw("Built-in command failed", logger.FieldResultID, result.ID, logger.FieldError, out.Err)
		}
		return out
	}

	owner, err := r.owner(ctx, st, result)
	if err != nil {
		out.Skipped = true
		out.Err = errors.Mark(err, errors.ErrActionResolution)
		r.logger.Warnw("Skipping action, owning plugin unknown",
			logger.FieldResultID, result.ID,
			logger.FieldActionID, action.ID,
			logger.FieldError, out.Err)
		return out
	}
	out.PluginID = owner

	message, err := r.executor.ExecutePluginAction(ctx, owner, result.ID, action.ID)
	if err != nil {
		out.Err = errors.Mark(
			errors.Wrapf(err, "action %s on %s failed", action.ID, result.ID),
			errors.ErrActionResolution)
		r.logger.Errorw("Action execution failed",
			logger.FieldPlugin, owner,
			logger.FieldResultID, result.ID,
			logger.FieldActionID, action.ID,
			logger.FieldError, out.Err)
		return out
	}

	out.Message = message
	r.logger.Infow("Action executed",
		logger.FieldPlugin, owner,
		logger.FieldResultID, result.ID,
		logger.FieldActionID, action.ID,
		"message", message)
	return out
}

// owner determines which plugin produced result
func (r *Resolver) owner(ctx context.Context, st search.State, result plugin.Result) (string, error) {
	if st.Mode == search.ModeScoped && st.Active != nil {
		return st.Active.Info().ID, nil
	}

	if r.strategy == am.ProvenanceIndex {
		if result.Origin != "" {
			return result.Origin, nil
		}
		if id, ok := st.Provenance()[result.ID]; ok {
			return id, nil
		}
		return "", errors.Newf("result %s carries no provenance", result.ID)
	}

	return r.research(ctx, st, result.ID)
}

// research re-issues the query to each plugin in registration order and returns the
// first one whose results contain resultID
func (r *Resolver) research(ctx context.Context, st search.State, resultID string) (string, error) {
	for _, p := range st.Plugins {
		id := p.Info().ID
		resp, err := searchSafely(ctx, p, st.Query)
		if err != nil {
			r.logger.Debugw("Provenance search failed", logger.FieldPlugin, id, logger.FieldError, err)
			continue
		}
		for _, candidate := range resp.Results {
			if candidate.ID == resultID {
				return id, nil
			}
		}
	}
	return "", errors.Newf("no plugin returned result %s for %q", resultID, st.Query)
}

func searchSafely(ctx context.Context, p plugin.Plugin, query string) (resp plugin.SearchResponse, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("panic: %s", fmt.Sprint(rec))
		}
	}()
	return p.Search(ctx, query)
}

var _ search.Executor = (*Resolver)(nil)
