// Package local is an in-process host: providers compiled into the binary stand in
// for native plugin libraries, and settings come from a settings.json store.
package local

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/host"
	"github.com/teranos/dossier/logger"
	"github.com/teranos/dossier/plugin"
	"github.com/teranos/dossier/settings"
)

// Provider is a plugin implementation served by the local host
type Provider interface {
	Info() plugin.Info
	Search(ctx context.Context, query string) (plugin.SearchResponse, error)
	Execute(ctx context.Context, resultID, actionID string) (string, error)
}

// WindowController receives window signals. Without one the host only tracks state.
type WindowController interface {
	SetShown(ctx context.Context, shown bool) error
	OpenSettings(ctx context.Context) error
}

// Host serves registered providers through the host.Bridge interface
type Host struct {
	store  *settings.Store
	logger *zap.SugaredLogger

	mu        sync.RWMutex
	providers []Provider
	byID      map[string]Provider
	window    WindowController
	shown     bool
}

// New creates a local host reading settings from store
func New(store *settings.Store, logger *zap.SugaredLogger) *Host {
	return &Host{
		store:  store,
		logger: logger,
		byID:   make(map[string]Provider),
	}
}

// Register adds a provider. Catalog order is registration order.
func (h *Host) Register(p Provider) error {
	id := p.Info().ID
	if id == "" {
		return errors.New("provider has no id")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.byID[id]; exists {
		return errors.Newf("provider %s already registered", id)
	}
	h.providers = append(h.providers, p)
	h.byID[id] = p
	return nil
}

// SetWindowController attaches the window implementation
func (h *Host) SetWindowController(w WindowController) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.window = w
}

// Shown reports the last requested window visibility
func (h *Host) Shown() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.shown
}

func (h *Host) ListPlugins(ctx context.Context) ([]plugin.Info, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]plugin.Info, 0, len(h.providers))
	for _, p := range h.providers {
		infos = append(infos, p.Info())
	}
	return infos, nil
}

func (h *Host) GetSettings(ctx context.Context) (settings.Settings, error) {
	return h.store.Load()
}

// SearchPlugin answers an empty result list for unknown plugin ids
func (h *Host) SearchPlugin(ctx context.Context, pluginID, query string) (resp plugin.SearchResponse, err error) {
	p, ok := h.provider(pluginID)
	if !ok {
		h.logger.Debugw("Search for unknown plugin", logger.FieldPlugin, pluginID)
		return plugin.SearchResponse{}, nil
	}

	defer recoverProvider(pluginID, "search", &err)
	return p.Search(ctx, query)
}

// ExecutePluginAction runs the action and hides the launcher window afterwards
func (h *Host) ExecutePluginAction(ctx context.Context, pluginID, resultID, actionID string) (string, error) {
	p, ok := h.provider(pluginID)
	if !ok {
		return "", errors.NewNotFoundError("plugin %s", pluginID)
	}

	message, err := h.execute(ctx, p, pluginID, resultID, actionID)
	if err != nil {
		return "", err
	}

	if err := h.SetWindowShown(ctx, false); err != nil {
		h.logger.Warnw("Failed to hide window after action", logger.FieldError, err)
	}
	return message, nil
}

func (h *Host) execute(ctx context.Context, p Provider, pluginID, resultID, actionID string) (message string, err error) {
	defer recoverProvider(pluginID, "execute", &err)
	message, err = p.Execute(ctx, resultID, actionID)
	if err != nil {
		return "", errors.Wrapf(err, "plugin %s failed to execute %s", pluginID, actionID)
	}
	return message, nil
}

func (h *Host) SetWindowShown(ctx context.Context, shown bool) error {
	h.mu.Lock()
	h.shown = shown
	window := h.window
	h.mu.Unlock()

	if window == nil {
		h.logger.Debugw("Window visibility changed", "shown", shown)
		return nil
	}
	return window.SetShown(ctx, shown)
}

func (h *Host) ToggleWindow(ctx context.Context) error {
	return h.SetWindowShown(ctx, !h.Shown())
}

func (h *Host) OpenSettingsWindow(ctx context.Context) error {
	h.mu.RLock()
	window := h.window
	h.mu.RUnlock()

	if window == nil {
		h.logger.Infow("Settings window requested", "settings_path", h.store.Path())
		return nil
	}
	return window.OpenSettings(ctx)
}

func (h *Host) provider(id string) (Provider, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.byID[id]
	return p, ok
}

// recoverProvider turns a provider panic into an error on the deferring call
func recoverProvider(pluginID, op string, err *error) {
	if r := recover(); r != nil {
		*err = errors.Newf("plugin %s panicked during %s: %s", pluginID, op, fmt.Sprint(r))
	}
}

var _ host.Bridge = (*Host)(nil)
