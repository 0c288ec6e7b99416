package plugin

import (
	"context"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// Registry exposes the host's enabled plugins as searchable capabilities.
// The plugin list is rebuilt on every Load.
type Registry struct {
	host        Host
	hostVersion *semver.Version // nil when the host version is not semver (e.g., "dev")
	logger      *zap.SugaredLogger
	onActivate  func(ctx context.Context, info Info)

	mu      sync.RWMutex
	plugins []Plugin
	byID    map[string]Plugin
}

// NewRegistry creates a registry backed by host.
// hostVersion is checked against each plugin's HostVersion constraint.
func NewRegistry(host Host, hostVersion string, logger *zap.SugaredLogger) *Registry {
	r := &Registry{
		host:   host,
		logger: logger,
		byID:   make(map[string]Plugin),
	}

	if v, err := semver.NewVersion(hostVersion); err == nil {
		r.hostVersion = v
	} else {
		logger.Debugw("Host version is not semver, plugin constraints will not be checked",
			"host_version", hostVersion)
	}

	return r
}

// OnActivate sets the hook invoked when a query becomes scoped to a plugin
func (r *Registry) OnActivate(fn func(ctx context.Context, info Info)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onActivate = fn
}

// Load fetches the catalog and settings from the host and returns the enabled plugins
// in catalog order. It never fails: on any host error it logs and returns an empty
// list, leaving the session with no plugins instead of crashing it.
func (r *Registry) Load(ctx context.Context) []Plugin {
	plugins, err := r.load(ctx)
	if err != nil {
		r.logger.Errorw("Failed to load plugins", logger.FieldError, errors.Mark(err, errors.ErrRegistryLoad))
		plugins = nil
	}

	r.mu.Lock()
	r.plugins = plugins
	r.byID = make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		r.byID[p.Info().ID] = p
	}
	r.mu.Unlock()

	return r.Plugins()
}

func (r *Registry) load(ctx context.Context) ([]Plugin, error) {
	catalog, err := r.host.ListPlugins(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list plugins")
	}

	settings, err := r.host.GetSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get settings")
	}

	r.mu.RLock()
	onActivate := r.onActivate
	r.mu.RUnlock()

	seen := make(map[string]bool, len(catalog))
	plugins := make([]Plugin, 0, len(catalog))
	for _, info := range catalog {
		switch {
		case info.ID == "":
			r.logger.Warnw("Skipping plugin without id", "name", info.Name)
			continue
		case seen[info.ID]:
			r.logger.Warnw("Skipping duplicate plugin id", logger.FieldPlugin, info.ID)
			continue
		case !settings.IsEnabled(info.ID):
			r.logger.Debugw("Skipping disabled plugin", logger.FieldPlugin, info.ID)
			continue
		}
		if err := r.checkCompatible(info); err != nil {
			r.logger.Warnw("Skipping incompatible plugin", logger.FieldPlugin, info.ID, logger.FieldError, err)
			continue
		}

		seen[info.ID] = true
		plugins = append(plugins, &hostPlugin{info: info, host: r.host, onActivate: onActivate})
	}

	r.logger.Infow("Plugins loaded", logger.FieldCount, len(plugins), "catalog", len(catalog))
	return plugins, nil
}

// checkCompatible validates a plugin's host version constraint
func (r *Registry) checkCompatible(info Info) error {
	if info.HostVersion == "" || r.hostVersion == nil {
		return nil
	}

	constraint, err := semver.NewConstraint(info.HostVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid host version constraint %q", info.HostVersion)
	}
	if !constraint.Check(r.hostVersion) {
		return errors.Newf("plugin requires host %s, but running %s", info.HostVersion, r.hostVersion)
	}
	return nil
}

// Plugins returns the plugins from the last Load, in registration order
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Get retrieves a loaded plugin by id
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// hostPlugin is a Plugin whose search is a call back into the host scoped by its id
type hostPlugin struct {
	info       Info
	host       Host
	onActivate func(ctx context.Context, info Info)
}

func (p *hostPlugin) Info() Info {
	return p.info
}

func (p *hostPlugin) Search(ctx context.Context, query string) (SearchResponse, error) {
	return p.host.SearchPlugin(ctx, p.info.ID, query)
}

func (p *hostPlugin) Activate(ctx context.Context) {
	if p.onActivate != nil {
		p.onActivate(ctx, p.info)
	}
}

var _ Activator = (*hostPlugin)(nil)
