package commands

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/dossier/action"
	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/host"
	"github.com/teranos/dossier/host/local"
	"github.com/teranos/dossier/host/ws"
	"github.com/teranos/dossier/logger"
	"github.com/teranos/dossier/plugin"
	"github.com/teranos/dossier/search"
	"github.com/teranos/dossier/settings"
)

// loadConfig honours the --config flag, falling back to the standard sources
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return am.LoadFromFile(path)
	}
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.WithHint(err, "run 'dossier config show' to inspect the merged configuration")
	}
	return cfg, nil
}

// ConfigWantsJSONLog reports whether the configuration asks for JSON logs.
// Configuration errors are left for the command itself to report.
func ConfigWantsJSONLog(cmd *cobra.Command) bool {
	cfg, err := loadConfig(cmd)
	return err == nil && cfg.Log.JSON
}

// resolveRoot picks the plugin root: argument, then build.root, then the directory
// holding the dossier binary
func resolveRoot(cfg *am.Config, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.Build.Root != "" {
		return cfg.Build.Root, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", errors.WithHint(
			errors.Wrap(err, "failed to locate the dossier binary"),
			"pass the plugin root as an argument",
		)
	}
	return filepath.Dir(exe), nil
}

// newLocalHost builds the in-process host with the bundled providers
func newLocalHost(cfg *am.Config) (*local.Host, *settings.Store, error) {
	store := settings.NewStore(cfg.Host.SettingsPath, logger.ComponentLogger("settings"))
	h := local.New(store, logger.ComponentLogger("host"))
	if err := h.Register(local.NewWebSearch(nil)); err != nil {
		return nil, nil, err
	}
	return h, store, nil
}

// openBridge connects to the configured host, or starts the in-process one
func openBridge(ctx context.Context, cfg *am.Config) (host.Bridge, func() error, *settings.Store, error) {
	if cfg.Host.Address != "" {
		timeout := time.Duration(cfg.Host.RequestTimeoutMS) * time.Millisecond
		client, err := ws.Dial(ctx, cfg.Host.Address, timeout, logger.ComponentLogger("host"))
		if err != nil {
			return nil, nil, nil, err
		}
		return client, client.Close, nil, nil
	}

	h, store, err := newLocalHost(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return h, func() error { return nil }, store, nil
}

// session wires the registry, orchestrator and resolver over one bridge
type session struct {
	bridge       host.Bridge
	registry     *plugin.Registry
	orchestrator *search.Orchestrator
	resolver     *action.Resolver
	close        func() error
}

func newSession(ctx context.Context, cfg *am.Config) (*session, error) {
	bridge, closeFn, store, err := openBridge(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log := logger.ComponentLogger("search")
	registry := plugin.NewRegistry(bridge, cfg.Host.Version, logger.ComponentLogger("registry"))
	registry.OnActivate(func(ctx context.Context, info plugin.Info) {
		log.Debugw("Plugin activated", logger.FieldPlugin, info.ID)
	})

	orchestrator := search.New(registry, bridge, search.Options{Fallback: cfg.Search.FallbackPlugin}, log)
	if cfg.Search.BuiltinCommands {
		orchestrator.SetBuiltins(search.DefaultBuiltins(bridge, orchestrator.Reload))
	}

	resolver := action.NewResolver(bridge, orchestrator, cfg.Search.Provenance, logger.ComponentLogger("action"))
	orchestrator.SetExecutor(resolver)

	if store != nil {
		store.Subscribe(func(settings.Settings) {
			_ = orchestrator.Reload(ctx)
		})
	}

	if err := orchestrator.Reload(ctx); err != nil {
		_ = closeFn()
		return nil, err
	}
	orchestrator.Settle()

	return &session{
		bridge:       bridge,
		registry:     registry,
		orchestrator: orchestrator,
		resolver:     resolver,
		close:        closeFn,
	}, nil
}
