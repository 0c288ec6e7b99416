package am

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// AppName names the per-user configuration directory
	AppName = "dossier"

	// DefaultDirPermissions is used for directories dossier creates
	DefaultDirPermissions = 0o755

	// DefaultDebounceMS is the watch-mode quiet period
	DefaultDebounceMS = 500
)

// ConfigDir returns ~/.config/dossier (or ./.config/dossier when no home is known)
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", AppName)
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Build pipeline defaults
	v.SetDefault("build.root", "")
	v.SetDefault("build.deploy_dir", filepath.Join(ConfigDir(), "plugins"))
	v.SetDefault("build.manifest", "Cargo.toml")
	v.SetDefault("build.command", "cargo build --release")
	v.SetDefault("build.output_subpath", filepath.Join("target", "release"))
	v.SetDefault("build.debounce_ms", DefaultDebounceMS)
	v.SetDefault("build.concurrency", 0)
	v.SetDefault("build.watch_glob", "*.rs")

	// Search defaults
	v.SetDefault("search.fallback_plugin", "google")
	v.SetDefault("search.provenance", ProvenanceIndex)
	v.SetDefault("search.builtin_commands", true)

	// Host defaults
	v.SetDefault("host.address", "")
	v.SetDefault("host.settings_path", filepath.Join(ConfigDir(), "settings.json"))
	v.SetDefault("host.version", "0.1.0")
	v.SetDefault("host.request_timeout_ms", 10000)
	v.SetDefault("host.listen", "localhost:8877")

	v.SetDefault("log.json", false)
}

// Defaults returns the built-in configuration, ignoring files and environment
func Defaults() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return LoadWithViper(v)
}
