// Package am loads dossier configuration ("I am").
//
// Sources merge in precedence order, lowest first:
//
//	defaults < /etc/dossier/dossier.toml < ~/.config/dossier/dossier.toml
//	         < ./dossier.toml (found walking up from cwd) < DOSSIER_* env vars
package am

// Config represents the dossier configuration
type Config struct {
	Build  BuildConfig  `mapstructure:"build" toml:"build" yaml:"build"`
	Search SearchConfig `mapstructure:"search" toml:"search" yaml:"search"`
	Host   HostConfig   `mapstructure:"host" toml:"host" yaml:"host"`
	Log    LogConfig    `mapstructure:"log" toml:"log" yaml:"log"`
}

// BuildConfig configures the plugin build pipeline
type BuildConfig struct {
	Root          string `mapstructure:"root" toml:"root" yaml:"root"`                               // Plugin source root (empty = directory of the dossier binary)
	DeployDir     string `mapstructure:"deploy_dir" toml:"deploy_dir" yaml:"deploy_dir"`             // Receives built shared libraries
	Manifest      string `mapstructure:"manifest" toml:"manifest" yaml:"manifest"`                   // File marking a directory as a plugin project
	Command       string `mapstructure:"command" toml:"command" yaml:"command"`                      // Toolchain invocation, shell-quoted
	OutputSubpath string `mapstructure:"output_subpath" toml:"output_subpath" yaml:"output_subpath"` // Release output, relative to the project
	DebounceMS    int    `mapstructure:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms"`          // Quiet period before a watch rebuild
	Concurrency   int    `mapstructure:"concurrency" toml:"concurrency" yaml:"concurrency"`          // Simultaneous builds (0 = logical cores)
	WatchGlob     string `mapstructure:"watch_glob" toml:"watch_glob" yaml:"watch_glob"`             // Source files that trigger rebuilds
}

// SearchConfig configures query routing
type SearchConfig struct {
	FallbackPlugin  string `mapstructure:"fallback_plugin" toml:"fallback_plugin" yaml:"fallback_plugin"`    // Searched when global results are empty
	Provenance      string `mapstructure:"provenance" toml:"provenance" yaml:"provenance"`                   // "index" or "research"
	BuiltinCommands bool   `mapstructure:"builtin_commands" toml:"builtin_commands" yaml:"builtin_commands"` // Offer Settings/Hide/Reload in global results
}

// HostConfig configures the host bridge
type HostConfig struct {
	Address          string `mapstructure:"address" toml:"address" yaml:"address"`                                  // ws:// URL of a remote host (empty = in-process)
	SettingsPath     string `mapstructure:"settings_path" toml:"settings_path" yaml:"settings_path"`                // settings.json of the in-process host
	Version          string `mapstructure:"version" toml:"version" yaml:"version"`                                  // Host version checked against plugin constraints
	RequestTimeoutMS int    `mapstructure:"request_timeout_ms" toml:"request_timeout_ms" yaml:"request_timeout_ms"` // Per-call timeout for remote host calls
	Listen           string `mapstructure:"listen" toml:"listen" yaml:"listen"`                                     // Address used by `dossier serve`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" yaml:"json"`
}

// Provenance strategies for resolving which plugin owns a global result
const (
	ProvenanceIndex    = "index"
	ProvenanceResearch = "research"
)
