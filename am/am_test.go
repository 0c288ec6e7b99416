package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dossier/errors"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "Cargo.toml", cfg.Build.Manifest)
	assert.Equal(t, "cargo build --release", cfg.Build.Command)
	assert.Equal(t, filepath.Join("target", "release"), cfg.Build.OutputSubpath)
	assert.Equal(t, 500, cfg.Build.DebounceMS)
	assert.Equal(t, 0, cfg.Build.Concurrency)
	assert.Equal(t, filepath.Join(ConfigDir(), "plugins"), cfg.Build.DeployDir)
	assert.Equal(t, "google", cfg.Search.FallbackPlugin)
	assert.Equal(t, ProvenanceIndex, cfg.Search.Provenance)
	assert.True(t, cfg.Search.BuiltinCommands)
	assert.Empty(t, cfg.Host.Address)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "zero debounce is valid", mutate: func(c *Config) { c.Build.DebounceMS = 0 }},
		{name: "negative debounce", mutate: func(c *Config) { c.Build.DebounceMS = -1 }, wantErr: "build.debounce_ms"},
		{name: "negative concurrency", mutate: func(c *Config) { c.Build.Concurrency = -2 }, wantErr: "build.concurrency"},
		{name: "empty manifest", mutate: func(c *Config) { c.Build.Manifest = "" }, wantErr: "build.manifest"},
		{name: "empty command", mutate: func(c *Config) { c.Build.Command = "   " }, wantErr: "build.command cannot be empty"},
		{name: "unbalanced quotes", mutate: func(c *Config) { c.Build.Command = `cargo "build` }, wantErr: "not valid shell syntax"},
		{name: "unknown provenance", mutate: func(c *Config) { c.Search.Provenance = "guess" }, wantErr: "search.provenance"},
		{name: "research provenance", mutate: func(c *Config) { c.Search.Provenance = ProvenanceResearch }},
		{name: "negative timeout", mutate: func(c *Config) { c.Host.RequestTimeoutMS = -5 }, wantErr: "host.request_timeout_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
[build]
debounce_ms = 250
concurrency = 3

[search]
fallback_plugin = "duck"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Build.DebounceMS)
	assert.Equal(t, 3, cfg.Build.Concurrency)
	assert.Equal(t, "duck", cfg.Search.FallbackPlugin)
	// Untouched keys keep defaults
	assert.Equal(t, "Cargo.toml", cfg.Build.Manifest)
}

func TestMergeConfigFiles_Precedence(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.toml")
	high := filepath.Join(dir, "high.toml")
	require.NoError(t, os.WriteFile(low, []byte("[build]\ndebounce_ms = 100\nconcurrency = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(high, []byte("[build]\ndebounce_ms = 900\n"), 0o644))

	v := viper.New()
	SetDefaults(v)
	mergeConfigFiles(v, []string{low, filepath.Join(dir, "missing.toml"), high})

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, 900, cfg.Build.DebounceMS)
	assert.Equal(t, 2, cfg.Build.Concurrency)
}

func TestSave_RoundTripWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", ConfigFileName)

	cfg := defaultConfig(t)
	cfg.Build.DebounceMS = 750
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 750, loaded.Build.DebounceMS)

	_, err = os.Stat(path + ".back1")
	assert.True(t, os.IsNotExist(err), "first save has nothing to back up")

	cfg.Build.DebounceMS = 300
	require.NoError(t, Save(path, cfg))

	backup, err := LoadFromFile(path + ".back1")
	require.NoError(t, err)
	assert.Equal(t, 750, backup.Build.DebounceMS)
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Build.Concurrency = -1

	err := Save(filepath.Join(t.TempDir(), ConfigFileName), cfg)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
