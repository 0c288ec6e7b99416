// Package settings persists the launcher's user settings in settings.json.
//
// The file is shared with the launcher UI, so keys keep the UI's camelCase names.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// Shortcuts are the global key bindings the launcher registers
type Shortcuts struct {
	ToggleWindow string `json:"toggleWindow"`
	HideWindow   string `json:"hideWindow"`
	OpenSettings string `json:"openSettings"`
}

// Settings is the persisted settings document
type Settings struct {
	// EnabledPlugins maps plugin id to enabled state. Absent ids are enabled.
	EnabledPlugins map[string]bool `json:"enabledPlugins,omitempty"`
	Shortcuts      Shortcuts       `json:"shortcuts"`
	Transparency   float64         `json:"transparency"`
}

// Defaults returns the settings used when no file exists
func Defaults() Settings {
	return Settings{
		EnabledPlugins: map[string]bool{},
		Shortcuts: Shortcuts{
			ToggleWindow: "Ctrl+R",
			HideWindow:   "Escape",
			OpenSettings: "Ctrl+Comma",
		},
		Transparency: 0.8,
	}
}

// IsEnabled reports whether id is enabled; only an explicit false disables a plugin
func (s Settings) IsEnabled(id string) bool {
	enabled, ok := s.EnabledPlugins[id]
	return !ok || enabled
}

// ChangeFunc is called with the new settings after every successful Save
type ChangeFunc func(Settings)

// Store reads and writes a settings.json file
type Store struct {
	path   string
	logger *zap.SugaredLogger

	// writeMu serializes writers so read-modify-write updates are not lost
	writeMu sync.Mutex

	mu          sync.Mutex
	subscribers []ChangeFunc
}

// NewStore creates a store backed by path
func NewStore(path string, logger *zap.SugaredLogger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. A missing file yields Defaults();
// keys absent from the file keep their default values.
func (s *Store) Load() (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return Settings{}, errors.Wrapf(err, "failed to read settings file %s", s.path)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, errors.Wrapf(err, "failed to parse settings file %s", s.path)
	}
	if settings.EnabledPlugins == nil {
		settings.EnabledPlugins = map[string]bool{}
	}
	return settings, nil
}

// Save writes settings atomically and notifies subscribers
func (s *Store) Save(settings Settings) error {
	s.writeMu.Lock()
	err := s.write(settings)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.notify(settings)
	return nil
}

func (s *Store) write(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize settings")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary settings file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write settings file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write settings file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace settings file %s", s.path)
	}

	s.logger.Debugw("Settings saved", "path", s.path)
	return nil
}

func (s *Store) notify(settings Settings) {
	s.mu.Lock()
	subscribers := make([]ChangeFunc, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(settings)
	}
}

// SetEnabled persists the enabled state of one plugin
func (s *Store) SetEnabled(pluginID string, enabled bool) error {
	s.writeMu.Lock()
	settings, err := s.Load()
	if err == nil {
		settings.EnabledPlugins[pluginID] = enabled
		err = s.write(settings)
	}
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debugw("Plugin enabled state changed", logger.FieldPlugin, pluginID, "enabled", enabled)
	s.notify(settings)
	return nil
}

// Subscribe registers fn to run after every Save ("settings-changed")
func (s *Store) Subscribe(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
