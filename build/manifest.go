package build

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/teranos/dossier/errors"
)

// Manifest is the subset of Cargo.toml the pipeline reads
type Manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Lib struct {
		Name      string   `toml:"name"`
		CrateType []string `toml:"crate-type"`
	} `toml:"lib"`
}

// ReadManifest parses the manifest at path
func ReadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse manifest %s", path)
	}
	return &m, nil
}

// ProducesLibrary reports whether the crate is configured to emit a loadable shared library
func (m *Manifest) ProducesLibrary() bool {
	return slices.Contains(m.Lib.CrateType, "cdylib") || slices.Contains(m.Lib.CrateType, "dylib")
}

// hasManifest reports whether dir contains a regular file named manifest
func hasManifest(dir, manifest string) bool {
	info, err := os.Stat(filepath.Join(dir, manifest))
	return err == nil && info.Mode().IsRegular()
}
