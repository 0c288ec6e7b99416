package build

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// Target is one plugin project: a directory holding a build manifest
type Target struct {
	// Dir is the absolute project directory
	Dir string

	// Name is the directory's base name, used in reports and logs
	Name string

	// Manifest is the parsed manifest, nil when it could not be parsed.
	// An unparseable manifest is still built; the toolchain reports the problem.
	Manifest *Manifest
}

// Discover returns the immediate subdirectories of root that contain manifest,
// ordered by name. Directories without one are never returned.
func Discover(root, manifest string, log *zap.SugaredLogger) ([]Target, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve plugin root %s", root)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read plugin root %s", abs),
			"pass the plugin source root as an argument or set build.root",
		)
	}

	var targets []Target
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(abs, entry.Name())
		if !hasManifest(dir, manifest) {
			log.Debugw("Skipping directory without manifest", logger.FieldDir, dir)
			continue
		}
		targets = append(targets, newTarget(dir, manifest, log))
	}
	return targets, nil
}

func newTarget(dir, manifest string, log *zap.SugaredLogger) Target {
	t := Target{Dir: dir, Name: filepath.Base(dir)}

	m, err := ReadManifest(filepath.Join(dir, manifest))
	if err != nil {
		log.Warnw("Manifest not readable, building anyway",
			logger.FieldProject, t.Name, logger.FieldError, err)
		return t
	}
	t.Manifest = m
	return t
}
