package build

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/errors"
)

// LibraryExtensions returns the shared-library extensions harvested on goos
func LibraryExtensions(goos string) []string {
	if goos == "windows" {
		return []string{".dll"}
	}
	return []string{".so", ".dylib"}
}

// isLibrary reports whether name ends in one of exts (case-insensitive)
func isLibrary(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}

// harvest copies every library in outputDir into deployDir, overwriting same-named
// files. A missing outputDir yields no artifacts.
func harvest(outputDir, deployDir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read build output %s", outputDir)
	}

	var deployed []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isLibrary(entry.Name(), exts) {
			continue
		}
		dst := filepath.Join(deployDir, entry.Name())
		if err := copyFile(filepath.Join(outputDir, entry.Name()), dst); err != nil {
			return deployed, err
		}
		deployed = append(deployed, dst)
	}
	return deployed, nil
}

// copyFile replaces dst with a copy of src. The copy is staged next to dst and
// renamed over it so a host loading dst never sees a partial library.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open artifact %s", src)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return errors.Wrapf(err, "failed to stage artifact in %s", filepath.Dir(dst))
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to copy artifact %s", src)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to copy artifact %s", src)
	}
	if err := os.Chmod(tmpName, 0o755); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to set artifact permissions")
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to deploy artifact %s", dst)
	}
	return nil
}

// ensureDeployDir creates the deployment directory if it does not exist
func ensureDeployDir(dir string) error {
	if err := os.MkdirAll(dir, am.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create deploy directory %s", dir)
	}
	return nil
}
