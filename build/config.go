package build

import (
	"runtime"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/teranos/dossier/am"
	"github.com/teranos/dossier/errors"
)

// Config is the resolved pipeline configuration
type Config struct {
	DeployDir     string
	Manifest      string
	Command       []string
	OutputSubpath string
	Debounce      time.Duration
	Concurrency   int
	WatchGlob     string

	// GOOS selects the shared-library extensions to harvest
	GOOS string
}

// ConfigFrom resolves the [build] config section
func ConfigFrom(c am.BuildConfig) (Config, error) {
	command, err := ParseCommand(c.Command)
	if err != nil {
		return Config{}, err
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency()
	}

	return Config{
		DeployDir:     c.DeployDir,
		Manifest:      c.Manifest,
		Command:       command,
		OutputSubpath: c.OutputSubpath,
		Debounce:      time.Duration(c.DebounceMS) * time.Millisecond,
		Concurrency:   concurrency,
		WatchGlob:     c.WatchGlob,
		GOOS:          runtime.GOOS,
	}, nil
}

// ParseCommand splits a shell-quoted toolchain invocation into argv
func ParseCommand(command string) ([]string, error) {
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "invalid build command %q", command), errors.ErrInvalidConfig)
	}
	if len(argv) == 0 {
		return nil, errors.Mark(errors.New("build command is empty"), errors.ErrInvalidConfig)
	}
	return argv, nil
}

// DefaultConcurrency is the number of logical cores
func DefaultConcurrency() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
