package am

import (
	"github.com/kballard/go-shellquote"

	"github.com/teranos/dossier/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Build.Manifest == "" {
		return invalid(errors.New("build.manifest cannot be empty"))
	}

	words, err := shellquote.Split(c.Build.Command)
	if err != nil {
		return invalid(errors.Wrapf(err, "build.command %q is not valid shell syntax", c.Build.Command))
	}
	if len(words) == 0 {
		return invalid(errors.New("build.command cannot be empty"))
	}

	// 0 debounce rebuilds on every event, negative is invalid
	if c.Build.DebounceMS < 0 {
		return invalid(errors.Newf("build.debounce_ms must be >= 0, got %d", c.Build.DebounceMS))
	}

	// 0 concurrency means one build per logical core
	if c.Build.Concurrency < 0 {
		return invalid(errors.Newf("build.concurrency must be >= 0, got %d", c.Build.Concurrency))
	}

	switch c.Search.Provenance {
	case ProvenanceIndex, ProvenanceResearch:
	default:
		return invalid(errors.Newf("search.provenance must be %q or %q, got %q",
			ProvenanceIndex, ProvenanceResearch, c.Search.Provenance))
	}

	if c.Host.RequestTimeoutMS < 0 {
		return invalid(errors.Newf("host.request_timeout_ms must be >= 0, got %d", c.Host.RequestTimeoutMS))
	}

	return nil
}

func invalid(err error) error {
	return errors.Mark(err, errors.ErrInvalidConfig)
}
