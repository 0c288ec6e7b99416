// Package errors provides error handling for dossier.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints and details
//
// Usage:
//
//	// Wrap with context
//	if err := runBuild(); err != nil {
//	    return errors.Wrapf(err, "failed to build %s", project)
//	}
//
//	// Mark with a category so callers can branch on it
//	return errors.Mark(err, errors.ErrBuildFailed)
//
//	// Check errors
//	if errors.Is(err, errors.ErrNoArtifact) {
//	    // warn, do not fail
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Failure categories of the plugin subsystem.
// Mark errors with these so callers can use errors.Is regardless of the wrapped cause.
var (
	// ErrBuildFailed indicates the toolchain exited non-zero for one project
	ErrBuildFailed = New("build failed")

	// ErrNoArtifact indicates a build succeeded but produced no shared library
	ErrNoArtifact = New("no library produced")

	// ErrRegistryLoad indicates the host catalog or settings could not be fetched
	ErrRegistryLoad = New("plugin registry load failed")

	// ErrSearchFailed indicates a single search source failed
	ErrSearchFailed = New("search failed")

	// ErrActionResolution indicates the owning plugin could not be determined
	// or the action execution call failed
	ErrActionResolution = New("action resolution failed")

	// ErrPluginNotFound indicates the host has no plugin with the requested id
	ErrPluginNotFound = New("plugin not found")

	// ErrInvalidConfig indicates configuration failed validation
	ErrInvalidConfig = New("invalid configuration")
)

// IsBuildFailure checks if an error is or wraps ErrBuildFailed
func IsBuildFailure(err error) bool {
	return err != nil && Is(err, ErrBuildFailed)
}

// IsNoArtifact checks if an error is or wraps ErrNoArtifact
func IsNoArtifact(err error) bool {
	return err != nil && Is(err, ErrNoArtifact)
}

// IsPluginNotFound checks if an error is or wraps ErrPluginNotFound
func IsPluginNotFound(err error) bool {
	return err != nil && Is(err, ErrPluginNotFound)
}

// BuildFailure marks err as a build failure for project, keeping the cause readable.
func BuildFailure(err error, project string) error {
	return Mark(Wrapf(err, "build of %s failed", project), ErrBuildFailed)
}

// SearchFailure marks err as a search failure for the given source.
func SearchFailure(err error, source string) error {
	return Mark(Wrapf(err, "search via %s failed", source), ErrSearchFailed)
}

// NewNotFoundError creates a plugin-not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrPluginNotFound, Newf(format, args...).Error())
}
