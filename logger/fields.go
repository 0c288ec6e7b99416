package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across dossier.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Plugins
	FieldPlugin = "plugin"

	// Build pipeline
	FieldProject   = "project"
	FieldDir       = "dir"
	FieldArtifact  = "artifact"
	FieldDeployDir = "deploy_dir"
	FieldCommand   = "command"
	FieldExitCode  = "exit_code"

	// Search
	FieldQuery      = "query"
	FieldMode       = "mode"
	FieldGeneration = "generation"
	FieldResultID   = "result_id"
	FieldActionID   = "action_id"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"

	// Network
	FieldAddress   = "address"
	FieldRequestID = "request_id"
	FieldMethod    = "method"
)

type contextKey string

const requestIDKey contextKey = "logger_request_id"

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	return fields
}

// FromContext returns base with the fields carried by ctx
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	p := build.NewPipeline(cfg, runner, logger.ComponentLogger("build"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
