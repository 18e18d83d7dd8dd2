// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the server (tool,
// tier, operation, status, user_hash), helpers for constructing those
// attributes, and PII-safe representations of user identifiers and
// tokens. The Setup function configures the process-wide default logger
// from the server configuration.
package logging
