// Package logging provides structured logging utilities for the ktalk-mcp
// application.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "ktalk.list_recordings")
//	logger.Info("listed recordings",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("using saved token",
//	    slog.String("token", logging.SanitizeToken(token)))
//
// Tokens and credentials are never logged directly; SanitizeToken reduces
// them to a length indicator.
package logging
