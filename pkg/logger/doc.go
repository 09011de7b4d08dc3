// Package logger builds slog loggers with per-environment defaults and
// automatic injection of context values like request IDs.
package logger
