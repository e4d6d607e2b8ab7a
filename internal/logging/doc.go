// Package logging builds the application's slog loggers and holds the shared
// attribute conventions.
package logging
