// Package logging builds the slog loggers used by scribe: a console handler
// for interactive runs and a JSON handler for machine-readable logs, plus
// attribute helpers and the shared field-name constants.
package logging
