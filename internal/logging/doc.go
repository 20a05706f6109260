// Package logging assembles the structured slog loggers used across scrub.
//
// It owns the console/JSON handler selection, level parsing, and the typed
// attribute helpers, so commands and engines emit log lines with a uniform
// shape. Prefer these constructors over hand-rolled slog setup.
package logging
