// Package logging assembles structured slog loggers and formatting helpers used
// across hlsladder.
//
// It owns the console and JSON handlers, fans a run's output to the terminal
// and to a JSON log file, and exposes context-aware helpers so pipeline code
// tags log lines with the run ID, lesson, phase, and rendition automatically.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
