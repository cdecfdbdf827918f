// Package logging assembles structured slog loggers and formatting helpers used
// across archivist.
//
// It owns the console and JSON handlers, routes warnings and errors to the
// error outputs in addition to the regular outputs, and defines the
// standardized field keys (job_id, cycle_id, event_type, ...) every component
// uses so the same events can be found in either format. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
