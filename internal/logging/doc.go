// Package logging builds the slog loggers used by the companion process.
//
// It owns the console and JSON handlers, the shared field keys used in
// structured output, and a few helpers that keep warnings shaped the same way
// across packages (cause, impact and a hint for the operator). A no-op logger
// is provided for tests and for wiring code that runs before configuration is
// loaded.
package logging
