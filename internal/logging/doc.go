// Package logging constructs the shared slog logger and provides attribute
// helpers and standardized field names used across the daemon.
package logging
