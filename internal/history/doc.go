// Package history persists raid sessions, participants, and per-player
// aggregates in SQLite. Live sessions are written at start so a crash leaves
// a recoverable row; terminal updates close the row with an outcome.
package history
