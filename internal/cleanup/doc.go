// Package cleanup runs the periodic sweep: stale sessions are closed out
// through the engine and old history rows are archived.
package cleanup
