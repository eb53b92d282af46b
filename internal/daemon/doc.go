// Package daemon wires the raid engine, scheduler, cleanup sweep, and
// control API into a single-instance background process guarded by a file
// lock.
package daemon
