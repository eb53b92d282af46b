// Package engine owns the single raid session slot, the mutex that
// serializes every mutation, and the background timers that drive phase
// transitions. All state changes flow through Engine methods; the session
// itself never leaves the package.
package engine
