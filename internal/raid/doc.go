// Package raid contains the domain model for a single raid session: the
// session aggregate, its lifecycle states and legal transitions, milestone
// derivation, and the pure validation rules applied before any mutation.
// Nothing in this package locks or performs I/O; the engine package owns
// serialization and side effects.
package raid
