// Package task holds the data side of the dispatcher: task identities and
// the registry of callback sets keyed by them.
//
// A task moves through
//
//	registered -> submitted -> delivered (success or failure) | discarded
//
// and is removed from the [Registry] as soon as it reaches a terminal state.
// The registry never runs listeners itself; it only hands them out, and the
// Consume* operations remove a listener as they return it so that it can
// fire at most once.
package task
