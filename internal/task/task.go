package task

import (
	"context"
	"strconv"
	"sync/atomic"
)

// ID identifies one registered unit of work end to end. Zero is never issued.
type ID uint64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IDGenerator mints process-unique task identities.
// It is safe for concurrent use.
type IDGenerator struct {
	last atomic.Uint64
}

// Next returns a fresh identity. The first identity is 1.
func (g *IDGenerator) Next() ID {
	return ID(g.last.Add(1))
}

// Work is the background half of a task. It runs on a worker goroutine; a
// non-nil error or a panic makes the task fail. The context carries the
// task's identity and lets the work report progress to its own listener.
type Work func(ctx context.Context) (any, error)

// ProgressFunc receives progress messages on the delivery context.
type ProgressFunc func(msg any)

// SuccessFunc receives the value returned by Work on the delivery context.
type SuccessFunc func(value any)

// FailureFunc receives the failure captured from Work on the delivery context.
type FailureFunc func(err error)

// CallbackSet is everything registered under one identity.
// Every listener is optional.
type CallbackSet struct {
	Work       Work
	OnProgress ProgressFunc
	OnSuccess  SuccessFunc
	OnFailure  FailureFunc
}

// State is the position of a task in its lifecycle.
type State string

const (
	// StateUnknown is reported for identities the registry does not hold:
	// never registered, or already delivered or discarded.
	StateUnknown State = "unknown"
	// StateRegistered means listeners may still be attached.
	StateRegistered State = "registered"
	// StateSubmitted means the work was handed to the pool.
	StateSubmitted State = "submitted"
)

// ListenerKind names one of the three listener slots.
type ListenerKind string

const (
	KindProgress ListenerKind = "progress"
	KindSuccess  ListenerKind = "success"
	KindFailure  ListenerKind = "failure"
)
