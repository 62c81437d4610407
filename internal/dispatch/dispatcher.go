package dispatch

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/handoff/internal/errors"
	"github.com/Iron-Ham/handoff/internal/event"
	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/owner"
	"github.com/Iron-Ham/handoff/internal/task"
	"github.com/sourcegraph/conc/panics"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithStrictListeners makes Submit refuse a task whose listener of some kind
// was registered more than once. Without it the last registration wins and
// the overwrite is only logged.
func WithStrictListeners(strict bool) Option {
	return func(d *Dispatcher) {
		d.strict = strict
	}
}

// WithIDGenerator shares an identity generator between dispatchers, so that
// task IDs stay unique across all of them.
func WithIDGenerator(ids *task.IDGenerator) Option {
	return func(d *Dispatcher) {
		d.ids = ids
	}
}

// WithEventBus publishes task events on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(d *Dispatcher) {
		d.bus = bus
	}
}

// Dispatcher runs task work on an Executor and delivers outcomes through a
// Poster to the owner's delivery context, as long as the owner is alive.
//
// Register, the Handle methods, Submit, Post and Report may be called from
// any goroutine. Deliver must only be called from the delivery context.
type Dispatcher struct {
	exec   Executor
	poster Poster
	logger *logging.Logger
	bus    *event.Bus
	strict bool
	ids    *task.IDGenerator

	reg *task.Registry

	// mu serializes hook binding with the registry changes that decide
	// when a binding ends. hooks holds one liveness hook per owner that
	// still has registered tasks.
	mu    sync.Mutex
	hooks map[string]*livenessHook

	stats struct {
		registered atomic.Uint64
		submitted  atomic.Uint64
		succeeded  atomic.Uint64
		failed     atomic.Uint64
		dropped    atomic.Uint64
		discarded  atomic.Uint64
		progress   atomic.Uint64
		misuse     atomic.Uint64
	}
}

// New creates a Dispatcher on top of a background executor and a poster
// for the owner's delivery context.
func New(exec Executor, poster Poster, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:   exec,
		poster: poster,
		logger: logging.NopLogger(),
		hooks:  make(map[string]*livenessHook),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithPhase("dispatch")
	d.reg = task.NewRegistry(d.ids)
	return d
}

// Register stores work under a fresh identity owned by o and returns a
// handle for attaching listeners and submitting. The first task of an owner
// attaches a liveness hook to it; the hook stays attached until the owner
// has no task left or goes inactive. Tasks of different owners are gated
// independently. A nil owner registers the task without liveness gating:
// no owner's stop ever discards it.
func (d *Dispatcher) Register(o owner.Owner, work task.Work) *Handle {
	var fresh *livenessHook
	var ownerID string

	d.mu.Lock()
	if o != nil {
		ownerID = o.ID()
		if _, ok := d.hooks[ownerID]; !ok {
			fresh = newLivenessHook(o, d.poster, d.logger)
			d.hooks[ownerID] = fresh
		}
	}
	id := d.reg.RegisterOwned(ownerID, work)
	d.mu.Unlock()

	if fresh != nil {
		fresh.attach()
	}

	d.stats.registered.Add(1)
	d.logger.Debug("task registered", "task_id", uint64(id), "owner_id", ownerID)
	return &Handle{d: d, id: id}
}

// Submit hands the work of id to the executor. Submitting an identity that
// is unknown (never registered, or discarded by an owner stop) or already
// submitted does nothing and returns a MisuseError.
func (d *Dispatcher) Submit(id task.ID) error {
	if d.strict {
		if dups := d.reg.Duplicates(id); len(dups) > 0 {
			ownerID := d.reg.Owner(id)
			d.reg.Remove(id)
			d.releaseIfIdle(ownerID)
			d.stats.misuse.Add(1)
			d.logger.Warn("refusing task with duplicate listeners",
				"task_id", uint64(id),
				"kinds", dups,
			)
			return errors.NewMisuseError("submit", uint64(id), errors.ErrDuplicateListener)
		}
	}

	work, err := d.reg.MarkSubmitted(id)
	if err != nil {
		d.stats.misuse.Add(1)
		d.logger.Debug("submit ignored", "task_id", uint64(id), "error", err.Error())
		return err
	}

	if err := d.exec.Execute(d.job(id, work)); err != nil {
		// The failure listener is the only channel back to the caller.
		d.logger.Warn("executor rejected task", "task_id", uint64(id), "error", err.Error())
		d.poster.Post(Broken{ID: id, Err: errors.Wrap(err, "submit")})
		return nil
	}

	d.stats.submitted.Add(1)
	d.publish(event.NewTaskSubmittedEvent(uint64(id), d.reg.Owner(id)))
	d.logger.Debug("task submitted", "task_id", uint64(id))
	return nil
}

// job wraps work so that every way out of it becomes exactly one outcome
// message. Nothing escapes to the executor.
func (d *Dispatcher) job(id task.ID, work task.Work) func() {
	return func() {
		ctx := withTask(context.Background(), id, d.poster)

		var value any
		var err error
		var pc panics.Catcher
		pc.Try(func() {
			if work != nil {
				value, err = work(ctx)
			}
		})

		switch r := pc.Recovered(); {
		case r != nil:
			d.poster.Post(Broken{ID: id, Err: errors.NewPanicError(uint64(id), r.Value, string(r.Stack))})
		case err != nil:
			d.poster.Post(Broken{ID: id, Err: errors.NewWorkError(uint64(id), err)})
		default:
			d.poster.Post(Finished{ID: id, Value: value})
		}
	}
}

// Post sends an application progress message to the delivery context,
// where it reaches every registered progress listener. Callable from any
// goroutine, including from inside work. msg must not be one of the
// reserved outcome types.
func (d *Dispatcher) Post(msg any) {
	d.poster.Post(msg)
}

// Owners returns the identities of the owners that currently have a
// liveness hook attached, sorted.
func (d *Dispatcher) Owners() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.hooks))
}

// HookAttached reports whether any liveness hook is currently bound.
func (d *Dispatcher) HookAttached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.hooks) > 0
}

// HookAttachedTo reports whether a liveness hook is bound to the owner
// with the given identity.
func (d *Dispatcher) HookAttachedTo(ownerID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.hooks[ownerID]
	return ok
}

// Pending returns the number of tasks registered and not yet delivered or discarded.
func (d *Dispatcher) Pending() int {
	return d.reg.Len()
}

// State returns the lifecycle state of id.
func (d *Dispatcher) State(id task.ID) task.State {
	return d.reg.State(id)
}

// releaseIfIdle detaches the liveness hook of ownerID once that owner has
// no task left.
func (d *Dispatcher) releaseIfIdle(ownerID string) {
	if ownerID == "" {
		return
	}

	d.mu.Lock()
	hook, ok := d.hooks[ownerID]
	if !ok || d.reg.OwnerLen(ownerID) > 0 {
		d.mu.Unlock()
		return
	}
	delete(d.hooks, ownerID)
	d.mu.Unlock()

	hook.detach()
	d.logger.Debug("owner released", "owner_id", ownerID)
}

func (d *Dispatcher) publish(e event.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Registered uint64
	Submitted  uint64
	Succeeded  uint64 // terminal success delivered to a listener
	Failed     uint64 // terminal failure delivered to a listener
	Dropped    uint64 // terminal outcome with no listener to receive it
	Discarded  uint64 // tasks wiped by an owner stop
	Progress   uint64 // progress listener invocations
	Misuse     uint64
	Pending    int
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Registered: d.stats.registered.Load(),
		Submitted:  d.stats.submitted.Load(),
		Succeeded:  d.stats.succeeded.Load(),
		Failed:     d.stats.failed.Load(),
		Dropped:    d.stats.dropped.Load(),
		Discarded:  d.stats.discarded.Load(),
		Progress:   d.stats.progress.Load(),
		Misuse:     d.stats.misuse.Load(),
		Pending:    d.reg.Len(),
	}
}
