package dispatch

import (
	"runtime/debug"

	"github.com/Iron-Ham/handoff/internal/event"
	"github.com/Iron-Ham/handoff/internal/task"
)

// Deliver processes one message on the delivery context. Hosts call it for
// every message their Poster delivers, in order, from a single goroutine.
//
//   - Finished runs the task's success listener at most once, drops its
//     other listeners, and releases the owner if no task remains.
//   - Broken does the same with the failure listener.
//   - Stopped discards every pending task of the owner it names without
//     running any listener. Tasks of other owners are untouched.
//   - Progress runs the progress listener of its task.
//   - Any other value runs every registered progress listener.
func (d *Dispatcher) Deliver(msg any) {
	switch m := msg.(type) {
	case Finished:
		d.deliverFinished(m)
	case Broken:
		d.deliverBroken(m)
	case Stopped:
		d.deliverStopped(m)
	case Progress:
		d.deliverScopedProgress(m)
	default:
		d.deliverBroadcast(msg)
	}
}

func (d *Dispatcher) deliverFinished(m Finished) {
	ownerID := d.reg.Owner(m.ID)
	fn := d.reg.ConsumeSuccess(m.ID)
	known := d.reg.Remove(m.ID)

	listened := fn != nil
	if listened {
		d.stats.succeeded.Add(1)
		d.call(m.ID, "success", func() { fn(m.Value) })
	} else {
		d.stats.dropped.Add(1)
		d.logger.Debug("finished task has no listener",
			"task_id", uint64(m.ID),
			"known", known,
		)
	}

	d.publish(event.NewTaskDeliveredEvent(uint64(m.ID), event.OutcomeSuccess, listened))
	d.releaseIfIdle(ownerID)
}

func (d *Dispatcher) deliverBroken(m Broken) {
	ownerID := d.reg.Owner(m.ID)
	fn := d.reg.ConsumeFailure(m.ID)
	known := d.reg.Remove(m.ID)

	listened := fn != nil
	if listened {
		d.stats.failed.Add(1)
		d.call(m.ID, "failure", func() { fn(m.Err) })
	} else {
		d.stats.dropped.Add(1)
		d.logger.Debug("broken task has no listener",
			"task_id", uint64(m.ID),
			"known", known,
			"error", m.Err,
		)
	}

	d.publish(event.NewTaskDeliveredEvent(uint64(m.ID), event.OutcomeFailure, listened))
	d.releaseIfIdle(ownerID)
}

// deliverStopped discards the tasks of an owner that went inactive and
// detaches its hook. A stop is never ignored: an owner does not come back
// once inactive, so a stop that arrives after the owner was released and
// bound again still finds only work that must not be delivered.
func (d *Dispatcher) deliverStopped(m Stopped) {
	d.mu.Lock()
	n := d.reg.ClearOwner(m.Owner)
	hook := d.hooks[m.Owner]
	delete(d.hooks, m.Owner)
	d.mu.Unlock()

	if hook != nil {
		hook.detach()
	}

	d.stats.discarded.Add(uint64(n))
	if n > 0 {
		d.logger.Info("owner stopped, discarded pending tasks",
			"owner_id", m.Owner,
			"discarded", n,
		)
	}
	d.publish(event.NewTaskDiscardedEvent(m.Owner, n))
}

func (d *Dispatcher) deliverScopedProgress(m Progress) {
	fn := d.reg.Progress(m.ID)
	if fn == nil {
		return
	}
	d.stats.progress.Add(1)
	d.call(m.ID, "progress", func() { fn(m.Payload) })
	d.publish(event.NewProgressPostedEvent(uint64(m.ID), 1))
}

func (d *Dispatcher) deliverBroadcast(msg any) {
	fns := d.reg.ProgressListeners()
	for _, fn := range fns {
		d.stats.progress.Add(1)
		d.call(0, "progress", func() { fn(msg) })
	}
	d.publish(event.NewProgressPostedEvent(0, len(fns)))
}

// call runs a listener, recovering and logging a panic so that one bad
// listener cannot stall the delivery context.
func (d *Dispatcher) call(id task.ID, kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked",
				"task_id", uint64(id),
				"listener", kind,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
