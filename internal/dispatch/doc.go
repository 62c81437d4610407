// Package dispatch runs work on background goroutines and delivers its
// outcome back to a single serialized delivery context, but only while the
// owner that registered the work is still alive.
//
// A Dispatcher sits between three collaborators it does not own:
//
//   - an Executor that runs work off the delivery context (pool.Pool),
//   - a Poster that enqueues messages for the delivery context
//     (loop.Loop, or the TUI's program poster),
//   - the Owner whose lifecycle gates delivery (owner.Scope).
//
// Each registered task gets a fresh task.ID and up to three listeners. When
// the work returns, exactly one Finished or Broken message is posted; the
// host hands it back to Deliver on the delivery context, which runs the
// matching listener and forgets the task.
//
// The first Register for an owner attaches a liveness hook to it, and each
// owner with pending work keeps its own hook. If an owner goes inactive while
// its work is pending, the hook posts Stopped and Deliver discards every
// pending task of that owner without running a listener; outcomes that
// arrive later find nothing to deliver to. Once an owner has no task left
// its hook is detached again.
//
// Progress comes in two forms. Post broadcasts a message to every registered
// progress listener. Report, called with the context passed to the work,
// reaches only that task's progress listener.
package dispatch
