// Package event provides a pub-sub event bus for decoupled communication
// between owners, the dispatcher, and hosts in handoff.
//
// Owners publish their lifecycle transitions on the bus; the liveness hook
// of the dispatcher listens for them. The dispatcher in turn publishes task
// events that hosts (the TUI status bar, the headless runner) can observe
// without holding a reference to the dispatcher.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Owner Lifecycle:
//   - [OwnerInactiveEvent]: an owner stopped being a valid delivery target
//
// Tasks:
//   - [TaskSubmittedEvent]: work was handed to the background pool
//   - [TaskDeliveredEvent]: a terminal outcome was routed on the delivery context
//   - [TaskDiscardedEvent]: an owner stop discarded pending tasks
//   - [ProgressPostedEvent]: a progress message reached its listeners
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// on the publishing goroutine, without the bus lock held, and are protected
// against panics.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeOwnerInactive, func(e event.Event) {
//	    inactive := e.(event.OwnerInactiveEvent)
//	    log.Printf("owner %s went away", inactive.OwnerID)
//	})
//
//	bus.Publish(event.NewOwnerInactiveEvent("3f2a...", "main screen"))
package event
