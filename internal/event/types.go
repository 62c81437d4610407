package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "owner.inactive", "task.delivered")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeOwnerInactive  = "owner.inactive"
	TypeTaskSubmitted  = "task.submitted"
	TypeTaskDelivered  = "task.delivered"
	TypeTaskDiscarded  = "task.discarded"
	TypeProgressPosted = "task.progress"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Owner Lifecycle Events
// -----------------------------------------------------------------------------

// OwnerInactiveEvent is emitted when an owner stops being a valid delivery
// target. Owners may emit it more than once; subscribers must be idempotent.
type OwnerInactiveEvent struct {
	baseEvent
	OwnerID string
	Name    string
}

// NewOwnerInactiveEvent creates an OwnerInactiveEvent.
func NewOwnerInactiveEvent(ownerID, name string) OwnerInactiveEvent {
	return OwnerInactiveEvent{
		baseEvent: newBaseEvent(TypeOwnerInactive),
		OwnerID:   ownerID,
		Name:      name,
	}
}

// -----------------------------------------------------------------------------
// Task Events
// -----------------------------------------------------------------------------

// Outcome names used in TaskDeliveredEvent.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// TaskSubmittedEvent is emitted when a task's work is handed to the pool.
type TaskSubmittedEvent struct {
	baseEvent
	TaskID  uint64
	OwnerID string
}

// NewTaskSubmittedEvent creates a TaskSubmittedEvent.
func NewTaskSubmittedEvent(taskID uint64, ownerID string) TaskSubmittedEvent {
	return TaskSubmittedEvent{
		baseEvent: newBaseEvent(TypeTaskSubmitted),
		TaskID:    taskID,
		OwnerID:   ownerID,
	}
}

// TaskDeliveredEvent is emitted on the delivery context after a terminal
// outcome was routed. Listened reports whether a listener actually ran.
type TaskDeliveredEvent struct {
	baseEvent
	TaskID   uint64
	Outcome  string
	Listened bool
}

// NewTaskDeliveredEvent creates a TaskDeliveredEvent.
func NewTaskDeliveredEvent(taskID uint64, outcome string, listened bool) TaskDeliveredEvent {
	return TaskDeliveredEvent{
		baseEvent: newBaseEvent(TypeTaskDelivered),
		TaskID:    taskID,
		Outcome:   outcome,
		Listened:  listened,
	}
}

// TaskDiscardedEvent is emitted when an owner stop discarded pending tasks.
type TaskDiscardedEvent struct {
	baseEvent
	OwnerID string
	Count   int
}

// NewTaskDiscardedEvent creates a TaskDiscardedEvent.
func NewTaskDiscardedEvent(ownerID string, count int) TaskDiscardedEvent {
	return TaskDiscardedEvent{
		baseEvent: newBaseEvent(TypeTaskDiscarded),
		OwnerID:   ownerID,
		Count:     count,
	}
}

// ProgressPostedEvent is emitted after a progress message reached listeners.
// TaskID is zero for broadcast progress.
type ProgressPostedEvent struct {
	baseEvent
	TaskID    uint64
	Listeners int
}

// NewProgressPostedEvent creates a ProgressPostedEvent.
func NewProgressPostedEvent(taskID uint64, listeners int) ProgressPostedEvent {
	return ProgressPostedEvent{
		baseEvent: newBaseEvent(TypeProgressPosted),
		TaskID:    taskID,
		Listeners: listeners,
	}
}
