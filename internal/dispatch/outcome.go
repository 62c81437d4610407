package dispatch

import "github.com/Iron-Ham/handoff/internal/task"

// The message types below are reserved. Deliver routes them specially, and
// any other value is treated as broadcast progress. Application progress
// must never use these types; doing so is a contract violation with
// undefined dispatch.

// Finished is posted when a task's work returned without error.
type Finished struct {
	ID    task.ID
	Value any
}

// Broken is posted when a task's work returned an error or panicked.
// Err is a *errors.WorkError or *errors.PanicError.
type Broken struct {
	ID  task.ID
	Err error
}

// Stopped is posted by a liveness hook when its owner went inactive.
type Stopped struct {
	Owner string
}

// Progress is progress scoped to one task, posted by Report from inside
// the task's work. It only reaches that task's progress listener.
type Progress struct {
	ID      task.ID
	Payload any
}
