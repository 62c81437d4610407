// Package errors provides centralized error definitions and error handling utilities
// for handoff. It defines the sentinel errors of the dispatcher, the error types that
// carry task context across the background/owner boundary, and classification helpers.
//
// # Error Types
//
// Three kinds of failure are modeled:
//
//   - WorkError: a work function returned an error. Delivered as a Broken outcome.
//   - PanicError: a work function panicked. The panic is recovered at the task
//     boundary and delivered as a Broken outcome, never crashing the worker.
//   - MisuseError: a caller used the registration API out of order (attaching a
//     listener after submit, submitting an unknown task). Misuse is a no-op for
//     the dispatcher; the error is only returned to callers that care.
//
// # Usage
//
//	if errors.Is(err, errors.ErrUnknownTask) { ... }
//
//	var pe *errors.PanicError
//	if errors.As(err, &pe) {
//	    log.Printf("work panicked: %v\n%s", pe.Value, pe.Stack)
//	}
//
//	if errors.IsWorkFailure(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Registration and submission sentinel errors
var (
	// ErrUnknownTask indicates that a task identity was never registered or has
	// already been removed (delivered, or discarded by a stop).
	ErrUnknownTask = New("unknown task")
	// ErrAlreadySubmitted indicates that a task was already handed to the pool.
	ErrAlreadySubmitted = New("task already submitted")
	// ErrDuplicateListener indicates that a listener kind was registered twice on
	// the same task while strict listener checking is enabled.
	ErrDuplicateListener = New("duplicate listener")
)

// Execution sentinel errors
var (
	// ErrPoolClosed indicates that the background pool no longer accepts work.
	ErrPoolClosed = New("pool closed")
	// ErrOwnerGone indicates that the owner of a task went inactive before
	// delivery. It is never delivered to listeners; it only appears in logs
	// and discard events.
	ErrOwnerGone = New("owner gone")
	// ErrWorkPanicked matches any PanicError via errors.Is.
	ErrWorkPanicked = New("work panicked")
)

// -----------------------------------------------------------------------------
// WorkError
// -----------------------------------------------------------------------------

// WorkError wraps an error returned by a task's work function.
//
// Example:
//
//	err := errors.NewWorkError(7, io.ErrUnexpectedEOF)
//	fmt.Println(err) // "task 7 failed: unexpected EOF"
type WorkError struct {
	TaskID uint64
	Err    error
}

// NewWorkError creates a new WorkError.
func NewWorkError(taskID uint64, err error) *WorkError {
	return &WorkError{TaskID: taskID, Err: err}
}

// Error returns the formatted error message.
func (e *WorkError) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.TaskID, e.Err)
}

// Unwrap returns the error returned by the work function.
func (e *WorkError) Unwrap() error {
	return e.Err
}

// Severity returns the error severity.
func (e *WorkError) Severity() Severity {
	return SeverityWarning
}

// -----------------------------------------------------------------------------
// PanicError
// -----------------------------------------------------------------------------

// PanicError is a panic recovered from a task's work function.
type PanicError struct {
	TaskID uint64
	Value  any
	Stack  string
}

// NewPanicError creates a new PanicError.
func NewPanicError(taskID uint64, value any, stack string) *PanicError {
	return &PanicError{TaskID: taskID, Value: value, Stack: stack}
}

// Error returns the formatted error message. The stack is omitted; it is
// available on the Stack field.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.TaskID, e.Value)
}

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is matches ErrWorkPanicked.
func (e *PanicError) Is(target error) bool {
	return target == ErrWorkPanicked
}

// Severity returns the error severity.
func (e *PanicError) Severity() Severity {
	return SeverityError
}

// -----------------------------------------------------------------------------
// MisuseError
// -----------------------------------------------------------------------------

// MisuseError records an out-of-order use of the registration API.
//
// Example:
//
//	err := errors.NewMisuseError("attach success", 3, errors.ErrAlreadySubmitted)
//	fmt.Println(err) // "attach success [task=3]: task already submitted"
type MisuseError struct {
	Op     string
	TaskID uint64
	Err    error
}

// NewMisuseError creates a new MisuseError.
func NewMisuseError(op string, taskID uint64, err error) *MisuseError {
	return &MisuseError{Op: op, TaskID: taskID, Err: err}
}

// Error returns the formatted error message.
func (e *MisuseError) Error() string {
	var parts []string
	if e.TaskID != 0 {
		parts = append(parts, fmt.Sprintf("task=%d", e.TaskID))
	}
	prefix := e.Op
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", e.Op, strings.Join(parts, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap returns the underlying sentinel.
func (e *MisuseError) Unwrap() error {
	return e.Err
}

// Severity returns the error severity.
func (e *MisuseError) Severity() Severity {
	return SeverityWarning
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsWorkFailure reports whether err came out of a work function, either as a
// returned error or a recovered panic.
func IsWorkFailure(err error) bool {
	var we *WorkError
	if errors.As(err, &we) {
		return true
	}
	var pe *PanicError
	return errors.As(err, &pe)
}

// IsMisuse reports whether err describes a misuse of the registration API.
func IsMisuse(err error) bool {
	var me *MisuseError
	if errors.As(err, &me) {
		return true
	}
	return errors.Is(err, ErrUnknownTask) || errors.Is(err, ErrAlreadySubmitted)
}

// GetSeverity returns the severity of err, defaulting to SeverityError for
// errors that carry none.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var s interface{ Severity() Severity }
	if errors.As(err, &s) {
		return s.Severity()
	}
	return SeverityError
}

// Wrap wraps err with a message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
