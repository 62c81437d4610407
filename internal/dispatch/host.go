package dispatch

// Executor runs functions on background goroutines. pool.Pool implements it.
type Executor interface {
	// Execute schedules fn and returns immediately. An error means fn will
	// never run.
	Execute(fn func()) error
}

// Poster schedules messages onto the single serialized delivery context.
// loop.Loop and the TUI's program poster implement it.
//
// Post must be callable from any goroutine, must not block, and must
// preserve the order of messages posted from one goroutine. It must not
// call Deliver synchronously.
type Poster interface {
	Post(msg any)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func()) error

// Execute calls f(fn).
func (f ExecutorFunc) Execute(fn func()) error { return f(fn) }

// PosterFunc adapts a function to Poster.
type PosterFunc func(msg any)

// Post calls f(msg).
func (f PosterFunc) Post(msg any) { f(msg) }
