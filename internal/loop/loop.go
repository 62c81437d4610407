// Package loop provides a headless delivery context: a single goroutine that
// drains posted messages in order and hands each to a handler.
//
// The TUI gets its delivery context from the bubbletea event loop. Loop is
// the same thing for hosts without a UI, such as the run command and tests.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/queue"
)

// ErrClosed is returned by Do after the loop was closed.
var ErrClosed = errors.New("loop closed")

// call is a function queued by Do, run on the loop in place of the handler.
// state moves from callQueued to exactly one of callStarted or callAbandoned.
type call struct {
	fn    func()
	done  chan struct{}
	state *atomic.Int32
}

const (
	callQueued int32 = iota
	callStarted
	callAbandoned
)

// Loop serializes messages onto one goroutine.
type Loop struct {
	handler func(msg any)
	msgs    *queue.Queue[any]
	logger  *logging.Logger

	running   atomic.Bool
	delivered atomic.Uint64
	done      chan struct{}
}

// New creates a loop that passes every posted message to handler.
// Call Run to start draining.
func New(handler func(msg any), logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Loop{
		handler: handler,
		msgs:    queue.New[any](),
		logger:  logger.WithPhase("loop"),
		done:    make(chan struct{}),
	}
}

// Post enqueues msg. It never blocks and never runs the handler itself.
// Messages posted after Close are dropped.
func (l *Loop) Post(msg any) {
	if !l.msgs.Push(msg) {
		l.logger.Debug("dropping message posted after close", "type", typeName(msg))
	}
}

// Do runs fn on the loop goroutine, after every message posted before it,
// and waits for it to return.
//
// If ctx ends before the loop reaches fn, fn is skipped and Do returns
// ctx.Err(). Once fn has started, Do waits for it and returns nil.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{}), state: new(atomic.Int32)}
	if !l.msgs.Push(c) {
		return ErrClosed
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		if c.state.CompareAndSwap(callQueued, callAbandoned) {
			return ctx.Err()
		}
		<-c.done
		return nil
	}
}

// Run drains messages until ctx ends or the loop is closed and empty.
// Only one Run may be active at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop already running")
	}
	defer close(l.done)

	for {
		msg, err := l.msgs.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			return err
		}
		l.dispatch(msg)
	}
}

// Close stops accepting messages. Run returns once the backlog is drained.
func (l *Loop) Close() {
	l.msgs.Close()
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Pending returns the number of queued messages.
func (l *Loop) Pending() int {
	return l.msgs.Len()
}

// Delivered returns how many messages the handler has processed.
func (l *Loop) Delivered() uint64 {
	return l.delivered.Load()
}

func (l *Loop) dispatch(msg any) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("handler panicked",
				"type", typeName(msg),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if c, ok := msg.(call); ok {
		if !c.state.CompareAndSwap(callQueued, callStarted) {
			return
		}
		defer close(c.done)
		c.fn()
		return
	}
	l.handler(msg)
	l.delivered.Add(1)
}

func typeName(msg any) string {
	return fmt.Sprintf("%T", msg)
}
