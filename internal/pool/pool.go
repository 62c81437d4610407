// Package pool provides the fixed-size background executor that runs task work.
//
// Jobs are accepted without blocking into an unbounded FIFO and picked up by
// a fixed number of worker goroutines. There is no queue-depth limit and no
// backpressure; a blocked job occupies its worker until it returns.
package pool

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/Iron-Ham/handoff/internal/errors"
	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/queue"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// DefaultMultiplier sizes the pool relative to logical CPUs. Work is expected
// to block on I/O, so the pool is deliberately generous.
const DefaultMultiplier = 8

// Config holds configuration options for the pool.
type Config struct {
	// Workers is the exact number of workers. Zero derives it from
	// runtime.NumCPU() * Multiplier.
	Workers int

	// Multiplier is applied to the CPU count when Workers is zero.
	// Zero or negative means DefaultMultiplier.
	Multiplier int
}

// DefaultConfig returns a Config that derives the worker count from the CPU count.
func DefaultConfig() Config {
	return Config{Multiplier: DefaultMultiplier}
}

// WorkerCount resolves the number of workers the config asks for.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	m := c.Multiplier
	if m <= 0 {
		m = DefaultMultiplier
	}
	return runtime.NumCPU() * m
}

// Pool runs submitted functions on a fixed set of worker goroutines.
type Pool struct {
	jobs    *queue.Queue[func()]
	workers int
	wg      conc.WaitGroup
	logger  *logging.Logger

	started  atomic.Bool
	active   atomic.Int64
	executed atomic.Uint64
	panicked atomic.Uint64
}

// New creates a pool. Call Start to launch the workers; jobs submitted
// before Start are kept and run once workers exist.
func New(cfg Config, logger *logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Pool{
		jobs:    queue.New[func()](),
		workers: cfg.WorkerCount(),
		logger:  logger.WithPhase("pool"),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.logger.Debug("starting workers", "workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Go(p.work)
	}
}

// Execute queues fn for a worker and returns immediately.
// It returns ErrPoolClosed after Shutdown.
func (p *Pool) Execute(fn func()) error {
	if !p.jobs.Push(fn) {
		return errors.ErrPoolClosed
	}
	return nil
}

func (p *Pool) work() {
	for {
		job, err := p.jobs.Pop(context.Background())
		if err != nil {
			// Closed and drained.
			return
		}
		p.run(job)
	}
}

// run executes a single job. A panic is a bug in the submitter, which is
// expected to recover its own panics; it is logged and the worker carries on.
func (p *Pool) run(job func()) {
	p.active.Add(1)
	defer p.active.Add(-1)

	var pc panics.Catcher
	pc.Try(job)
	p.executed.Add(1)

	if r := pc.Recovered(); r != nil {
		p.panicked.Add(1)
		p.logger.Error("job panicked",
			"panic", r.Value,
			"stack", string(r.Stack),
		)
	}
}

// Shutdown stops accepting jobs, lets the workers drain everything already
// queued, and waits for them to exit. If ctx ends first its error is
// returned and the workers keep draining in the background.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.jobs.Close()
	p.Start() // queued jobs still need workers to drain them

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("workers stopped", "executed", p.executed.Load())
		return nil
	case <-ctx.Done():
		p.logger.Warn("shutdown timed out",
			"pending", p.jobs.Len(),
			"active", p.active.Load(),
		)
		return ctx.Err()
	}
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers  int
	Pending  int
	Active   int
	Executed uint64
	Panicked uint64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  p.workers,
		Pending:  p.jobs.Len(),
		Active:   int(p.active.Load()),
		Executed: p.executed.Load(),
		Panicked: p.panicked.Load(),
	}
}
