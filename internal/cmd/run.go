package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Iron-Ham/handoff/internal/config"
	"github.com/Iron-Ham/handoff/internal/dispatch"
	"github.com/Iron-Ham/handoff/internal/event"
	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/loop"
	"github.com/Iron-Ham/handoff/internal/owner"
	"github.com/Iron-Ham/handoff/internal/pool"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of tasks headlessly and print every delivery",
	Long: `Run spawns a batch of tasks owned by a single scope and prints each
outcome as it is delivered, followed by the dispatcher counters.

Examples:
  # Ten tasks, two of which fail
  handoff run --tasks 10 --fail 2

  # Close the owner after 150ms; tasks still running are discarded
  handoff run --tasks 20 --delay 100ms --stop-after 150ms`,
	RunE: runRun,
}

var (
	runTasks     int
	runFail      int
	runDelay     time.Duration
	runStopAfter time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runTasks, "tasks", "n", 10, "Number of tasks to spawn")
	runCmd.Flags().IntVar(&runFail, "fail", 0, "How many of the tasks fail")
	runCmd.Flags().DurationVar(&runDelay, "delay", 100*time.Millisecond, "Base duration of each task")
	runCmd.Flags().DurationVar(&runStopAfter, "stop-after", 0, "Deactivate the owner after this long (0 = never)")
}

// runOptions describes one headless batch.
type runOptions struct {
	Tasks     int
	Fail      int
	Delay     time.Duration
	StopAfter time.Duration
}

func runRun(cmd *cobra.Command, args []string) error {
	if runTasks < 0 || runFail < 0 {
		return fmt.Errorf("--tasks and --fail must be non-negative")
	}
	if runFail > runTasks {
		return fmt.Errorf("--fail (%d) cannot exceed --tasks (%d)", runFail, runTasks)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := runHeadless(ctx, cmd.OutOrStdout(), cfg, logger, runOptions{
		Tasks:     runTasks,
		Fail:      runFail,
		Delay:     runDelay,
		StopAfter: runStopAfter,
	})
	printStats(cmd.OutOrStdout(), stats)
	return err
}

// runHeadless runs one batch on a pool and a delivery loop and returns once
// every task was delivered or discarded, or ctx ends.
func runHeadless(ctx context.Context, w io.Writer, cfg *config.Config, logger *logging.Logger, opts runOptions) (dispatch.Stats, error) {
	bus := event.NewBus(logger)
	p := pool.New(pool.Config{
		Workers:    cfg.Dispatch.Workers,
		Multiplier: cfg.Dispatch.WorkerMultiplier,
	}, logger)

	var d *dispatch.Dispatcher
	l := loop.New(func(msg any) { d.Deliver(msg) }, logger)
	d = dispatch.New(p, l,
		dispatch.WithLogger(logger),
		dispatch.WithEventBus(bus),
		dispatch.WithStrictListeners(cfg.Dispatch.StrictListeners),
	)
	scope := owner.NewScope("run", bus)

	// Events are published on the loop goroutine, so settled needs no lock.
	settled := 0
	done := make(chan struct{})
	var once sync.Once
	settle := func(n int) {
		settled += n
		if settled >= opts.Tasks {
			once.Do(func() { close(done) })
		}
	}
	bus.Subscribe(event.TypeTaskDelivered, func(e event.Event) {
		if de, ok := e.(event.TaskDeliveredEvent); ok && de.Listened {
			settle(1)
		}
	})
	bus.Subscribe(event.TypeTaskDiscarded, func(e event.Event) {
		if de, ok := e.(event.TaskDiscardedEvent); ok {
			if de.Count > 0 {
				fmt.Fprintf(w, "owner %s stopped: %d task(s) discarded\n", scope.Name(), de.Count)
			}
			settle(de.Count)
		}
	})

	p.Start()
	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	go func() { _ = l.Run(loopCtx) }()

	if opts.Tasks == 0 {
		once.Do(func() { close(done) })
	}
	for i := 0; i < opts.Tasks; i++ {
		spawnBatchTask(d, scope, w, i, i < opts.Fail, opts.Delay)
	}

	if opts.StopAfter > 0 {
		timer := time.AfterFunc(opts.StopAfter, scope.Deactivate)
		defer timer.Stop()
	}

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		scope.Deactivate()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Dispatch.ShutdownTimeout())
	defer cancel()
	if serr := p.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("pool shutdown incomplete", "error", serr)
	}
	l.Close()
	select {
	case <-l.Done():
	case <-shutdownCtx.Done():
	}

	return d.Stats(), err
}

// spawnBatchTask registers and submits task i. Tasks take one to three
// delays and report once at the halfway point.
func spawnBatchTask(d *dispatch.Dispatcher, o owner.Owner, w io.Writer, i int, fail bool, delay time.Duration) {
	length := delay * time.Duration(1+i%3)

	h := d.Register(o, func(ctx context.Context) (any, error) {
		time.Sleep(length / 2)
		dispatch.Report(ctx, "halfway")
		time.Sleep(length - length/2)
		if fail {
			return nil, fmt.Errorf("task %d failed on purpose", i)
		}
		return fmt.Sprintf("result-%d", i), nil
	})
	id := h.ID()

	h.OnProgress(func(msg any) {
		if msg == "halfway" {
			fmt.Fprintf(w, "task %s: halfway\n", id)
		}
	}).OnSuccess(func(v any) {
		fmt.Fprintf(w, "task %s ok: %v\n", id, v)
	}).OnFailure(func(err error) {
		fmt.Fprintf(w, "task %s failed: %v\n", id, err)
	})

	if err := h.Submit(); err != nil {
		fmt.Fprintf(w, "task %s not submitted: %v\n", id, err)
	}
}

func printStats(w io.Writer, s dispatch.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  registered: %d\n", s.Registered)
	fmt.Fprintf(w, "  submitted:  %d\n", s.Submitted)
	fmt.Fprintf(w, "  succeeded:  %d\n", s.Succeeded)
	fmt.Fprintf(w, "  failed:     %d\n", s.Failed)
	fmt.Fprintf(w, "  discarded:  %d\n", s.Discarded)
	fmt.Fprintf(w, "  dropped:    %d\n", s.Dropped)
	fmt.Fprintf(w, "  progress:   %d\n", s.Progress)
}
