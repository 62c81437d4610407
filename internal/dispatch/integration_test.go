package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/handoff/internal/errors"
	"github.com/Iron-Ham/handoff/internal/loop"
	"github.com/Iron-Ham/handoff/internal/owner"
	"github.com/Iron-Ham/handoff/internal/pool"
)

// host wires a dispatcher to a real pool and a headless delivery loop.
type host struct {
	d    *Dispatcher
	pool *pool.Pool
	loop *loop.Loop
}

func newHost(t *testing.T, opts ...Option) *host {
	t.Helper()

	h := &host{pool: pool.New(pool.Config{Workers: 4}, nil)}
	h.loop = loop.New(func(msg any) { h.d.Deliver(msg) }, nil)
	h.d = New(h.pool, h.loop, opts...)
	h.pool.Start()

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.loop.Run(ctx) }()

	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		_ = h.pool.Shutdown(sctx)
		h.loop.Close()
		<-h.loop.Done()
		cancel()
	})
	return h
}

// onLoop runs fn on the delivery context and waits for it.
func (h *host) onLoop(t *testing.T, fn func()) {
	t.Helper()
	if err := h.loop.Do(context.Background(), fn); err != nil {
		t.Fatalf("loop.Do() error = %v", err)
	}
}

func TestIntegration_ValueArrivesAfterDelay(t *testing.T) {
	h := newHost(t)
	scope := owner.NewScope("screen", nil)

	got := make(chan any, 1)
	start := time.Now()
	err := h.d.Register(scope, func(context.Context) (any, error) {
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}).OnSuccess(func(v any) { got <- v }).Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case v := <-got:
		if v != 42 {
			t.Errorf("value = %v, want 42", v)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("value arrived after %v, before the work could finish", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("value not delivered")
	}

	waitFor(t, time.Second, func() bool { return !h.d.HookAttached() })
}

func TestIntegration_FailureSuppressedWhenOwnerGone(t *testing.T) {
	h := newHost(t)
	scope := owner.NewScope("screen", nil)

	var failed atomic.Bool
	stopped := make(chan struct{})
	err := h.d.Register(scope, func(context.Context) (any, error) {
		time.Sleep(10 * time.Millisecond)
		<-stopped
		return nil, errors.New("too late")
	}).OnFailure(func(error) { failed.Store(true) }).Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	scope.Deactivate()
	close(stopped)

	waitFor(t, time.Second, func() bool { return h.pool.Stats().Executed == 1 })
	// Everything posted so far is delivered before this runs.
	h.onLoop(t, func() {})

	if failed.Load() {
		t.Error("failure listener ran after the owner went inactive")
	}
	if h.d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", h.d.Pending())
	}
	if h.d.HookAttached() {
		t.Error("hook still attached")
	}
	if s := h.d.Stats(); s.Discarded != 1 || s.Dropped != 1 {
		t.Errorf("Stats() = %+v, want one discarded and one dropped", s)
	}
}

func TestIntegration_ConcurrentTasksReleaseHookAfterBoth(t *testing.T) {
	h := newHost(t)
	scope := owner.NewScope("screen", nil)

	release := make(chan struct{})
	var mu sync.Mutex
	var results []string
	var hookAfterFirst bool

	record := func(name string) func(any) {
		return func(any) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, name)
			if len(results) == 1 {
				hookAfterFirst = h.d.HookAttached()
			}
		}
	}

	err := h.d.Register(scope, func(context.Context) (any, error) {
		return "c", nil
	}).OnSuccess(record("c")).Submit()
	if err != nil {
		t.Fatalf("Submit(c) error = %v", err)
	}
	err = h.d.Register(scope, func(context.Context) (any, error) {
		<-release
		return "d", nil
	}).OnSuccess(record("d")).Submit()
	if err != nil {
		t.Fatalf("Submit(d) error = %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 1
	})
	close(release)
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if !hookAfterFirst {
		t.Error("hook detached while the second task was pending")
	}
	waitFor(t, time.Second, func() bool { return !h.d.HookAttached() })
}

func TestIntegration_ProgressOrder(t *testing.T) {
	h := newHost(t)
	scope := owner.NewScope("screen", nil)

	var events []any
	done := make(chan struct{})
	err := h.d.Register(scope, func(ctx context.Context) (any, error) {
		for i := 0; i < 10; i++ {
			Report(ctx, i)
		}
		return "end", nil
	}).OnProgress(func(m any) {
		events = append(events, m)
	}).OnSuccess(func(v any) {
		events = append(events, v)
		close(done)
	}).Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task not delivered")
	}

	var snapshot []any
	h.onLoop(t, func() { snapshot = append(snapshot, events...) })

	if len(snapshot) != 11 {
		t.Fatalf("events = %v, want 10 progress then end", snapshot)
	}
	for i := 0; i < 10; i++ {
		if snapshot[i] != i {
			t.Errorf("events[%d] = %v, want %d", i, snapshot[i], i)
		}
	}
	if snapshot[10] != "end" {
		t.Errorf("last event = %v, want end", snapshot[10])
	}
}

func TestIntegration_BroadcastProgressBeforeTerminal(t *testing.T) {
	h := newHost(t)
	scope := owner.NewScope("screen", nil)

	// Listener log, only touched on the delivery context.
	var events []string
	gate := make(chan struct{})
	defer close(gate)

	err := h.d.Register(scope, func(context.Context) (any, error) {
		<-gate
		return nil, nil
	}).OnProgress(func(m any) {
		events = append(events, "watcher:"+m.(string))
	}).Submit()
	if err != nil {
		t.Fatalf("Submit(watcher) error = %v", err)
	}

	done := make(chan struct{})
	err = h.d.Register(scope, func(context.Context) (any, error) {
		for _, step := range []string{"a", "b", "c"} {
			h.d.Post(step)
		}
		return "end", nil
	}).OnProgress(func(m any) {
		events = append(events, "poster:"+m.(string))
	}).OnSuccess(func(v any) {
		events = append(events, "poster:"+v.(string))
		close(done)
	}).Submit()
	if err != nil {
		t.Fatalf("Submit(poster) error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posting task not delivered")
	}

	var snapshot []string
	h.onLoop(t, func() { snapshot = append(snapshot, events...) })

	want := []string{
		"watcher:a", "poster:a",
		"watcher:b", "poster:b",
		"watcher:c", "poster:c",
		"poster:end",
	}
	if len(snapshot) != len(want) {
		t.Fatalf("events = %v, want %v", snapshot, want)
	}
	for i := range want {
		if snapshot[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, snapshot[i], want[i])
		}
	}
}

func TestIntegration_OwnerStopLeavesOtherOwnerWork(t *testing.T) {
	h := newHost(t)
	first := owner.NewScope("first", nil)
	second := owner.NewScope("second", nil)

	gate := make(chan struct{})
	var firstRan atomic.Bool
	secondDone := make(chan any, 1)

	err := h.d.Register(first, func(context.Context) (any, error) {
		<-gate
		return 1, nil
	}).OnSuccess(func(any) { firstRan.Store(true) }).Submit()
	if err != nil {
		t.Fatalf("Submit(first) error = %v", err)
	}
	err = h.d.Register(second, func(context.Context) (any, error) {
		<-gate
		return 2, nil
	}).OnSuccess(func(v any) { secondDone <- v }).Submit()
	if err != nil {
		t.Fatalf("Submit(second) error = %v", err)
	}

	first.Deactivate()
	h.onLoop(t, func() {})
	close(gate)

	select {
	case v := <-secondDone:
		if v != 2 {
			t.Errorf("second value = %v, want 2", v)
		}
	case <-time.After(time.Second):
		t.Fatal("second owner's task not delivered")
	}

	waitFor(t, time.Second, func() bool { return h.pool.Stats().Executed == 2 })
	h.onLoop(t, func() {})
	if firstRan.Load() {
		t.Error("first owner's listener ran after it went inactive")
	}
	if h.d.HookAttached() {
		t.Errorf("Owners() = %v, want none", h.d.Owners())
	}
}

func TestIntegration_PoolClosed(t *testing.T) {
	h := newHost(t)
	if err := h.pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	got := make(chan error, 1)
	err := h.d.Register(nil, func(context.Context) (any, error) {
		return 1, nil
	}).OnFailure(func(e error) { got <- e }).Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case e := <-got:
		if !errors.Is(e, errors.ErrPoolClosed) {
			t.Errorf("failure = %v, want ErrPoolClosed", e)
		}
	case <-time.After(time.Second):
		t.Fatal("failure not delivered")
	}
}

func TestIntegration_ManyTasks(t *testing.T) {
	h := newHost(t)
	scope := owner.NewScope("screen", nil)

	const n = 200
	var delivered atomic.Int64
	for i := 0; i < n; i++ {
		err := h.d.Register(scope, func(context.Context) (any, error) {
			return i, nil
		}).OnSuccess(func(any) { delivered.Add(1) }).Submit()
		if err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return delivered.Load() == n })
	waitFor(t, time.Second, func() bool { return !h.d.HookAttached() })
	if s := h.d.Stats(); s.Succeeded != n {
		t.Errorf("Stats().Succeeded = %d, want %d", s.Succeeded, n)
	}
}
