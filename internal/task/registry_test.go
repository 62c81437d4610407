package task

import (
	"context"
	"sync"
	"testing"

	"github.com/Iron-Ham/handoff/internal/errors"
)

func noWork(context.Context) (any, error) { return nil, nil }

func TestIDGenerator(t *testing.T) {
	var g IDGenerator

	if got := g.Next(); got != 1 {
		t.Errorf("first Next() = %d, want 1", got)
	}
	if got := g.Next(); got != 2 {
		t.Errorf("second Next() = %d, want 2", got)
	}
	if got := ID(42).String(); got != "42" {
		t.Errorf("String() = %q, want %q", got, "42")
	}
}

func TestIDGenerator_Concurrent(t *testing.T) {
	var g IDGenerator

	const goroutines, perGoroutine = 8, 500
	ids := make(chan ID, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ID]bool)
	for id := range ids {
		if id == 0 {
			t.Fatal("generator issued zero")
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestRegistry_RegisterAndSubmit(t *testing.T) {
	r := NewRegistry(nil)

	id := r.Register(noWork)
	if got := r.State(id); got != StateRegistered {
		t.Errorf("State() = %q, want %q", got, StateRegistered)
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	work, err := r.MarkSubmitted(id)
	if err != nil {
		t.Fatalf("MarkSubmitted() err = %v", err)
	}
	if work == nil {
		t.Fatal("MarkSubmitted() returned nil work")
	}
	if got := r.State(id); got != StateSubmitted {
		t.Errorf("State() = %q, want %q", got, StateSubmitted)
	}

	if _, err := r.MarkSubmitted(id); !errors.Is(err, errors.ErrAlreadySubmitted) {
		t.Errorf("second MarkSubmitted() err = %v, want %v", err, errors.ErrAlreadySubmitted)
	}
}

func TestRegistry_SubmitUnknown(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.MarkSubmitted(99)
	if !errors.Is(err, errors.ErrUnknownTask) {
		t.Errorf("MarkSubmitted() err = %v, want %v", err, errors.ErrUnknownTask)
	}
	if !errors.IsMisuse(err) {
		t.Error("IsMisuse() = false, want true")
	}
}

func TestRegistry_AttachLastWriteWins(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Register(noWork)

	var got []string
	replaced, err := r.AttachSuccess(id, func(any) { got = append(got, "first") })
	if err != nil || replaced {
		t.Fatalf("first AttachSuccess() = %v, %v; want false, nil", replaced, err)
	}
	replaced, err = r.AttachSuccess(id, func(any) { got = append(got, "second") })
	if err != nil || !replaced {
		t.Fatalf("second AttachSuccess() = %v, %v; want true, nil", replaced, err)
	}

	fn := r.ConsumeSuccess(id)
	if fn == nil {
		t.Fatal("ConsumeSuccess() = nil")
	}
	fn(nil)
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("listener calls = %v, want [second]", got)
	}

	dups := r.Duplicates(id)
	if len(dups) != 1 || dups[0] != KindSuccess {
		t.Errorf("Duplicates() = %v, want [%s]", dups, KindSuccess)
	}
}

func TestRegistry_AttachMisuse(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name   string
		attach func(ID) (bool, error)
	}{
		{"progress", func(id ID) (bool, error) { return r.AttachProgress(id, func(any) {}) }},
		{"success", func(id ID) (bool, error) { return r.AttachSuccess(id, func(any) {}) }},
		{"failure", func(id ID) (bool, error) { return r.AttachFailure(id, func(error) {}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name+" unknown", func(t *testing.T) {
			if _, err := tt.attach(12345); !errors.Is(err, errors.ErrUnknownTask) {
				t.Errorf("err = %v, want %v", err, errors.ErrUnknownTask)
			}
		})
		t.Run(tt.name+" after submit", func(t *testing.T) {
			id := r.Register(noWork)
			if _, err := r.MarkSubmitted(id); err != nil {
				t.Fatalf("MarkSubmitted() err = %v", err)
			}
			if _, err := tt.attach(id); !errors.Is(err, errors.ErrAlreadySubmitted) {
				t.Errorf("err = %v, want %v", err, errors.ErrAlreadySubmitted)
			}
		})
	}
}

func TestRegistry_ConsumeAtMostOnce(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Register(noWork)
	_, _ = r.AttachSuccess(id, func(any) {})
	_, _ = r.AttachFailure(id, func(error) {})

	if r.ConsumeSuccess(id) == nil {
		t.Error("first ConsumeSuccess() = nil")
	}
	if r.ConsumeSuccess(id) != nil {
		t.Error("second ConsumeSuccess() should be nil")
	}
	if r.ConsumeFailure(id) == nil {
		t.Error("first ConsumeFailure() = nil")
	}
	if r.ConsumeFailure(id) != nil {
		t.Error("second ConsumeFailure() should be nil")
	}
	if r.ConsumeSuccess(777) != nil || r.ConsumeFailure(777) != nil {
		t.Error("Consume on unknown id should be nil")
	}
}

func TestRegistry_ProgressListenersOrdered(t *testing.T) {
	r := NewRegistry(nil)

	var calls []int
	for i := 1; i <= 5; i++ {
		id := r.Register(noWork)
		if i == 3 {
			continue // no progress listener
		}
		_, _ = r.AttachProgress(id, func(any) { calls = append(calls, i) })
	}

	fns := r.ProgressListeners()
	if len(fns) != 4 {
		t.Fatalf("ProgressListeners() len = %d, want 4", len(fns))
	}
	for _, fn := range fns {
		fn(nil)
	}
	want := []int{1, 2, 4, 5}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls = %v, want %v", calls, want)
			break
		}
	}

	if r.Progress(3) != nil {
		t.Error("Progress(3) should be nil")
	}
	if r.Progress(1) == nil {
		t.Error("Progress(1) should not be nil")
	}
}

func TestRegistry_RemoveAndClear(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Register(noWork)
	r.Register(noWork)
	r.Register(noWork)

	if !r.Remove(a) {
		t.Error("Remove() = false for a live id")
	}
	if r.Remove(a) {
		t.Error("Remove() = true for a removed id")
	}
	if got := r.State(a); got != StateUnknown {
		t.Errorf("State() = %q, want %q", got, StateUnknown)
	}

	if got := r.ClearOwner(""); got != 2 {
		t.Errorf("ClearOwner() = %d, want 2", got)
	}
	if got := r.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if r.Duplicates(a) != nil {
		t.Error("Duplicates() of unknown id should be nil")
	}
}

func TestRegistry_ClearOwnerLeavesOtherOwners(t *testing.T) {
	r := NewRegistry(nil)
	a1 := r.RegisterOwned("a", noWork)
	r.RegisterOwned("a", noWork)
	b := r.RegisterOwned("b", noWork)
	free := r.Register(noWork)

	if got := r.Owner(a1); got != "a" {
		t.Errorf("Owner() = %q, want %q", got, "a")
	}
	if got := r.OwnerLen("a"); got != 2 {
		t.Errorf("OwnerLen(a) = %d, want 2", got)
	}

	if got := r.ClearOwner("a"); got != 2 {
		t.Errorf("ClearOwner(a) = %d, want 2", got)
	}
	if got := r.OwnerLen("a"); got != 0 {
		t.Errorf("OwnerLen(a) = %d after clear, want 0", got)
	}
	if r.State(b) != StateRegistered || r.State(free) != StateRegistered {
		t.Error("clearing one owner dropped identities of others")
	}
	if got := r.Owner(a1); got != "" {
		t.Errorf("Owner() of cleared id = %q, want empty", got)
	}
}

func TestRegistry_SharedGenerator(t *testing.T) {
	var g IDGenerator
	r1 := NewRegistry(&g)
	r2 := NewRegistry(&g)

	a := r1.Register(noWork)
	b := r2.Register(noWork)
	if a == b {
		t.Errorf("registries sharing a generator issued the same id %d", a)
	}
}

func TestRegistry_ConcurrentRegisterAndRemove(t *testing.T) {
	r := NewRegistry(nil)

	ids := make(chan ID, 1000)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			id := r.Register(noWork)
			_, _ = r.AttachProgress(id, func(any) {})
			ids <- id
		}
		close(ids)
	}()
	go func() {
		defer wg.Done()
		for id := range ids {
			_ = r.ProgressListeners()
			r.ConsumeSuccess(id)
			r.Remove(id)
		}
	}()
	wg.Wait()

	if got := r.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
