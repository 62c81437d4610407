package owner

import (
	"testing"

	"github.com/Iron-Ham/handoff/internal/event"
)

func TestNewScope(t *testing.T) {
	s := NewScope("main", nil)

	if s.ID() == "" {
		t.Error("ID() should not be empty")
	}
	if s.Name() != "main" {
		t.Errorf("Name() = %q, want %q", s.Name(), "main")
	}
	if !s.Active() {
		t.Error("new scope should be active")
	}
	if s.Lifecycle() != Lifecycle(s) {
		t.Error("Lifecycle() should return the scope")
	}

	other := NewScope("main", nil)
	if other.ID() == s.ID() {
		t.Error("two scopes share an ID")
	}
}

func TestScope_SubscribeFiresOnDeactivate(t *testing.T) {
	bus := event.NewBus(nil)
	s := NewScope("main", bus)

	calls := 0
	s.Lifecycle().Subscribe(func() { calls++ })

	s.Deactivate()

	if calls != 1 {
		t.Errorf("onInactive calls = %d, want 1", calls)
	}
	if s.Active() {
		t.Error("Active() = true after Deactivate")
	}
}

func TestScope_DuplicateDeactivateRepublishes(t *testing.T) {
	s := NewScope("main", nil)

	calls := 0
	s.Subscribe(func() { calls++ })

	s.Deactivate()
	s.Deactivate()

	if calls != 2 {
		t.Errorf("onInactive calls = %d, want 2", calls)
	}
}

func TestScope_SubscribeOnInactiveFiresImmediately(t *testing.T) {
	s := NewScope("main", nil)
	s.Deactivate()

	calls := 0
	s.Subscribe(func() { calls++ })

	if calls != 1 {
		t.Errorf("onInactive calls = %d, want 1", calls)
	}
}

func TestScope_Unsubscribe(t *testing.T) {
	bus := event.NewBus(nil)
	s := NewScope("main", bus)

	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	unsubscribe()

	s.Deactivate()

	if calls != 0 {
		t.Errorf("onInactive calls = %d after unsubscribe, want 0", calls)
	}
	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", got)
	}
}

func TestScope_OnlyOwnTransitions(t *testing.T) {
	bus := event.NewBus(nil)
	a := NewScope("a", bus)
	b := NewScope("b", bus)

	aCalls := 0
	a.Subscribe(func() { aCalls++ })

	b.Deactivate()

	if aCalls != 0 {
		t.Errorf("a notified of b's transition %d times", aCalls)
	}
	if !a.Active() {
		t.Error("a should still be active")
	}
}

func TestScope_ChildFollowsParent(t *testing.T) {
	parent := NewScope("app", nil)
	child := parent.Child("screen")

	if child.ID() == parent.ID() {
		t.Error("child shares the parent's ID")
	}
	if child.Name() != "app/screen" {
		t.Errorf("child Name() = %q, want %q", child.Name(), "app/screen")
	}

	childCalls := 0
	child.Lifecycle().Subscribe(func() { childCalls++ })

	parent.Deactivate()

	if childCalls != 1 {
		t.Errorf("child onInactive calls = %d, want 1", childCalls)
	}
	if child.Lifecycle().Active() {
		t.Error("child should be inactive after its parent")
	}
}

func TestScope_ChildDeactivatesAlone(t *testing.T) {
	parent := NewScope("app", nil)
	child := parent.NewChild("screen")

	parentCalls := 0
	parent.Subscribe(func() { parentCalls++ })

	child.Deactivate()

	if parentCalls != 0 {
		t.Errorf("parent notified %d times by child deactivation", parentCalls)
	}
	if !parent.Active() {
		t.Error("parent should stay active")
	}
}

func TestScope_ChildOfInactiveStartsInactive(t *testing.T) {
	parent := NewScope("app", nil)
	parent.Deactivate()

	child := parent.Child("late")
	if child.Lifecycle().Active() {
		t.Error("child of an inactive scope should start inactive")
	}
}
