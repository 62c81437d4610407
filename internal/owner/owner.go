// Package owner defines the ownable-context capability the dispatcher gates
// delivery on, and Scope, the concrete owner hosts hand out for each screen
// or session.
//
// An owner is anything with an identity and a lifecycle that can go
// inactive. The dispatcher never asks what kind of owner it holds; it only
// subscribes to the lifecycle. Hosts with several kinds of owner (a program,
// a screen, a panel inside a screen) model the nesting with Child.
package owner

import (
	"sync"

	"github.com/Iron-Ham/handoff/internal/event"
	"github.com/google/uuid"
)

// Lifecycle is the liveness channel of an owner.
type Lifecycle interface {
	// Subscribe registers onInactive to run when the owner goes inactive.
	// If the owner is already inactive, onInactive runs before Subscribe
	// returns. onInactive may run more than once if the owner reports the
	// transition more than once. The returned func removes the subscription.
	Subscribe(onInactive func()) (unsubscribe func())

	// Active reports whether the owner is still a valid delivery target.
	Active() bool
}

// Owner is a context that owns callback delivery.
type Owner interface {
	ID() string
	Name() string
	Lifecycle() Lifecycle
	// Child returns an owner scoped inside this one: it goes inactive when
	// its parent does, and can also go inactive on its own.
	Child(name string) Owner
}

// Scope is an Owner whose lifecycle transitions are published on an event bus.
type Scope struct {
	id   string
	name string
	bus  *event.Bus

	mu       sync.Mutex
	active   bool
	children []*Scope
}

// NewScope creates an active scope. A nil bus gets a private one.
func NewScope(name string, bus *event.Bus) *Scope {
	if bus == nil {
		bus = event.NewBus(nil)
	}
	return &Scope{
		id:     uuid.NewString(),
		name:   name,
		bus:    bus,
		active: true,
	}
}

// ID returns the scope's unique identity.
func (s *Scope) ID() string { return s.id }

// Name returns the human-readable name given at creation.
func (s *Scope) Name() string { return s.name }

// Lifecycle returns the scope itself.
func (s *Scope) Lifecycle() Lifecycle { return s }

// Active reports whether Deactivate has not been called yet.
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Subscribe implements Lifecycle.
func (s *Scope) Subscribe(onInactive func()) func() {
	subID := s.bus.Subscribe(event.TypeOwnerInactive, func(e event.Event) {
		if inactive, ok := e.(event.OwnerInactiveEvent); ok && inactive.OwnerID == s.id {
			onInactive()
		}
	})

	if !s.Active() {
		onInactive()
	}

	return func() {
		s.bus.Unsubscribe(subID)
	}
}

// Deactivate marks the scope inactive and publishes the transition, then
// deactivates every child. Calling it again republishes the transition,
// the way a host may deliver duplicate lifecycle callbacks.
func (s *Scope) Deactivate() {
	s.mu.Lock()
	s.active = false
	children := s.children
	s.children = nil
	s.mu.Unlock()

	s.bus.Publish(event.NewOwnerInactiveEvent(s.id, s.name))

	for _, c := range children {
		c.Deactivate()
	}
}

// Child implements Owner. A child created on an inactive scope starts inactive.
func (s *Scope) Child(name string) Owner {
	return s.NewChild(name)
}

// NewChild is Child with the concrete return type.
func (s *Scope) NewChild(name string) *Scope {
	c := NewScope(s.name+"/"+name, s.bus)

	s.mu.Lock()
	if s.active {
		s.children = append(s.children, c)
	} else {
		c.active = false
	}
	s.mu.Unlock()

	return c
}
