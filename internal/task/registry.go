package task

import (
	"slices"
	"sync"

	"github.com/Iron-Ham/handoff/internal/errors"
)

type entry struct {
	owner      string
	set        CallbackSet
	state      State
	duplicates []ListenerKind
}

// Registry maps task identities to their callback sets.
//
// Registration and listener attachment happen on the owner side, submission
// reads work from the owner side, and removal happens on the delivery
// context while background completions race with new registrations. All
// operations are guarded by one RWMutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[ID]*entry
	ids     *IDGenerator
}

// NewRegistry creates an empty registry. A nil generator gets a private one.
func NewRegistry(ids *IDGenerator) *Registry {
	if ids == nil {
		ids = &IDGenerator{}
	}
	return &Registry{
		entries: make(map[ID]*entry),
		ids:     ids,
	}
}

// Register stores unowned work under a fresh identity and returns it.
func (r *Registry) Register(work Work) ID {
	return r.RegisterOwned("", work)
}

// RegisterOwned stores work under a fresh identity belonging to owner.
// An empty owner means the task is not tied to any owner.
func (r *Registry) RegisterOwned(owner string, work Work) ID {
	id := r.ids.Next()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry{
		owner: owner,
		set:   CallbackSet{Work: work},
		state: StateRegistered,
	}
	return id
}

// AttachProgress sets the progress listener of id.
// See attach for the return values.
func (r *Registry) AttachProgress(id ID, fn ProgressFunc) (bool, error) {
	return r.attach(id, KindProgress, "attach progress", func(s *CallbackSet) bool {
		replaced := s.OnProgress != nil
		s.OnProgress = fn
		return replaced
	})
}

// AttachSuccess sets the success listener of id.
func (r *Registry) AttachSuccess(id ID, fn SuccessFunc) (bool, error) {
	return r.attach(id, KindSuccess, "attach success", func(s *CallbackSet) bool {
		replaced := s.OnSuccess != nil
		s.OnSuccess = fn
		return replaced
	})
}

// AttachFailure sets the failure listener of id.
func (r *Registry) AttachFailure(id ID, fn FailureFunc) (bool, error) {
	return r.attach(id, KindFailure, "attach failure", func(s *CallbackSet) bool {
		replaced := s.OnFailure != nil
		s.OnFailure = fn
		return replaced
	})
}

// attach applies set to the entry of id. The last listener of a kind wins;
// replaced reports whether an earlier one was overwritten, and the
// overwrite is remembered for Duplicates. Attaching to an unknown or
// already submitted task changes nothing and returns a MisuseError.
func (r *Registry) attach(id ID, kind ListenerKind, op string, set func(*CallbackSet) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false, errors.NewMisuseError(op, uint64(id), errors.ErrUnknownTask)
	}
	if e.state != StateRegistered {
		return false, errors.NewMisuseError(op, uint64(id), errors.ErrAlreadySubmitted)
	}

	replaced := set(&e.set)
	if replaced && !slices.Contains(e.duplicates, kind) {
		e.duplicates = append(e.duplicates, kind)
	}
	return replaced, nil
}

// Duplicates lists the listener kinds of id that were registered more than once.
func (r *Registry) Duplicates(id ID) []ListenerKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	return slices.Clone(e.duplicates)
}

// MarkSubmitted moves id from registered to submitted and returns its work.
func (r *Registry) MarkSubmitted(id ID) (Work, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, errors.NewMisuseError("submit", uint64(id), errors.ErrUnknownTask)
	}
	if e.state != StateRegistered {
		return nil, errors.NewMisuseError("submit", uint64(id), errors.ErrAlreadySubmitted)
	}
	e.state = StateSubmitted
	return e.set.Work, nil
}

// ConsumeSuccess removes and returns the success listener of id, so that it
// can fire at most once. Returns nil if there is none.
func (r *Registry) ConsumeSuccess(id ID) SuccessFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	fn := e.set.OnSuccess
	e.set.OnSuccess = nil
	return fn
}

// ConsumeFailure removes and returns the failure listener of id.
func (r *Registry) ConsumeFailure(id ID) FailureFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	fn := e.set.OnFailure
	e.set.OnFailure = nil
	return fn
}

// Progress returns the progress listener of id, or nil.
func (r *Registry) Progress(id ID) ProgressFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[id]; ok {
		return e.set.OnProgress
	}
	return nil
}

// ProgressListeners returns every registered progress listener, oldest
// identity first.
func (r *Registry) ProgressListeners() []ProgressFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.entries))
	for id, e := range r.entries {
		if e.set.OnProgress != nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	fns := make([]ProgressFunc, len(ids))
	for i, id := range ids {
		fns[i] = r.entries[id].set.OnProgress
	}
	return fns
}

// Remove drops every entry of id. Returns false if id was not present.
func (r *Registry) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// ClearOwner drops every identity belonging to owner and returns how many
// were dropped. Identities of other owners are untouched.
func (r *Registry) ClearOwner(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if e.owner == owner {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// OwnerLen returns the number of live identities belonging to owner.
func (r *Registry) OwnerLen(owner string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if e.owner == owner {
			n++
		}
	}
	return n
}

// Owner returns the owner of id, or "" if id is unknown or unowned.
func (r *Registry) Owner(id ID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[id]; ok {
		return e.owner
	}
	return ""
}

// Len returns the number of live identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// State returns the lifecycle state of id.
func (r *Registry) State(id ID) State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[id]; ok {
		return e.state
	}
	return StateUnknown
}
