package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/Iron-Ham/handoff/internal/owner"
)

// livenessHook watches one owner and posts Stopped the first time the owner
// reports going inactive. It never posts twice, and never after detach.
// Attaching only subscribes to the owner's lifecycle; the owner's own
// behavior is untouched.
type livenessHook struct {
	owner  owner.Owner
	poster Poster
	logger *logging.Logger

	enabled atomic.Bool

	mu          sync.Mutex
	detached    bool
	unsubscribe func()
}

func newLivenessHook(o owner.Owner, poster Poster, logger *logging.Logger) *livenessHook {
	h := &livenessHook{
		owner:  o,
		poster: poster,
		logger: logger.WithOwner(o.ID()),
	}
	h.enabled.Store(true)
	return h
}

// attach subscribes to the owner. If the owner is already inactive the
// subscription fires at once and Stopped is posted.
func (h *livenessHook) attach() {
	unsubscribe := h.owner.Lifecycle().Subscribe(h.onInactive)

	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		unsubscribe()
		return
	}
	h.unsubscribe = unsubscribe
	h.mu.Unlock()

	h.logger.Debug("liveness hook attached", "owner_name", h.owner.Name())
}

func (h *livenessHook) onInactive() {
	if !h.enabled.CompareAndSwap(true, false) {
		return
	}
	h.logger.Debug("owner inactive, posting stop")
	h.poster.Post(Stopped{Owner: h.owner.ID()})
}

// detach disables the hook and removes its subscription. Safe to call more
// than once and concurrently with attach.
func (h *livenessHook) detach() {
	h.enabled.Store(false)

	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return
	}
	h.detached = true
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	h.logger.Debug("liveness hook detached")
}
