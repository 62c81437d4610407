package dispatch

import (
	"github.com/Iron-Ham/handoff/internal/task"
)

// Handle is the builder returned by Register. Listener methods chain; the
// first misuse along the chain is kept and returned by Submit and Err.
//
//	err := d.Register(screen, fetch).
//		OnProgress(showPercent).
//		OnSuccess(render).
//		OnFailure(showError).
//		Submit()
type Handle struct {
	d   *Dispatcher
	id  task.ID
	err error
}

// ID returns the task identity.
func (h *Handle) ID() task.ID { return h.id }

// Err returns the first misuse recorded on the chain, or nil.
func (h *Handle) Err() error { return h.err }

// OnProgress sets the progress listener. It runs on the delivery context
// for every broadcast progress message and for every Report made by this
// task's work.
func (h *Handle) OnProgress(fn task.ProgressFunc) *Handle {
	replaced, err := h.d.reg.AttachProgress(h.id, fn)
	h.record(task.KindProgress, replaced, err)
	return h
}

// OnSuccess sets the listener that receives the work's return value.
func (h *Handle) OnSuccess(fn task.SuccessFunc) *Handle {
	replaced, err := h.d.reg.AttachSuccess(h.id, fn)
	h.record(task.KindSuccess, replaced, err)
	return h
}

// OnFailure sets the listener that receives the work's error or panic.
func (h *Handle) OnFailure(fn task.FailureFunc) *Handle {
	replaced, err := h.d.reg.AttachFailure(h.id, fn)
	h.record(task.KindFailure, replaced, err)
	return h
}

// Submit hands the work to the executor. It returns the first misuse
// recorded on the chain without submitting, or the result of
// Dispatcher.Submit.
func (h *Handle) Submit() error {
	if h.err != nil {
		return h.err
	}
	if err := h.d.Submit(h.id); err != nil {
		h.err = err
		return err
	}
	return nil
}

func (h *Handle) record(kind task.ListenerKind, replaced bool, err error) {
	if err != nil {
		h.d.stats.misuse.Add(1)
		if h.err == nil {
			h.err = err
		}
		return
	}
	if replaced {
		h.d.logger.Warn("listener registered twice, keeping the last one",
			"task_id", uint64(h.id),
			"listener", string(kind),
		)
	}
}
