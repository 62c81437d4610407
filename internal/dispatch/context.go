package dispatch

import (
	"context"

	"github.com/Iron-Ham/handoff/internal/task"
)

type taskKey struct{}

type taskScope struct {
	id     task.ID
	poster Poster
}

func withTask(ctx context.Context, id task.ID, poster Poster) context.Context {
	return context.WithValue(ctx, taskKey{}, taskScope{id: id, poster: poster})
}

// Report posts progress scoped to the task whose work is running with ctx.
// Only that task's progress listener sees it. It returns false, posting
// nothing, when ctx does not belong to a dispatched task.
func Report(ctx context.Context, payload any) bool {
	s, ok := ctx.Value(taskKey{}).(taskScope)
	if !ok {
		return false
	}
	s.poster.Post(Progress{ID: s.id, Payload: payload})
	return true
}

// TaskID returns the identity of the task whose work is running with ctx.
func TaskID(ctx context.Context) (task.ID, bool) {
	s, ok := ctx.Value(taskKey{}).(taskScope)
	return s.id, ok
}
