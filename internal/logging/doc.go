// Package logging provides structured logging for handoff.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// task and owner context. The dispatcher, the worker pool and the TUI host
// all log through a [Logger] so a single file shows the full life of a task:
// registration, submission, delivery or discard.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer and level.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithTask(7).Debug("task submitted")
//	logger.WithOwner(owner.ID()).Info("owner bound")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"owner bound","owner_id":"3f2a..."}
//
// # Runtime Level Changes
//
// [Logger.SetLevel] adjusts the level of a logger tree in place. The TUI host
// uses it to apply logging.level changes picked up from a watched config file.
package logging
