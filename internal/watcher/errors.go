package watcher

import "fmt"

// ExecutionError is a fatal failure of the watch machinery itself: the log
// file could not be opened at startup, or the event source broke.
type ExecutionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
