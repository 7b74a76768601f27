package watcher

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Source delivers filesystem events for the directory holding the log file.
type Source interface {
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	Close() error
}

// FSSource is the fsnotify-backed Source. It watches a directory rather than
// the file itself so creation, deletion and renames of the file are seen.
type FSSource struct {
	watcher *fsnotify.Watcher
}

// NewFSSource starts watching dir.
func NewFSSource(dir string) (*FSSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	return &FSSource{watcher: w}, nil
}

// Events returns the fsnotify event channel.
func (s *FSSource) Events() <-chan fsnotify.Event { return s.watcher.Events }

// Errors returns the fsnotify error channel.
func (s *FSSource) Errors() <-chan error { return s.watcher.Errors }

// Close stops watching.
func (s *FSSource) Close() error { return s.watcher.Close() }
