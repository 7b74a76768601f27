package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventKind is the session handler an event is routed to.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventModify
	EventCreate
	EventDelete
	EventMovedFrom
)

func (k EventKind) String() string {
	switch k {
	case EventModify:
		return "modify"
	case EventCreate:
		return "create"
	case EventDelete:
		return "delete"
	case EventMovedFrom:
		return "moved_from"
	default:
		return "ignored"
	}
}

// Classify maps an fsnotify operation to an EventKind. Removal and renames
// win over other bits so a handle is never kept on a file that is gone.
func Classify(op fsnotify.Op) EventKind {
	switch {
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventMovedFrom
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Write):
		return EventModify
	default:
		return EventIgnored
	}
}

type handlerFunc func(ctx context.Context, path string) error

// Dispatcher feeds events from a Source to a Session one at a time and
// handles reload signals.
type Dispatcher struct {
	session  *Session
	source   Source
	reload   <-chan os.Signal
	logger   *slog.Logger
	handlers map[EventKind]handlerFunc
}

// NewDispatcher wires session to source. reload may be nil; every value
// received on it triggers Session.Reload.
func NewDispatcher(session *Session, source Source, reload <-chan os.Signal, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		session: session,
		source:  source,
		reload:  reload,
		logger:  logger,
		handlers: map[EventKind]handlerFunc{
			EventModify:    session.OnModify,
			EventCreate:    session.OnCreate,
			EventDelete:    session.OnDelete,
			EventMovedFrom: session.OnMovedFrom,
		},
	}
}

// Run processes events until ctx is done, the source fails, or a handler
// returns a fatal error. A cancelled ctx yields ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	if d.reload != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.handleReloads(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-d.source.Events():
			if !ok {
				return &ExecutionError{Op: "watch", Err: errors.New("event source closed")}
			}
			if err := d.Dispatch(ctx, event); err != nil {
				return err
			}

		case err, ok := <-d.source.Errors():
			if !ok {
				return &ExecutionError{Op: "watch", Err: errors.New("event source closed")}
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were dropped; rescan in case a write was among them.
				d.logger.Warn("filesystem event queue overflowed", "error", err)
				if err := d.session.OnModify(ctx, d.session.Path()); err != nil {
					return err
				}
				continue
			}
			return &ExecutionError{Op: "watch", Err: err}
		}
	}
}

// Dispatch routes a single event to its session handler.
func (d *Dispatcher) Dispatch(ctx context.Context, event fsnotify.Event) error {
	kind := Classify(event.Op)
	handler, ok := d.handlers[kind]
	if !ok {
		return nil
	}
	d.logger.Debug("dispatching event", "kind", kind, "path", event.Name)
	return handler(ctx, event.Name)
}

func (d *Dispatcher) handleReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-d.reload:
			if !ok {
				return
			}
			d.session.out.Info("[info] Received %v, reopening '%s'", sig, d.session.Path())
			if err := d.session.Reload(); err != nil {
				d.logger.Error("error handling reload signal", "signal", sig, "error", err)
			}
		}
	}
}
