package watcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/logs2eca/internal/matcher"
	"github.com/blackwell-systems/logs2eca/internal/output"
	"github.com/blackwell-systems/logs2eca/internal/runner"
	"github.com/blackwell-systems/logs2eca/internal/store"
)

// EnvInstanceTag is set in the environment of every reaction command so the
// command can stamp its own log lines with the session's tag.
const EnvInstanceTag = "LOGS2ECA_INSTANCE_TAG"

// Recorder persists command runs. *store.Store satisfies it.
type Recorder interface {
	RecordRun(run *store.Run) error
}

// Options configures a Session.
type Options struct {
	Path           string
	Pattern        string
	ArbitraryMatch bool
	Command        string
	Cooldown       time.Duration

	// Runner defaults to runner.Shell{}.
	Runner runner.Runner
	// Recorder is optional.
	Recorder Recorder
	// Stdout and Stderr receive operator notices; they default to the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Session tracks a read cursor into one log file and runs the configured
// command for each newly appended line that matches the pattern.
//
// The file handle and cursor are guarded by mu: scans run on the dispatch
// goroutine while Reload is driven by SIGHUP on another.
type Session struct {
	path     string
	tag      string
	matcher  *matcher.Matcher
	command  string
	cooldown time.Duration
	runner   runner.Runner
	recorder Recorder
	out      *output.Printer
	logger   *slog.Logger

	mu     sync.Mutex
	file   *os.File
	cursor int64
}

// New builds a Session. An existing file is opened and scanning starts at
// its current end; a missing file is waited for. Any other file access
// failure is returned as *ExecutionError, and an unusable pattern as
// *matcher.CompileError.
func New(opts Options) (*Session, error) {
	if opts.Cooldown < 0 {
		return nil, fmt.Errorf("cooldown must be >= 0, got %v", opts.Cooldown)
	}

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, &ExecutionError{Op: "resolve", Path: opts.Path, Err: err}
	}

	m, err := matcher.Compile(opts.Pattern, opts.ArbitraryMatch)
	if err != nil {
		return nil, err
	}

	s := &Session{
		path:     path,
		tag:      newInstanceTag(),
		matcher:  m,
		command:  opts.Command,
		cooldown: opts.Cooldown,
		runner:   opts.Runner,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if s.runner == nil {
		s.runner = runner.Shell{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.out = output.NewPrinter(opts.Stdout, opts.Stderr, s.tag)

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.out.Warn("Logfile '%s' does not exist, will wait for it to be created.", path)
		return s, nil
	case err != nil:
		return nil, &ExecutionError{Op: "stat", Path: path, Err: err}
	case info.IsDir():
		return nil, &ExecutionError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}

	f, err := openTarget(path)
	if err != nil {
		return nil, &ExecutionError{Op: "open", Path: path, Err: err}
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, &ExecutionError{Op: "seek", Path: path, Err: err}
	}
	s.file = f
	s.cursor = end
	s.out.Info("Logfile '%s' exists", path)

	return s, nil
}

// newInstanceTag returns a short random identifier such as "<1f3a9c0e>".
func newInstanceTag() string {
	return "<" + uuid.NewString()[:8] + ">"
}

// openTarget is the single open mode used on start, create and reload.
func openTarget(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0)
}

// Path returns the absolute path of the watched file.
func (s *Session) Path() string { return s.path }

// Tag returns the instance tag stamped on the session's own output.
func (s *Session) Tag() string { return s.tag }

// Matcher returns the compiled pattern.
func (s *Session) Matcher() *matcher.Matcher { return s.matcher }

// Cursor returns the offset of the end of the last scanned line.
func (s *Session) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// IsOpen reports whether the session currently holds a handle to the file.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

func (s *Session) isTarget(path string) bool {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		path = abs
	}
	return filepath.Clean(path) == s.path
}

// OnModify scans the lines appended since the cursor. Lines carrying the
// instance tag are skipped; every other matching line runs the command, in
// file order, before the next line is read. A trailing line without a
// newline is left for a later call.
func (s *Session) OnModify(ctx context.Context, path string) error {
	if !s.isTarget(path) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	if info, err := s.file.Stat(); err == nil && info.Size() < s.cursor {
		s.out.Warn("Logfile '%s' truncated, scanning from the start", s.path)
		s.cursor = 0
	}

	if _, err := s.file.Seek(s.cursor, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s to %d: %w", s.path, s.cursor, err)
	}

	r := bufio.NewReader(s.file)
	for {
		raw, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", s.path, err)
		}
		s.cursor += int64(len(raw))

		line := strings.TrimSpace(raw)
		if strings.Contains(line, s.tag) {
			continue
		}
		if !s.matcher.Match(line) {
			continue
		}

		s.out.Info("Event: %s", line)
		s.out.Info("Matching the %s", s.matcher)
		if err := s.runCommand(ctx, line); err != nil {
			return err
		}
	}
}

// OnCreate (re)opens the file and rewinds the cursor.
func (s *Session) OnCreate(_ context.Context, path string) error {
	if !s.isTarget(path) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Info("Logfile '%s' created", s.path)
	s.closeLocked()

	f, err := openTarget(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.out.Warn("Logfile '%s' disappeared before it could be opened", s.path)
			return nil
		}
		return &ExecutionError{Op: "open", Path: s.path, Err: err}
	}
	s.file = f
	s.cursor = 0
	return nil
}

// OnDelete releases the handle until the file is created again.
func (s *Session) OnDelete(_ context.Context, path string) error {
	if !s.isTarget(path) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Info("Logfile '%s' deleted, closing and waiting for it to be re-created.", s.path)
	s.closeLocked()
	return nil
}

// OnMovedFrom releases the handle after the file is renamed away.
func (s *Session) OnMovedFrom(_ context.Context, path string) error {
	if !s.isTarget(path) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.out.Info("Logfile '%s' moved, closing and waiting for it to be re-created.", s.path)
	s.closeLocked()
	return nil
}

// Reload closes and reopens the file and rewinds the cursor, whatever the
// current state.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	f, err := openTarget(s.path)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", s.path, err)
	}
	s.file = f
	s.cursor = 0
	return nil
}

// Close releases the file handle. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// runCommand runs the reaction command, reports its output and then holds
// the caller for the cooldown. Only a command that cannot be started (or
// cancellation) is returned as an error.
func (s *Session) runCommand(ctx context.Context, line string) error {
	s.out.Info("Running command: '%s'", s.command)

	started := time.Now()
	res, err := s.runner.Run(ctx, s.command, []string{EnvInstanceTag + "=" + s.tag})
	if err != nil {
		return err
	}

	if res.Stdout != "" {
		s.out.Stdout(res.Stdout)
	}
	if res.Stderr != "" {
		s.out.Stderr(res.Stderr)
	}
	if res.ExitCode != 0 {
		s.out.Warn("Command '%s' exited with status %d", s.command, res.ExitCode)
	}

	s.record(line, started, res)

	return s.wait(ctx)
}

func (s *Session) record(line string, started time.Time, res runner.Result) {
	if s.recorder == nil {
		return
	}
	run := &store.Run{
		InstanceTag: s.tag,
		LogFile:     s.path,
		Command:     s.command,
		Pattern:     s.matcher.Source,
		MatchedLine: line,
		StartedAt:   started,
		Duration:    res.Duration,
		ExitCode:    res.ExitCode,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
	}
	if err := s.recorder.RecordRun(run); err != nil {
		s.logger.Error("failed to record command run", "error", err, "command", s.command)
	}
}

// wait blocks for the cooldown. Only process shutdown cuts it short.
func (s *Session) wait(ctx context.Context) error {
	if s.cooldown <= 0 {
		return nil
	}
	timer := time.NewTimer(s.cooldown)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
