package watcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/blackwell-systems/logs2eca/internal/runner"
	"github.com/blackwell-systems/logs2eca/internal/store"
)

// syncBuffer is a bytes.Buffer safe for the reload goroutine to write to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeCall struct {
	command string
	env     []string
	start   time.Time
	end     time.Time
}

// fakeRunner records calls instead of spawning a shell.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []fakeCall
	result runner.Result
	err    error
	// out, when set, receives "RUN <n>" for each call so tests can check
	// ordering against the session's notices.
	out   *syncBuffer
	ran   chan struct{}
	delay time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, command string, env []string) (runner.Result, error) {
	start := time.Now()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{command: command, env: env, start: start, end: time.Now()})
	n := len(f.calls)
	f.mu.Unlock()

	if f.out != nil {
		f.out.Write([]byte("RUN " + strconv.Itoa(n) + "\n"))
	}
	if f.ran != nil {
		f.ran <- struct{}{}
	}
	return f.result, f.err
}

func (f *fakeRunner) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

// failingRecorder always fails to persist.
type failingRecorder struct{ calls int }

func (r *failingRecorder) RecordRun(*store.Run) error {
	r.calls++
	return os.ErrPermission
}

type testSession struct {
	*Session
	stdout *syncBuffer
	stderr *syncBuffer
}

func newTestSession(t *testing.T, opts Options) *testSession {
	t.Helper()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	opts.Stdout = stdout
	opts.Stderr = stderr
	if opts.Command == "" {
		opts.Command = "true"
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &testSession{Session: s, stdout: stdout, stderr: stderr}
}

// tempLog creates a log file holding content in a fresh directory.
func tempLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("failed to open log for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("failed to append to log: %v", err)
	}
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("setupTestStore: open: %v", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		t.Fatalf("setupTestStore: schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// eventually polls cond until it holds or the timeout passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
