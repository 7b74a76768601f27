package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/logs2eca/internal/config"
	"github.com/blackwell-systems/logs2eca/internal/store"
)

func seedHistory(t *testing.T, commands ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := store.New(path)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	start := time.Now().Add(-time.Hour)
	for i, command := range commands {
		run := &store.Run{
			InstanceTag: "<deadbeef>",
			LogFile:     "/var/log/app.log",
			Command:     command,
			Pattern:     "ERROR",
			MatchedLine: "ERROR " + command,
			StartedAt:   start.Add(time.Duration(i) * time.Minute),
			Duration:    10 * time.Millisecond,
		}
		if err := db.RecordRun(run); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}
	return path
}

func runHistoryCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"history"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestHistory(t *testing.T) {
	isolateEnv(t)
	t.Setenv("NO_COLOR", "1")
	path := seedHistory(t, "restart-web", "restart-db")

	out, err := runHistoryCmd(t, "--db", path)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}

	for _, want := range []string{"restart-web", "restart-db", "2 runs"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "restart-db") > strings.Index(out, "restart-web") {
		t.Errorf("expected most recent run first, got:\n%s", out)
	}
}

func TestHistory_Limit(t *testing.T) {
	isolateEnv(t)
	t.Setenv("NO_COLOR", "1")
	path := seedHistory(t, "first", "second", "third")

	out, err := runHistoryCmd(t, "--db", path, "--limit", "1")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "third") || strings.Contains(out, "second") {
		t.Errorf("expected only the latest run, got:\n%s", out)
	}
}

func TestHistory_FromEnv(t *testing.T) {
	isolateEnv(t)
	path := seedHistory(t, "from-env")
	t.Setenv(config.EnvHistoryDB, path)

	out, err := runHistoryCmd(t)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "from-env") {
		t.Errorf("expected run from env database, got:\n%s", out)
	}
}

func TestHistory_MissingDatabase(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "absent.db")

	if _, err := runHistoryCmd(t, "--db", path); err == nil {
		t.Error("expected an error for a missing database")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("history must not create the database")
	}
}

func TestHistory_NoDatabaseConfigured(t *testing.T) {
	isolateEnv(t)

	_, err := runHistoryCmd(t)
	var missing *config.MissingRequiredError
	if !errors.As(err, &missing) {
		t.Errorf("history error = %v, want *MissingRequiredError", err)
	}
}

func TestHistory_NotInitialized(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := store.New(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	_, err = runHistoryCmd(t, "--db", path)
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("history error = %v, want store.ErrNotInitialized", err)
	}
}
