package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/logs2eca/internal/config"
	"github.com/blackwell-systems/logs2eca/internal/store"
	"github.com/blackwell-systems/logs2eca/internal/watcher"
)

// RootCmd is the root command for logs2eca
var RootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs2eca",
		Short: "Run a command whenever a matching line is appended to a log file",
		Long: `logs2eca follows a log file and runs a shell command each time a newly
appended line matches the event pattern (event, condition, action).

The pattern is matched as a whole word by default. Pass
--arbitrary-substring-match to match it anywhere in a line, or wrap it in
one of the delimiters / | % to use a regular expression:

  -p ERROR          matches "an ERROR here" but not "ERRORS"
  -p ERROR -a       also matches "ERRORS"
  -p '/time(d)?out/' regular expression

Only complete lines are scanned: a last line without a trailing newline is
held back until its newline is written.

After each command run logs2eca waits --wait seconds before scanning again.
Rotated, deleted and re-created log files are followed automatically; send
SIGHUP (or run 'logs2eca reload') to reopen the file by hand.

Settings are read from ~/.config/logs2eca/config.yaml, then LOGS2ECA_*
environment variables, then flags.`,
		Example: `  # Restart a service when it reports a timeout
  logs2eca -l /var/log/app.log -p '/timed? ?out/' -c 'systemctl restart app'

  # Record every run for 'logs2eca history'
  logs2eca -l app.log -p FATAL -c ./page-oncall.sh --history-db ~/.logs2eca.db

  # Reopen the log file of a running instance
  logs2eca reload --pid-file /run/logs2eca.pid`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatch,
	}

	flags := cmd.Flags()
	flags.StringP("logfile", "l", "", "log file to watch")
	flags.StringP("pattern", "p", "", "event pattern; wrap in / | or % for a regular expression")
	flags.StringP("command", "c", "", "shell command to run on each match")
	flags.IntP("wait", "w", config.DefaultWait, "seconds to wait after each command run")
	flags.BoolP("arbitrary-substring-match", "a", false, "match the pattern anywhere, not only as a whole word")
	flags.String("config", "", "config file path (default: ~/.config/logs2eca/config.yaml)")
	flags.String("history-db", "", "SQLite database for recording command runs")
	flags.String("pid-file", "", "write the process ID here for 'reload' and 'stop'")
	flags.String("log-level", "", "diagnostic log level: debug, info, warn, error")

	cmd.SuggestionsMinimumDistance = 2

	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newReloadCmd())
	cmd.AddCommand(newStopCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// resolveConfig merges defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func resolveConfig(cmd *cobra.Command, lookup func(string) (string, bool)) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := config.Default()

	path, _ := flags.GetString("config")
	optional := false
	if path == "" {
		if dir, err := config.Dir(); err == nil {
			path = filepath.Join(dir, "config.yaml")
			optional = true
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path, optional); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if flags.Changed("logfile") {
		cfg.LogFile, _ = flags.GetString("logfile")
	}
	if flags.Changed("pattern") {
		cfg.Pattern, _ = flags.GetString("pattern")
	}
	if flags.Changed("command") {
		cfg.Command, _ = flags.GetString("command")
	}
	if flags.Changed("wait") {
		cfg.Wait, _ = flags.GetInt("wait")
	}
	if flags.Changed("arbitrary-substring-match") {
		cfg.ArbitraryMatch, _ = flags.GetBool("arbitrary-substring-match")
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB, _ = flags.GetString("history-db")
	}
	if flags.Changed("pid-file") {
		cfg.PIDFile, _ = flags.GetString("pid-file")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a text logger for diagnostics. Unknown levels fall back
// to warn.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelWarn
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = slog.LevelWarn
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// notifyReload routes SIGHUP to the returned channel until stop is called.
func notifyReload() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGHUP)
	return ch, func() { signal.Stop(ch) }
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Registered before any setup so an early SIGHUP is queued rather than
	// terminating the process.
	reload, stopReload := notifyReload()
	defer stopReload()

	cfg, err := resolveConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	var recorder watcher.Recorder
	if cfg.HistoryDB != "" {
		db, err := store.New(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		if err := db.CreateSchema(); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
		recorder = db
	}

	session, err := watcher.New(watcher.Options{
		Path:           cfg.LogFile,
		Pattern:        cfg.Pattern,
		ArbitraryMatch: cfg.ArbitraryMatch,
		Command:        cfg.Command,
		Cooldown:       time.Duration(cfg.Wait) * time.Second,
		Recorder:       recorder,
		Stdout:         cmd.OutOrStdout(),
		Stderr:         cmd.ErrOrStderr(),
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	dir := filepath.Dir(session.Path())
	src, err := watcher.NewFSSource(dir)
	if err != nil {
		return &watcher.ExecutionError{Op: "watch", Path: dir, Err: err}
	}
	defer src.Close()

	if cfg.PIDFile != "" {
		if err := watcher.WritePIDFile(cfg.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := watcher.RemovePIDFile(cfg.PIDFile); err != nil {
				logger.Warn("failed to remove PID file", "path", cfg.PIDFile, "error", err)
			}
		}()
	}

	logger.Debug("watching", "path", session.Path(), "pattern", session.Matcher().String(), "tag", session.Tag())

	return watcher.NewDispatcher(session, src, reload, logger).Run(cmd.Context())
}
