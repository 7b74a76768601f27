package store

import (
	"fmt"
	"time"
)

// timeLayout is fixed width so started_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun inserts a completed command run and sets its ID.
func (s *Store) RecordRun(run *Run) error {
	query := `
		INSERT INTO runs
		(instance_tag, log_file, command, pattern, matched_line, started_at, duration_ms, exit_code, stdout, stderr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		run.InstanceTag,
		run.LogFile,
		run.Command,
		run.Pattern,
		run.MatchedLine,
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.ExitCode,
		run.Stdout,
		run.Stderr,
	)
	if err != nil {
		return wrapQueryErr("failed to record run", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id

	return nil
}

// ListRuns returns up to limit runs, most recent first. A limit of zero or
// less returns every run.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, instance_tag, log_file, command, pattern, matched_line, started_at, duration_ms, exit_code, stdout, stderr
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr("failed to list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMS int64

		if err := rows.Scan(
			&run.ID,
			&run.InstanceTag,
			&run.LogFile,
			&run.Command,
			&run.Pattern,
			&run.MatchedLine,
			&startedAt,
			&durationMS,
			&run.ExitCode,
			&run.Stdout,
			&run.Stderr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %d: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
