package store

import "time"

// Run records one reaction command execution.
type Run struct {
	ID          int64
	InstanceTag string
	LogFile     string
	Command     string
	Pattern     string
	MatchedLine string
	StartedAt   time.Time
	Duration    time.Duration
	ExitCode    int
	Stdout      string
	Stderr      string
}
