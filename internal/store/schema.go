package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instance_tag TEXT NOT NULL,
    log_file TEXT NOT NULL,
    command TEXT NOT NULL,
    pattern TEXT NOT NULL,
    matched_line TEXT,
    started_at TEXT NOT NULL,
    duration_ms INTEGER,
    exit_code INTEGER,
    stdout TEXT,
    stderr TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_log_file ON runs(log_file);
`
