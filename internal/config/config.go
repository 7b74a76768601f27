// Package config resolves logs2eca settings from a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWait is the cooldown, in seconds, after each command run.
const DefaultWait = 3

// Environment variable names.
const (
	EnvLogFile        = "LOGS2ECA_LOG_FILE"
	EnvPattern        = "LOGS2ECA_EVENT_PATTERN"
	EnvCommand        = "LOGS2ECA_COMMAND"
	EnvWait           = "LOGS2ECA_WAIT"
	EnvArbitraryMatch = "LOGS2ECA_ARBITRARY_MATCH"
	EnvHistoryDB      = "LOGS2ECA_HISTORY_DB"
	EnvPIDFile        = "LOGS2ECA_PID_FILE"
	EnvLogLevel       = "LOGS2ECA_LOG_LEVEL"
)

// Config holds everything needed to start a watch session.
type Config struct {
	LogFile        string `yaml:"logfile"`
	Pattern        string `yaml:"pattern"`
	Command        string `yaml:"command"`
	Wait           int    `yaml:"wait"`
	ArbitraryMatch bool   `yaml:"arbitrary_substring_match"`

	// HistoryDB is an optional SQLite path where command runs are recorded.
	HistoryDB string `yaml:"history_db"`
	// PIDFile is written on start so `logs2eca reload` can find the process.
	PIDFile  string `yaml:"pid_file"`
	LogLevel string `yaml:"log_level"`
}

// MissingRequiredError lists required settings absent from every source.
type MissingRequiredError struct {
	Names []string
}

func (e *MissingRequiredError) Error() string {
	return fmt.Sprintf("Missing required argument: %s", strings.Join(e.Names, ", "))
}

// ParseError reports a setting that is present but unusable.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error parsing arguments: %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Default returns a Config holding only default values.
func Default() *Config {
	return &Config{
		Wait:     DefaultWait,
		LogLevel: "warn",
	}
}

// Dir returns the logs2eca config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/logs2eca if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "logs2eca"), nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current values. When optional is true a missing file is not an
// error.
func (cfg *Config) LoadFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &ParseError{Source: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return &ParseError{Source: path, Err: err}
	}
	return nil
}

// ApplyEnv overlays non-empty environment variables onto cfg. lookup is
// normally os.LookupEnv.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get(EnvLogFile); ok {
		cfg.LogFile = v
	}
	if v, ok := get(EnvPattern); ok {
		cfg.Pattern = v
	}
	if v, ok := get(EnvCommand); ok {
		cfg.Command = v
	}
	if v, ok := get(EnvWait); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ParseError{Source: EnvWait, Err: err}
		}
		cfg.Wait = n
	}
	if v, ok := get(EnvArbitraryMatch); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return &ParseError{Source: EnvArbitraryMatch, Err: err}
		}
		cfg.ArbitraryMatch = b
	}
	if v, ok := get(EnvHistoryDB); ok {
		cfg.HistoryDB = v
	}
	if v, ok := get(EnvPIDFile); ok {
		cfg.PIDFile = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	return nil
}

// Normalize trims the values that are whitespace-insensitive.
func (cfg *Config) Normalize() {
	cfg.LogFile = strings.TrimSpace(cfg.LogFile)
	cfg.Pattern = strings.TrimSpace(cfg.Pattern)
	cfg.Command = strings.TrimSpace(cfg.Command)
	cfg.HistoryDB = strings.TrimSpace(cfg.HistoryDB)
	cfg.PIDFile = strings.TrimSpace(cfg.PIDFile)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
}

// Validate checks that required settings are present and values are in range.
func (cfg *Config) Validate() error {
	var missing []string
	if cfg.LogFile == "" {
		missing = append(missing, "logfile")
	}
	if cfg.Pattern == "" {
		missing = append(missing, "pattern")
	}
	if cfg.Command == "" {
		missing = append(missing, "command")
	}
	if len(missing) > 0 {
		return &MissingRequiredError{Names: missing}
	}

	if cfg.Wait < 0 {
		return &ParseError{Source: "wait", Err: fmt.Errorf("must be >= 0, got %d", cfg.Wait)}
	}

	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return &ParseError{Source: "log-level", Err: fmt.Errorf("unknown level %q", cfg.LogLevel)}
	}

	return nil
}
