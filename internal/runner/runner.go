// Package runner executes reaction commands through the shell.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultShell interprets reaction commands.
const DefaultShell = "/bin/sh"

// Result holds the captured outcome of a command run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner runs a command line and captures its output.
type Runner interface {
	Run(ctx context.Context, command string, env []string) (Result, error)
}

// ExecError means the shell could not be started at all. A command the
// shell cannot find is an ordinary non-zero exit (127).
type ExecError struct {
	Command string
	Result  Result
	Err     error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to start command '%s': %v", e.Command, e.Err)
	}
	return fmt.Sprintf("failed to start command '%s'", e.Command)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Shell runs commands with `<Path> -c <command>`.
type Shell struct {
	// Path is the shell binary; DefaultShell when empty.
	Path string
}

// Run executes command and waits for it. A non-zero exit status is reported
// in the Result, not as an error. env entries are appended to the current
// environment.
func (s Shell) Run(ctx context.Context, command string, env []string) (Result, error) {
	shell := s.Path
	if shell == "" {
		shell = DefaultShell
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), env...)

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, &ExecError{Command: command, Result: res, Err: err}
		}
		res.ExitCode = exitErr.ExitCode()
	}

	return res, nil
}
