package watcher

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// WritePIDFile records the current process ID in pidFile so that
// `logs2eca reload` and `logs2eca stop` can find it. It refuses to overwrite
// the PID file of another live instance.
func WritePIDFile(pidFile string) error {
	running, err := IsRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check PID file: %w", err)
	}
	if running {
		pid, _ := readPID(pidFile)
		if pid != os.Getpid() {
			return fmt.Errorf("another instance is running (PID %d, PID file: %s)", pid, pidFile)
		}
	}

	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// RemovePIDFile deletes pidFile; a missing file is not an error.
func RemovePIDFile(pidFile string) error {
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// SignalProcess sends sig to the process recorded in pidFile.
func SignalProcess(pidFile string, sig unix.Signal) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("logs2eca not running (PID file not found)")
		}
		return err
	}

	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to send %s to process %d: %w", unix.SignalName(sig), pid, err)
	}
	return nil
}

// IsRunning checks whether the process recorded in pidFile is alive. A stale
// PID file is removed.
func IsRunning(pidFile string) (bool, error) {
	pid, err := readPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			// Invalid PID file, consider the process not running
			return false, nil
		}
		return false, err
	}

	// Signal 0 probes for existence; EPERM still means the process exists.
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		os.Remove(pidFile)
		return false, nil
	}

	return true, nil
}

func readPID(pidFile string) (int, error) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %w", &strconv.NumError{Func: "Atoi", Num: strconv.Itoa(pid), Err: strconv.ErrRange})
	}
	return pid, nil
}
