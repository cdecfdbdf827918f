package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"archivist/internal/config"
)

// Status represents daemon runtime information observed from outside the process.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	PIDFilePath  string
	LedgerPath   string
}

// ReadStatus probes the lock without holding it and reads the pid file.
func ReadStatus(cfg *config.Config) (Status, error) {
	status := Status{
		LockFilePath: cfg.LockPath(),
		PIDFilePath:  cfg.PIDPath(),
		LedgerPath:   cfg.LedgerPath(),
	}
	if _, err := os.Stat(status.LockFilePath); err == nil {
		probe := flock.New(status.LockFilePath)
		ok, err := probe.TryLock()
		if err != nil {
			return status, fmt.Errorf("probe lock: %w", err)
		}
		if ok {
			_ = probe.Unlock()
		} else {
			status.Running = true
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return status, fmt.Errorf("stat lock: %w", err)
	}

	pid, err := ReadPID(status.PIDFilePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return status, err
	}
	status.PID = pid
	return status, nil
}

// WritePID records the current process id at path.
func WritePID(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID parses the pid file at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}
