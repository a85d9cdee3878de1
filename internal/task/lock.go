package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	lockRetryInterval = 25 * time.Millisecond
	lockWaitCeiling   = 5 * time.Second
)

// fileLock serializes load-modify-save cycles on the task document across
// processes. It is held only for the duration of a single mutation, unlike a
// run lock. Stale locks left by dead processes are cleaned up.
type fileLock struct {
	path string
}

// acquire creates the lock file with O_EXCL and writes our PID. If another
// live process holds the lock it retries until lockWaitCeiling elapses.
func (l *fileLock) acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	deadline := time.Now().Add(lockWaitCeiling)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, writeErr := fmt.Fprintf(f, "%d", os.Getpid())
			f.Close()
			if writeErr != nil {
				os.Remove(l.path)
				return fmt.Errorf("failed to write lock file: %w", writeErr)
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		if stale, readErr := l.isStale(); readErr == nil && stale {
			// Holder is gone; remove and retry immediately.
			os.Remove(l.path)
			continue
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("task store is locked by another process")
		}
		time.Sleep(lockRetryInterval)
	}
}

// release removes the lock file. Idempotent.
func (l *fileLock) release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// isStale reports whether the current lock file belongs to a dead process or
// contains garbage. A vanished lock file counts as stale.
func (l *fileLock) isStale() (bool, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return true, nil
	}
	return !processExists(pid), nil
}

// processExists checks for a live process using signal 0.
func processExists(pid int) bool {
	if pid == os.Getpid() {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
