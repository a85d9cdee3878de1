// Package logging appends timestamped lines to .ralph/logs/ralph.log so the
// dispatcher's history survives terminal sessions. Messages are also echoed
// to stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger writes prefixed, timestamped log lines to a file and to stdout.
type Logger struct {
	prefix string
	file   *os.File
}

// New creates (or reuses) the log file under dataDir/logs.
func New(dataDir, prefix string) (*Logger, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "ralph.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{prefix: prefix, file: f}, nil
}

// Discard returns a logger that only writes to stdout. Used when the data
// directory is unavailable and by tests.
func Discard(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Printf("[%s] %s\n", l.prefix, line)
	if l.file != nil {
		timestamp := time.Now().Format(time.RFC3339)
		fmt.Fprintf(l.file, "[%s] [%s] %s\n", timestamp, l.prefix, line)
	}
}
