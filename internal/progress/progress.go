// Package progress maintains the append-only PROGRESS.md work log.
package progress

import (
	"fmt"
	"os"
	"time"
)

// Logger appends human-readable entries to a markdown log. The log is never
// truncated or rotated here.
type Logger struct {
	path string
}

// NewLogger creates a logger for the given PROGRESS.md path.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Append writes one entry recording the task id, a timestamp, and the result
// summary, terminated by a visible delimiter.
func (l *Logger) Append(taskID int, summary string) error {
	ts := time.Now().UTC().Format("2006-01-02 15:04")
	entry := fmt.Sprintf("\n## Task #%d — %s\n\n%s\n\n---\n", taskID, ts, summary)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open progress log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write progress entry: %w", err)
	}
	return nil
}

// Read returns the full log contents, or "" when the log does not exist yet.
func (l *Logger) Read() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return string(data)
}
