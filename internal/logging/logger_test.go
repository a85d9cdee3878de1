package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	t.Run("writes timestamped lines to the log file", func(t *testing.T) {
		dir := t.TempDir()
		l, err := New(dir, "dispatch")
		if err != nil {
			t.Fatalf("new failed: %v", err)
		}
		defer l.Close()

		l.Printf("starting task #%d", 3)

		data, err := os.ReadFile(filepath.Join(dir, "logs", "ralph.log"))
		if err != nil {
			t.Fatalf("log file missing: %v", err)
		}
		line := string(data)
		if !strings.Contains(line, "[dispatch] starting task #3") {
			t.Errorf("line = %q", line)
		}
		if !strings.HasPrefix(line, "[") {
			t.Errorf("line not timestamped: %q", line)
		}
	})

	t.Run("appends across instances", func(t *testing.T) {
		dir := t.TempDir()

		l1, _ := New(dir, "a")
		l1.Printf("first")
		l1.Close()

		l2, _ := New(dir, "b")
		l2.Printf("second")
		l2.Close()

		data, _ := os.ReadFile(filepath.Join(dir, "logs", "ralph.log"))
		if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
			t.Errorf("log = %q", string(data))
		}
	})

	t.Run("discard logger never panics", func(t *testing.T) {
		l := Discard("test")
		l.Printf("stdout only")
		if err := l.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})

	t.Run("nil logger is safe", func(t *testing.T) {
		var l *Logger
		l.Printf("ignored")
		if err := l.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})
}
