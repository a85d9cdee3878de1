package task

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock(t *testing.T) {
	t.Run("acquire and release", func(t *testing.T) {
		l := fileLock{path: filepath.Join(t.TempDir(), "tasks.json.lock")}

		if err := l.acquire(); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		if _, err := os.Stat(l.path); err != nil {
			t.Fatalf("lock file not created: %v", err)
		}
		if err := l.release(); err != nil {
			t.Fatalf("release failed: %v", err)
		}
		if _, err := os.Stat(l.path); !os.IsNotExist(err) {
			t.Error("lock file still present after release")
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		l := fileLock{path: filepath.Join(t.TempDir(), "tasks.json.lock")}
		if err := l.release(); err != nil {
			t.Fatalf("release of absent lock failed: %v", err)
		}
	})

	t.Run("stale lock from dead process is reclaimed", func(t *testing.T) {
		l := fileLock{path: filepath.Join(t.TempDir(), "tasks.json.lock")}
		// PIDs in this range are effectively never alive.
		if err := os.WriteFile(l.path, []byte("999999"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := l.acquire(); err != nil {
			t.Fatalf("acquire over stale lock failed: %v", err)
		}
		l.release()
	})

	t.Run("garbage lock content is treated as stale", func(t *testing.T) {
		l := fileLock{path: filepath.Join(t.TempDir(), "tasks.json.lock")}
		if err := os.WriteFile(l.path, []byte("not-a-pid"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := l.acquire(); err != nil {
			t.Fatalf("acquire over garbage lock failed: %v", err)
		}
		l.release()
	})

	t.Run("waits for a live holder", func(t *testing.T) {
		l := fileLock{path: filepath.Join(t.TempDir(), "tasks.json.lock")}
		if err := l.acquire(); err != nil {
			t.Fatalf("first acquire failed: %v", err)
		}

		done := make(chan error, 1)
		go func() {
			second := fileLock{path: l.path}
			done <- second.acquire()
		}()

		select {
		case err := <-done:
			t.Fatalf("second acquire did not wait: %v", err)
		case <-time.After(100 * time.Millisecond):
		}

		l.release()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("second acquire failed after release: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("second acquire never succeeded")
		}
	})
}
