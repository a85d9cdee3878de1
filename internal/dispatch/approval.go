package dispatch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ralphloop/ralph/internal/task"
)

// awaitApproval blocks until a human decides the plan's fate or the approval
// window closes. The control surface runs in another process and the only
// shared medium is the store, so the gate wakes on filesystem changes to the
// store directory and re-checks, with a poll-interval tick as fallback for
// filesystems where watches are unreliable.
//
// A task deleted while under review counts as rejected. When the deadline
// passes with no decision, the gate itself fails the task with a fixed
// summary and reports rejection. A cancelled context aborts the wait without
// touching the store.
func (d *Dispatcher) awaitApproval(ctx context.Context, id int) bool {
	deadline := d.now().Add(d.cfg.ApprovalTimeout)
	d.log.Printf("waiting for plan approval on task #%d (timeout %s)", id, d.cfg.ApprovalTimeout)

	// A nil events channel just means every wake comes from the ticker.
	var events <-chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		// The save path renames a temp file over the document, so watch
		// the directory rather than the file itself.
		if err := watcher.Add(filepath.Dir(d.store.Path())); err == nil {
			events = watcher.Events
		}
	}

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		list, err := d.store.Load()
		if err == nil {
			current := list.Find(id)
			if current == nil {
				return false
			}
			switch current.Status {
			case task.StatusApproved:
				return true
			case task.StatusRejected:
				return false
			}
		}

		if d.now().After(deadline) {
			if err := d.store.Update(id, func(t *task.Task) {
				if t.Status == task.StatusPlanReview {
					t.Status = task.StatusFailed
					t.Summary = "Plan approval timed out"
				}
			}); err != nil {
				d.log.Printf("task #%d: failed to record approval timeout: %v", id, err)
			}
			d.log.Printf("task #%d: plan approval timed out", id)
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-events:
		case <-ticker.C:
		}
	}
}
