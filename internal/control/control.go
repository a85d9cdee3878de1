// Package control implements the status-changing operations exposed to
// humans. Every operation is an idempotent no-op when the task is not in the
// required source state, and none of them ever fails on an invalid
// transition attempt.
package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ralphloop/ralph/internal/git"
	"github.com/ralphloop/ralph/internal/task"
)

// ErrEmptyPrompt is returned when a task would be created without a prompt.
var ErrEmptyPrompt = errors.New("task prompt must not be empty")

// Service mutates the task store on behalf of a control surface. The
// dispatcher runs in another process; each call here is its own
// load-mutate-save cycle against the shared document.
type Service struct {
	store     *task.Store
	workspace string

	// pushFn is swapped in tests. Defaults to git.Push.
	pushFn func(dir string) error
}

// NewService creates a control service over the given store. workspace is
// where approve-push runs git.
func NewService(store *task.Store, workspace string) *Service {
	return &Service{store: store, workspace: workspace, pushFn: git.Push}
}

// Add creates a new pending task. Priority falls back to medium when blank.
func (s *Service) Add(prompt, priority string) (task.Task, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return task.Task{}, ErrEmptyPrompt
	}
	if priority == "" {
		priority = task.PriorityMedium
	}
	return s.store.Add(prompt, priority, nil)
}

// Edit updates prompt and priority while the task is editable
// (pending, failed, or rejected). A blank prompt leaves the old one in place.
func (s *Service) Edit(id int, prompt, priority string) error {
	prompt = strings.TrimSpace(prompt)
	return s.store.Update(id, func(t *task.Task) {
		switch t.Status {
		case task.StatusPending, task.StatusFailed, task.StatusRejected:
			if prompt != "" {
				t.Prompt = prompt
			}
			t.Priority = priority
		}
	})
}

// Delete removes the task unless it is currently in progress.
func (s *Service) Delete(id int) error {
	return s.store.Mutate(func(list *task.List) {
		kept := list.Tasks[:0]
		for _, t := range list.Tasks {
			if t.ID == id && t.Status != task.StatusInProgress {
				continue
			}
			kept = append(kept, t)
		}
		list.Tasks = kept
	})
}

// Approve releases a plan under review; the dispatcher picks it up from its
// approval poll.
func (s *Service) Approve(id int) error {
	return s.store.Update(id, func(t *task.Task) {
		if t.Status == task.StatusPlanReview {
			t.Status = task.StatusApproved
		}
	})
}

// Reject declines a plan under review. Feedback, when given, is kept as the
// task summary.
func (s *Service) Reject(id int, feedback string) error {
	return s.store.Update(id, func(t *task.Task) {
		if t.Status == task.StatusPlanReview {
			t.Status = task.StatusRejected
			if feedback != "" {
				t.Summary = "Rejected: " + feedback
			}
		}
	})
}

// Cancel marks an active task failed for bookkeeping. It cannot interrupt a
// running claude invocation; the subprocess finishes in the background.
func (s *Service) Cancel(id int) error {
	return s.store.Update(id, func(t *task.Task) {
		switch t.Status {
		case task.StatusInProgress, task.StatusPlanReview, task.StatusApproved:
			t.Status = task.StatusFailed
			t.Summary = t.Summary + "\nCancelled by user."
		}
	})
}

// Retry requeues a failed, rejected, or done task, clearing the artifacts of
// the previous run.
func (s *Service) Retry(id int) error {
	return s.store.Update(id, func(t *task.Task) {
		switch t.Status {
		case task.StatusFailed, task.StatusRejected, task.StatusDone:
			t.Status = task.StatusPending
			t.CompletedAt = ""
			t.Summary = ""
			t.Plan = ""
		}
	})
}

// ApprovePush publishes a locally committed task. The push itself is
// best-effort: a git failure is reported in the summary, never as an error.
func (s *Service) ApprovePush(id int) error {
	pushed := false
	err := s.store.Update(id, func(t *task.Task) {
		if t.Status == task.StatusPushReview {
			t.Status = task.StatusPushed
			pushed = true
		}
	})
	if err != nil || !pushed {
		return err
	}
	if pushErr := s.pushFn(s.workspace); pushErr != nil {
		return s.store.Update(id, func(t *task.Task) {
			t.Summary = t.Summary + fmt.Sprintf("\nPush failed: %v", pushErr)
		})
	}
	return nil
}

// RejectPush keeps the commit local and finishes the task as done.
func (s *Service) RejectPush(id int) error {
	return s.store.Update(id, func(t *task.Task) {
		if t.Status == task.StatusPushReview {
			t.Status = task.StatusDone
			t.Summary = t.Summary + "\nPush skipped by user (local commit only)."
		}
	})
}
