// Package task holds the task model, the persisted task list, and the
// scheduler policy that decides what runs next.
package task

import "time"

// Task status constants. See the state machine in internal/dispatch.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusPlanReview = "plan_review"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusPushReview = "push_review"
	StatusPushed     = "pushed"
	StatusDecomposed = "decomposed"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Priority constants. An absent or unrecognized priority is treated as medium.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TimeLayout is the sortable timestamp form stored in created_at and
// completed_at. "Today" membership is decided by string prefix against a
// "2006-01-02" date, not by parsing.
const TimeLayout = "2006-01-02T15:04:05"

// Session records a single Claude Code invocation for a task.
type Session struct {
	StartedAt string `json:"started_at"`
	DurationS int    `json:"duration_s"`
	ExitCode  int    `json:"exit_code"`
	Mode      string `json:"mode"`
}

// Task is the unit of work. IDs are assigned as max(existing)+1 and never
// reused or mutated. Parent links a subtask to the task it was split from;
// neither side owns the other's lifetime.
type Task struct {
	ID          int       `json:"id"`
	Status      string    `json:"status"`
	Prompt      string    `json:"prompt"`
	Priority    string    `json:"priority,omitempty"`
	Parent      *int      `json:"parent"`
	Plan        string    `json:"plan,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   string    `json:"created_at,omitempty"`
	CompletedAt string    `json:"completed_at,omitempty"`
	Sessions    []Session `json:"sessions,omitempty"`
}

// List is the whole persisted document: a single container holding every
// task. There is no per-task file; every write rewrites the document.
type List struct {
	Tasks []Task `json:"tasks"`
}

// Find returns a pointer to the first task with the given id, or nil.
func (l *List) Find(id int) *Task {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return &l.Tasks[i]
		}
	}
	return nil
}

// NextID returns max(existing ids)+1, or 1 for an empty list. Deleted ids are
// never handed out again because the maximum only grows.
func (l *List) NextID() int {
	max := 0
	for i := range l.Tasks {
		if l.Tasks[i].ID > max {
			max = l.Tasks[i].ID
		}
	}
	return max + 1
}

// Now returns the current UTC time in TimeLayout.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// Today returns the current UTC date as a "2006-01-02" prefix.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
