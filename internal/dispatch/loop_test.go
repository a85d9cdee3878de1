package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/logging"
	"github.com/ralphloop/ralph/internal/runner"
	"github.com/ralphloop/ralph/internal/task"
)

// fakeRunner scripts the gateway's behavior per mode.
type fakeRunner struct {
	mu        sync.Mutex
	planCalls int
	execCalls int

	planRes *runner.Result
	planErr error
	execRes *runner.Result
	execErr error

	// onExec runs before the execute result is returned, with the lock held.
	onExec func()
}

func (f *fakeRunner) Run(ctx context.Context, prompt string, mode runner.Mode) (*runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mode == runner.ModePlan {
		f.planCalls++
		return f.planRes, f.planErr
	}
	f.execCalls++
	if f.onExec != nil {
		f.onExec()
	}
	return f.execRes, f.execErr
}

func (f *fakeRunner) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.planCalls, f.execCalls
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Workspace = dir
	cfg.TasksFile = filepath.Join(dir, ".ralph", "tasks.json")
	cfg.ProgressFile = filepath.Join(dir, "PROGRESS.md")
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ApprovalTimeout = 2 * time.Second
	cfg.IdleSleep = 5 * time.Millisecond
	cfg.CapBackoff = 5 * time.Millisecond
	return cfg
}

func newTestDispatcher(t *testing.T, cfg config.Config, r runner.Runner) (*Dispatcher, *task.Store) {
	t.Helper()
	store := task.NewStore(cfg.TasksFile)
	d := New(cfg, store, r, logging.Discard("test"))
	d.commitFn = func(dir, message string) error { return nil }
	return d, store
}

// decideWhen polls for the task to reach the given status, then applies decide.
func decideWhen(t *testing.T, store *task.Store, id int, status string, decide func(*task.Task)) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			list, err := store.Load()
			if err == nil {
				if tk := list.Find(id); tk != nil && tk.Status == status {
					store.Update(id, decide)
					return
				}
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()
}

func findTask(t *testing.T, store *task.Store, id int) task.Task {
	t.Helper()
	list, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	tk := list.Find(id)
	if tk == nil {
		t.Fatalf("task #%d missing", id)
	}
	return *tk
}

func TestRunOnceHappyPath(t *testing.T) {
	cfg := testConfig(t)
	r := &fakeRunner{
		planRes: &runner.Result{ExitCode: 0, Output: "the plan", Duration: time.Second},
		execRes: &runner.Result{ExitCode: 0, Output: "implemented everything", Duration: 2 * time.Second},
	}
	d, store := newTestDispatcher(t, cfg, r)

	var commitMsg string
	d.commitFn = func(dir, message string) error {
		commitMsg = message
		return nil
	}

	created, _ := store.Add("build the feature", task.PriorityMedium, nil)
	decideWhen(t, store, created.ID, task.StatusPlanReview, func(tk *task.Task) {
		tk.Status = task.StatusApproved
	})

	if got := d.runOnce(context.Background()); got != outcomeDispatched {
		t.Fatalf("outcome = %v, want dispatched", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusDone {
		t.Fatalf("status = %q, want done", tk.Status)
	}
	if tk.Plan != "the plan" {
		t.Errorf("plan = %q", tk.Plan)
	}
	if tk.Summary != "implemented everything" {
		t.Errorf("summary = %q", tk.Summary)
	}
	if tk.CompletedAt == "" {
		t.Error("completed_at not set")
	}
	if len(tk.Sessions) != 2 {
		t.Errorf("got %d sessions, want 2 (plan + execute)", len(tk.Sessions))
	}
	if !strings.Contains(commitMsg, "#1") {
		t.Errorf("commit message = %q, want the task id in it", commitMsg)
	}

	// The progress log got an entry.
	data, err := os.ReadFile(cfg.ProgressFile)
	if err != nil {
		t.Fatalf("progress file missing: %v", err)
	}
	if !strings.Contains(string(data), "implemented everything") {
		t.Errorf("progress log missing the summary: %q", string(data))
	}
}

func TestRunOncePlanTimeout(t *testing.T) {
	cfg := testConfig(t)
	r := &fakeRunner{planErr: runner.ErrRunTimeout}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("slow task", task.PriorityMedium, nil)

	if got := d.runOnce(context.Background()); got != outcomeDispatched {
		t.Fatalf("outcome = %v, want dispatched", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusFailed {
		t.Fatalf("status = %q, want failed", tk.Status)
	}
	if tk.Summary != "Plan step timed out" {
		t.Errorf("summary = %q", tk.Summary)
	}
	if _, execs := r.calls(); execs != 0 {
		t.Errorf("execute ran %d times after a plan timeout", execs)
	}
}

func TestRunOncePlanFailure(t *testing.T) {
	cfg := testConfig(t)
	r := &fakeRunner{planErr: errors.New("spawn failed")}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("doomed", task.PriorityMedium, nil)
	d.runOnce(context.Background())

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusFailed {
		t.Fatalf("status = %q, want failed", tk.Status)
	}
	if !strings.Contains(tk.Summary, "Plan step failed") || !strings.Contains(tk.Summary, "spawn failed") {
		t.Errorf("summary = %q", tk.Summary)
	}
}

func TestRunOnceRejection(t *testing.T) {
	cfg := testConfig(t)
	r := &fakeRunner{
		planRes: &runner.Result{Output: "a bad plan", Duration: time.Second},
	}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("risky change", task.PriorityMedium, nil)
	decideWhen(t, store, created.ID, task.StatusPlanReview, func(tk *task.Task) {
		tk.Status = task.StatusRejected
		tk.Summary = "Rejected: too risky"
	})

	if got := d.runOnce(context.Background()); got != outcomeDispatched {
		t.Fatalf("outcome = %v, want dispatched", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusRejected {
		t.Fatalf("status = %q, want rejected", tk.Status)
	}
	if tk.Summary != "Rejected: too risky" {
		t.Errorf("summary = %q, reviewer feedback must survive", tk.Summary)
	}
	if _, execs := r.calls(); execs != 0 {
		t.Errorf("execute ran %d times for a rejected plan", execs)
	}
}

func TestRunOnceApprovalTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.ApprovalTimeout = 30 * time.Millisecond
	r := &fakeRunner{
		planRes: &runner.Result{Output: "ignored plan", Duration: time.Second},
	}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("forgotten", task.PriorityMedium, nil)

	if got := d.runOnce(context.Background()); got != outcomeDispatched {
		t.Fatalf("outcome = %v, want dispatched", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusFailed {
		t.Fatalf("status = %q, want failed", tk.Status)
	}
	if tk.Summary != "Plan approval timed out" {
		t.Errorf("summary = %q", tk.Summary)
	}
	if _, execs := r.calls(); execs != 0 {
		t.Errorf("execute ran %d times after approval timed out", execs)
	}
}

func TestRunOnceExecTimeout(t *testing.T) {
	cfg := testConfig(t)
	r := &fakeRunner{
		planRes: &runner.Result{Output: "fine plan", Duration: time.Second},
		execErr: runner.ErrRunTimeout,
	}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("long task", task.PriorityMedium, nil)
	decideWhen(t, store, created.ID, task.StatusPlanReview, func(tk *task.Task) {
		tk.Status = task.StatusApproved
	})

	d.runOnce(context.Background())

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusFailed {
		t.Fatalf("status = %q, want failed", tk.Status)
	}
	if tk.Summary != "Execution timed out" {
		t.Errorf("summary = %q", tk.Summary)
	}
}

func TestRunOnceDecomposition(t *testing.T) {
	cfg := testConfig(t)
	var store *task.Store
	r := &fakeRunner{
		planRes: &runner.Result{Output: "split it up", Duration: time.Second},
		execRes: &runner.Result{Output: "created subtasks", Duration: time.Second},
	}
	parent := 1
	r.onExec = func() {
		// The agent wrote new pending subtasks into the document.
		store.Mutate(func(list *task.List) {
			list.Tasks = append(list.Tasks,
				task.Task{ID: list.NextID(), Status: task.StatusPending, Prompt: "part one", Parent: &parent},
			)
		})
	}

	d, s := newTestDispatcher(t, cfg, r)
	store = s

	var committed bool
	d.commitFn = func(dir, message string) error {
		committed = true
		return nil
	}

	created, _ := store.Add("big task", task.PriorityMedium, nil)
	decideWhen(t, store, created.ID, task.StatusPlanReview, func(tk *task.Task) {
		tk.Status = task.StatusApproved
	})

	if got := d.runOnce(context.Background()); got != outcomeDispatched {
		t.Fatalf("outcome = %v, want dispatched", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusDecomposed {
		t.Fatalf("status = %q, want decomposed", tk.Status)
	}
	if tk.CompletedAt != "" {
		t.Error("decomposed task has a completion time")
	}
	if committed {
		t.Error("commit ran on the decomposed path")
	}
	if len(tk.Sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(tk.Sessions))
	}
}

func TestRunOncePushReview(t *testing.T) {
	cfg := testConfig(t)
	cfg.PushReview = true
	r := &fakeRunner{
		planRes: &runner.Result{Output: "plan", Duration: time.Second},
		execRes: &runner.Result{Output: "done work", Duration: time.Second},
	}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("shippable", task.PriorityMedium, nil)
	decideWhen(t, store, created.ID, task.StatusPlanReview, func(tk *task.Task) {
		tk.Status = task.StatusApproved
	})

	d.runOnce(context.Background())

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusPushReview {
		t.Fatalf("status = %q, want push_review", tk.Status)
	}
	if tk.CompletedAt == "" {
		t.Error("completed_at not set before push review")
	}
}

func TestRunOnceDailyCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.DailyLimit = 1
	r := &fakeRunner{}
	d, store := newTestDispatcher(t, cfg, r)

	today := time.Now().UTC().Format("2006-01-02")
	store.Mutate(func(list *task.List) {
		list.Tasks = append(list.Tasks,
			task.Task{ID: 1, Status: task.StatusDone, CompletedAt: today + "T01:00:00"},
			task.Task{ID: 2, Status: task.StatusPending, Prompt: "waiting"},
		)
	})

	if got := d.runOnce(context.Background()); got != outcomeCapReached {
		t.Fatalf("outcome = %v, want capReached", got)
	}
	if plans, execs := r.calls(); plans != 0 || execs != 0 {
		t.Errorf("runner invoked (%d plans, %d execs) despite the cap", plans, execs)
	}
	if got := findTask(t, store, 2).Status; got != task.StatusPending {
		t.Errorf("pending task disturbed: %q", got)
	}
}

func TestRunOnceIdle(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newTestDispatcher(t, cfg, &fakeRunner{})

	if got := d.runOnce(context.Background()); got != outcomeIdle {
		t.Fatalf("outcome = %v, want idle", got)
	}

	st := ReadStatus(StatusFile(cfg.TasksFile))
	if st.State != StateIdle {
		t.Errorf("status = %q, want idle", st.State)
	}
}

func TestRunOnceCancelledContextReleasesClaim(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRunner{planErr: context.Canceled}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("interrupted", task.PriorityMedium, nil)
	cancel()

	if got := d.runOnce(ctx); got != outcomeStopped {
		t.Fatalf("outcome = %v, want stopped", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusPending {
		t.Errorf("status = %q, want pending (claim released)", tk.Status)
	}
}

func TestRunOnceExecCancellationReleasesClaim(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRunner{
		planRes: &runner.Result{Output: "approved plan", Duration: time.Second},
		execErr: context.Canceled,
	}
	r.onExec = cancel

	d, store := newTestDispatcher(t, cfg, r)
	var committed bool
	d.commitFn = func(dir, message string) error {
		committed = true
		return nil
	}

	created, _ := store.Add("killed mid-run", task.PriorityMedium, nil)
	decideWhen(t, store, created.ID, task.StatusPlanReview, func(tk *task.Task) {
		tk.Status = task.StatusApproved
	})

	if got := d.runOnce(ctx); got != outcomeStopped {
		t.Fatalf("outcome = %v, want stopped", got)
	}

	tk := findTask(t, store, created.ID)
	if tk.Status != task.StatusPending {
		t.Errorf("status = %q, want pending (claim released)", tk.Status)
	}
	if tk.CompletedAt != "" {
		t.Error("interrupted run recorded a completion time")
	}
	if committed {
		t.Error("commit ran for an interrupted run")
	}
	if _, err := os.Stat(cfg.ProgressFile); !os.IsNotExist(err) {
		t.Error("progress log written for an interrupted run")
	}
}

func TestRunOnceUnclaimableTaskIdles(t *testing.T) {
	cfg := testConfig(t)
	r := &fakeRunner{
		planRes: &runner.Result{Output: "never used", Duration: time.Second},
	}
	d, store := newTestDispatcher(t, cfg, r)

	created, _ := store.Add("stuck behind a lock", task.PriorityMedium, nil)

	// A live process holds the mutation lock for the whole cycle.
	lockPath := cfg.TasksFile + ".lock"
	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatalf("failed to write lock file: %v", err)
	}
	defer os.Remove(lockPath)

	if got := d.runOnce(context.Background()); got != outcomeIdle {
		t.Fatalf("outcome = %v, want idle", got)
	}
	if plans, execs := r.calls(); plans != 0 || execs != 0 {
		t.Errorf("runner invoked (%d plans, %d execs) without a claim", plans, execs)
	}

	os.Remove(lockPath)
	if got := findTask(t, store, created.ID).Status; got != task.StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newTestDispatcher(t, cfg, &fakeRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
