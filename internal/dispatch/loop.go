// Package dispatch drives tasks through the plan / approve / execute
// lifecycle, one task at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/git"
	"github.com/ralphloop/ralph/internal/logging"
	"github.com/ralphloop/ralph/internal/progress"
	"github.com/ralphloop/ralph/internal/runner"
	"github.com/ralphloop/ralph/internal/task"
)

// summaryTail bounds the stored result summary to the most recent portion of
// the output.
const summaryTail = 2000

// outcome describes how a single scheduling cycle ended and therefore how
// long the loop sleeps before the next one.
type outcome int

const (
	outcomeDispatched outcome = iota
	outcomeIdle
	outcomeCapReached
	outcomeStopped
)

// Dispatcher is the single scheduling thread of control. It owns the forward
// state transitions; the control surface mutates the same store sideways from
// other processes.
type Dispatcher struct {
	cfg      config.Config
	store    *task.Store
	runner   runner.Runner
	progress *progress.Logger
	log      *logging.Logger

	// commitFn is swapped in tests. Defaults to git.CommitAll.
	commitFn func(dir, message string) error
	now      func() time.Time
}

// New wires a dispatcher from configuration.
func New(cfg config.Config, store *task.Store, r runner.Runner, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		runner:   r,
		progress: progress.NewLogger(cfg.ProgressFile),
		log:      log,
		commitFn: git.CommitAll,
		now:      time.Now,
	}
}

// Run loops until the context is cancelled. No single task's failure ever
// stops the loop; only process-level problems (an unwritable store) surface
// as errors.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Printf("dispatch loop starting (daily limit %d)", d.cfg.DailyLimit)

	for {
		if ctx.Err() != nil {
			d.writeStatus(StateIdle, "Stopped")
			return ctx.Err()
		}

		switch d.runOnce(ctx) {
		case outcomeCapReached:
			d.log.Printf("daily limit of %d tasks reached, backing off %s", d.cfg.DailyLimit, d.cfg.CapBackoff)
			if !sleepCtx(ctx, d.cfg.CapBackoff) {
				d.writeStatus(StateIdle, "Stopped")
				return ctx.Err()
			}
		case outcomeIdle:
			if !sleepCtx(ctx, d.cfg.IdleSleep) {
				d.writeStatus(StateIdle, "Stopped")
				return ctx.Err()
			}
		case outcomeStopped:
			d.writeStatus(StateIdle, "Stopped")
			return ctx.Err()
		case outcomeDispatched:
			// Pick up the next task immediately.
		}
	}
}

// runOnce performs one scheduling cycle: claim the next task and drive it as
// far as it will go.
func (d *Dispatcher) runOnce(ctx context.Context) outcome {
	list, err := d.store.Load()
	if err != nil {
		d.log.Printf("failed to load tasks: %v", err)
		return outcomeIdle
	}

	today := d.now().UTC().Format("2006-01-02")
	if task.DailyCapReached(list.Tasks, today, d.cfg.DailyLimit) {
		d.writeStatus(StateSleeping, "Daily limit reached")
		return outcomeCapReached
	}

	next := task.PickNext(list.Tasks)
	if next == nil {
		d.writeStatus(StateIdle, "Idle")
		return outcomeIdle
	}

	id := next.ID
	prompt := next.Prompt
	d.log.Printf("starting task #%d: %s", id, excerpt(prompt, 80))
	d.writeStatus(StateRunning, fmt.Sprintf("Task #%d", id))

	// Phase A: plan. An unclaimable task must not be dispatched; another
	// cycle will retry once the store is writable again.
	if err := d.store.Update(id, func(t *task.Task) { t.Status = task.StatusInProgress }); err != nil {
		d.log.Printf("task #%d: claim failed: %v", id, err)
		return outcomeIdle
	}

	planRes, err := d.runner.Run(ctx, prompt, runner.ModePlan)
	if err != nil {
		return d.failPhase(ctx, id, err, "Plan step timed out", "Plan step failed")
	}

	if err := d.store.Update(id, func(t *task.Task) {
		t.Status = task.StatusPlanReview
		t.Plan = planRes.Output
		t.Sessions = append(t.Sessions, sessionRecord(planRes, runner.ModePlan, d.now()))
	}); err != nil {
		d.log.Printf("task #%d: failed to record plan: %v", id, err)
	}

	if !d.awaitApproval(ctx, id) {
		if ctx.Err() != nil {
			return outcomeStopped
		}
		// The gate or the control surface already recorded the outcome.
		return outcomeDispatched
	}

	// Phase B: execute.
	if err := d.store.Update(id, func(t *task.Task) { t.Status = task.StatusInProgress }); err != nil {
		d.log.Printf("task #%d: reclaim failed: %v", id, err)
	}

	execRes, err := d.runner.Run(ctx, prompt, runner.ModeExecute)
	if err != nil {
		return d.failPhase(ctx, id, err, "Execution timed out", "Execution failed")
	}

	return d.finalize(id, prompt, execRes)
}

// failPhase converts a gateway error into the task's terminal state. A
// cancelled context instead releases the claim so a restarted process can
// pick the task up again.
func (d *Dispatcher) failPhase(ctx context.Context, id int, err error, timeoutSummary, failPrefix string) outcome {
	if errors.Is(err, runner.ErrRunTimeout) {
		d.log.Printf("task #%d: %s", id, timeoutSummary)
		d.store.Update(id, func(t *task.Task) {
			t.Status = task.StatusFailed
			t.Summary = timeoutSummary
		})
		return outcomeDispatched
	}
	if ctx.Err() != nil {
		d.store.Update(id, func(t *task.Task) {
			if t.Status == task.StatusInProgress {
				t.Status = task.StatusPending
			}
		})
		return outcomeStopped
	}
	d.log.Printf("task #%d: %s: %v", id, failPrefix, err)
	d.store.Update(id, func(t *task.Task) {
		t.Status = task.StatusFailed
		t.Summary = fmt.Sprintf("%s: %v", failPrefix, err)
	})
	return outcomeDispatched
}

// finalize settles an executed task as decomposed or done, with the commit
// and progress-log side effects on the done path only.
func (d *Dispatcher) finalize(id int, prompt string, res *runner.Result) outcome {
	list, err := d.store.Load()
	if err != nil {
		d.log.Printf("failed to reload tasks: %v", err)
		list = &task.List{}
	}

	session := sessionRecord(res, runner.ModeExecute, d.now())

	if task.HasPendingChildren(list.Tasks, id) {
		d.store.Update(id, func(t *task.Task) {
			t.Status = task.StatusDecomposed
			t.Sessions = append(t.Sessions, session)
		})
		d.log.Printf("task #%d decomposed into subtasks", id)
		return outcomeDispatched
	}

	summary := tail(res.Output, summaryTail)
	completed := d.now().UTC().Format(task.TimeLayout)
	d.store.Update(id, func(t *task.Task) {
		t.Status = task.StatusDone
		t.CompletedAt = completed
		t.Summary = summary
		t.Sessions = append(t.Sessions, session)
	})

	message := fmt.Sprintf("agent: complete task #%d — %s", id, excerpt(prompt, 60))
	if err := d.commitFn(d.cfg.Workspace, message); err != nil {
		d.log.Printf("task #%d: commit skipped: %v", id, err)
	}
	if err := d.progress.Append(id, summary); err != nil {
		d.log.Printf("task #%d: progress log append failed: %v", id, err)
	}

	if d.cfg.PushReview {
		d.store.Update(id, func(t *task.Task) {
			if t.Status == task.StatusDone {
				t.Status = task.StatusPushReview
			}
		})
		d.log.Printf("task #%d awaiting push review", id)
		return outcomeDispatched
	}

	d.log.Printf("task #%d done", id)
	return outcomeDispatched
}

// sessionRecord captures one gateway invocation for the task's history.
func sessionRecord(res *runner.Result, mode runner.Mode, end time.Time) task.Session {
	return task.Session{
		StartedAt: end.Add(-res.Duration).UTC().Format(task.TimeLayout),
		DurationS: int(res.Duration.Seconds()),
		ExitCode:  res.ExitCode,
		Mode:      string(mode),
	}
}

// sleepCtx sleeps for dur unless the context ends first. Reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
