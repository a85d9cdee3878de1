// Package runner wraps the Claude Code CLI as a two-mode execution gateway.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Mode selects the flag set passed to Claude Code.
type Mode string

const (
	// ModePlan requests a non-mutating proposal.
	ModePlan Mode = "plan"
	// ModeExecute performs actual changes with unattended permissions.
	ModeExecute Mode = "execute"
)

// DefaultTimeout is the wall-clock ceiling for a single invocation.
const DefaultTimeout = time.Hour

// ErrRunTimeout is returned when an invocation exceeds its wall-clock budget.
// It is the only exceptional outcome; a non-zero exit code is a normal Result.
var ErrRunTimeout = errors.New("claude run timed out")

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// Result captures a finished invocation. Output holds stdout and stderr
// concatenated in capture order; nothing is streamed back early.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Runner is the gateway interface the dispatch loop depends on.
type Runner interface {
	Run(ctx context.Context, prompt string, mode Mode) (*Result, error)
}

// ClaudeRunner invokes the claude CLI inside a configured workspace.
type ClaudeRunner struct {
	Workspace string
	Timeout   time.Duration
}

// NewClaudeRunner creates a runner for the given workspace directory.
func NewClaudeRunner(workspace string) *ClaudeRunner {
	return &ClaudeRunner{Workspace: workspace, Timeout: DefaultTimeout}
}

// IsClaudeAvailable checks if the claude command exists in PATH.
func IsClaudeAvailable() bool {
	_, err := exec.LookPath("claude")
	return err == nil
}

// Run executes claude with the prompt and the mode-specific flags. The
// subprocess's own failure is a normal result: the exit code is reported, not
// wrapped in an error. Only a timeout (ErrRunTimeout), a cancelled context
// (the subprocess was killed, not finished), and failure to start the
// process at all are errors.
func (r *ClaudeRunner) Run(ctx context.Context, prompt string, mode Mode) (*Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-p", prompt, "--output-format", "stream-json", "--verbose"}
	if mode == ModePlan {
		args = append(args, "--plan")
	} else {
		args = append(args, "--dangerously-skip-permissions")
	}

	cmd := CommandContext(ctx, "claude", args...)
	cmd.Dir = r.Workspace

	// One buffer for both streams preserves capture order.
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ErrRunTimeout
		}
		// The subprocess was killed mid-flight; its exit status and
		// partial output describe an interruption, not an outcome.
		return nil, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				ExitCode: exitErr.ExitCode(),
				Output:   output.String(),
				Duration: elapsed,
			}, nil
		}
		return nil, fmt.Errorf("failed to execute claude: %w", err)
	}

	return &Result{
		ExitCode: 0,
		Output:   output.String(),
		Duration: elapsed,
	}, nil
}
