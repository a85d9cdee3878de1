package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/ralphloop/ralph/internal/testutil"
)

func TestClaudeRunnerArgs(t *testing.T) {
	origCommand := CommandContext
	defer func() { CommandContext = origCommand }()

	var gotName string
	var gotArgs []string
	CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	}

	r := NewClaudeRunner(t.TempDir())

	t.Run("plan mode", func(t *testing.T) {
		if _, err := r.Run(context.Background(), "do the thing", ModePlan); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotName != "claude" {
			t.Errorf("command = %q, want claude", gotName)
		}
		joined := strings.Join(gotArgs, " ")
		for _, want := range []string{"-p do the thing", "--output-format stream-json", "--verbose", "--plan"} {
			if !strings.Contains(joined, want) {
				t.Errorf("args %q missing %q", joined, want)
			}
		}
		if strings.Contains(joined, "--dangerously-skip-permissions") {
			t.Error("plan mode must not skip permissions")
		}
	})

	t.Run("execute mode", func(t *testing.T) {
		if _, err := r.Run(context.Background(), "do the thing", ModeExecute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		joined := strings.Join(gotArgs, " ")
		if !strings.Contains(joined, "--dangerously-skip-permissions") {
			t.Errorf("args %q missing permission skip", joined)
		}
		if strings.Contains(joined, "--plan") {
			t.Error("execute mode must not pass --plan")
		}
	})
}

func TestClaudeRunnerResult(t *testing.T) {
	origCommand := CommandContext
	defer func() { CommandContext = origCommand }()

	r := NewClaudeRunner(t.TempDir())

	t.Run("captures output on success", func(t *testing.T) {
		CommandContext = testutil.MockCommandFunc("plan output here")

		res, err := r.Run(context.Background(), "prompt", ModePlan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExitCode != 0 {
			t.Errorf("exit code = %d, want 0", res.ExitCode)
		}
		if res.Output != "plan output here" {
			t.Errorf("output = %q", res.Output)
		}
	})

	t.Run("nonzero exit is a result, not an error", func(t *testing.T) {
		CommandContext = testutil.MockFailingCommandFunc("boom", 3)

		res, err := r.Run(context.Background(), "prompt", ModeExecute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("exit code = %d, want 3", res.ExitCode)
		}
		if !strings.Contains(res.Output, "boom") {
			t.Errorf("output = %q, want it to contain boom", res.Output)
		}
	})

	t.Run("timeout returns ErrRunTimeout", func(t *testing.T) {
		CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "sleep", "5")
		}
		r := &ClaudeRunner{Workspace: t.TempDir(), Timeout: 50 * time.Millisecond}

		_, err := r.Run(context.Background(), "prompt", ModeExecute)
		if !errors.Is(err, ErrRunTimeout) {
			t.Fatalf("got %v, want ErrRunTimeout", err)
		}
	})

	t.Run("cancellation is an error, not a result", func(t *testing.T) {
		CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "sleep", "5")
		}
		r := &ClaudeRunner{Workspace: t.TempDir(), Timeout: time.Minute}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		res, err := r.Run(ctx, "prompt", ModeExecute)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
		if res != nil {
			t.Errorf("killed subprocess yielded a result: %+v", res)
		}
	})

	t.Run("missing binary is an error", func(t *testing.T) {
		CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "/nonexistent/claude-binary")
		}

		_, err := r.Run(context.Background(), "prompt", ModePlan)
		if err == nil {
			t.Fatal("expected error for missing binary")
		}
		if errors.Is(err, ErrRunTimeout) {
			t.Error("start failure misreported as timeout")
		}
	})
}
