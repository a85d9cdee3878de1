// Package git shells out to the git CLI for the dispatcher's side effects.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// CommitAll stages everything in dir and commits with the given message.
// Callers treat failures as best-effort; an error here never fails a task.
func CommitAll(dir, message string) error {
	add := exec.Command("git", "add", "-A")
	add.Dir = dir
	if out, err := add.CombinedOutput(); err != nil {
		return fmt.Errorf("git add failed: %s: %w", strings.TrimSpace(string(out)), err)
	}

	commit := exec.Command("git", "commit", "-m", message)
	commit.Dir = dir
	if out, err := commit.CombinedOutput(); err != nil {
		return fmt.Errorf("git commit failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Push pushes the current branch. Best-effort, same contract as CommitAll.
func Push(dir string) error {
	push := exec.Command("git", "push")
	push.Dir = dir
	if out, err := push.CombinedOutput(); err != nil {
		return fmt.Errorf("git push failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Log returns the last n commits as a decorated one-line graph. An empty
// string is returned when dir is not a repository or has no commits yet.
func Log(dir string, n int) string {
	cmd := exec.Command("git", "log", "--oneline", "--graph", "--decorate", fmt.Sprintf("-%d", n))
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// IsClean reports whether the workspace has no uncommitted changes,
// including staged and untracked files.
func IsClean(dir string) (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(output)) == "", nil
}
