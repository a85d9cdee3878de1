package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/runner"
)

// PrerequisiteError represents a failed prerequisite check with helpful remediation info.
type PrerequisiteError struct {
	Check   string
	Message string
	Help    string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s: %s\n\n%s", e.Check, e.Message, e.Help)
}

// checkPrerequisites validates the environment before init and run commands.
func checkPrerequisites() error {
	if err := checkGitRepo(); err != nil {
		return err
	}
	if err := checkClaudeCode(); err != nil {
		return err
	}
	return nil
}

// checkGitRepo verifies we're in a git repository.
func checkGitRepo() error {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	if err := cmd.Run(); err != nil {
		return &PrerequisiteError{
			Check:   "Git repository",
			Message: "Not a git repository",
			Help:    "Ralph commits completed work to git. Run 'git init' first.",
		}
	}
	return nil
}

// checkClaudeCode verifies Claude Code CLI is installed.
func checkClaudeCode() error {
	if !runner.IsClaudeAvailable() {
		return &PrerequisiteError{
			Check:   "Claude Code CLI",
			Message: "Claude Code CLI not found",
			Help:    "Install Claude Code: https://claude.ai/code",
		}
	}
	return nil
}

// IsInitialized checks if ralph is initialized in the current directory.
func IsInitialized() bool {
	info, err := os.Stat(config.DataDir)
	return err == nil && info.IsDir()
}

// RequireInitialized returns an error if ralph is not initialized.
func RequireInitialized() error {
	if !IsInitialized() {
		return fmt.Errorf("ralph is not initialized. Run 'ralph init' first.")
	}
	return nil
}
