package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/task"
)

var (
	addPriority string
	addParent   int
)

var addCmd = &cobra.Command{
	Use:   "add <prompt>",
	Short: "Queue a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", task.PriorityMedium, "task priority (high, medium, low)")
	addCmd.Flags().IntVar(&addParent, "parent", 0, "parent task id for a subtask")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if err := RequireInitialized(); err != nil {
		return err
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return fmt.Errorf("task prompt must not be empty")
	}
	switch addPriority {
	case task.PriorityHigh, task.PriorityMedium, task.PriorityLow:
	default:
		return fmt.Errorf("invalid priority %q (want high, medium, or low)", addPriority)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := task.NewStore(cfg.TasksFile)
	var parent *int
	if addParent > 0 {
		parent = &addParent
	}
	t, err := store.Add(prompt, addPriority, parent)
	if err != nil {
		return err
	}

	fmt.Printf("Queued task #%d (%s)\n", t.ID, addPriority)
	return nil
}
