package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/dispatch"
	"github.com/ralphloop/ralph/internal/task"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dispatcher state and today's counts",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := RequireInitialized(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := dispatch.ReadStatus(dispatch.StatusFile(cfg.TasksFile))
	fmt.Printf("Dispatcher: %s (%s)\n", st.State, st.Label)

	list, err := task.NewStore(cfg.TasksFile).Load()
	if err != nil {
		return err
	}

	today := time.Now().UTC().Format("2006-01-02")
	done := task.CompletedToday(list.Tasks, today)
	failed := task.FailedToday(list.Tasks, today)
	pending := 0
	for _, t := range list.Tasks {
		if t.Status == task.StatusPending {
			pending++
		}
	}

	fmt.Printf("Today: %d done, %d failed (limit %d)\n", done, failed, cfg.DailyLimit)
	fmt.Printf("Pending: %d\n", pending)
	return nil
}
