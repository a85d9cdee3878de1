package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/dispatch"
	"github.com/ralphloop/ralph/internal/logging"
	"github.com/ralphloop/ralph/internal/runner"
	"github.com/ralphloop/ralph/internal/task"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dispatch loop",
	Long:  "Runs the dispatcher until interrupted: picks pending tasks, plans, waits for approval, executes, commits.",
	RunE:  runDispatcher,
}

func runDispatcher(cmd *cobra.Command, args []string) error {
	if err := RequireInitialized(); err != nil {
		return err
	}
	if err := checkPrerequisites(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(config.DataDir, "dispatch")
	if err != nil {
		log = logging.Discard("dispatch")
	}
	defer log.Close()

	store := task.NewStore(cfg.TasksFile)
	r := runner.NewClaudeRunner(cfg.Workspace)
	r.Timeout = cfg.RunTimeout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = dispatch.New(cfg, store, r, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Printf("dispatch loop stopped")
		return nil
	}
	return err
}
