package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/task"
	"github.com/ralphloop/ralph/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web control surface",
	Long:  "Serves the task board where plans are approved, rejected, and tasks are managed.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := RequireInitialized(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := task.NewStore(cfg.TasksFile)
	fmt.Printf("Task board listening on %s\n", cfg.WebAddr)
	return web.NewServer(cfg, store).ListenAndServe()
}
