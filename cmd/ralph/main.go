package main

import (
	"fmt"
	"os"

	"github.com/ralphloop/ralph/internal/cli"
	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/task"
	"github.com/ralphloop/ralph/internal/tui"
)

func main() {
	// If no args, launch the TUI board; otherwise route to the CLI.
	if len(os.Args) == 1 {
		cfg, err := config.Load(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		store := task.NewStore(cfg.TasksFile)
		if err := tui.Run(cfg, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
	}
}
