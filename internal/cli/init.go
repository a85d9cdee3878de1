package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Ralph in the current repository",
	Long:  "Creates a .ralph/ folder holding the task queue, config, and logs.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := checkPrerequisites(); err != nil {
		return err
	}

	if IsInitialized() {
		return fmt.Errorf("ralph is already initialized in this repository")
	}

	dirs := []string{
		config.DataDir,
		filepath.Join(config.DataDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	path, err := config.WriteDefault(".")
	if err != nil {
		return err
	}

	fmt.Println("Initialized Ralph in", config.DataDir)
	fmt.Println("Wrote default config to", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Queue a task:       ralph add \"<prompt>\"")
	fmt.Println("  2. Start the loop:     ralph run")
	fmt.Println("  3. Review plans:       ralph serve  (or just 'ralph' for the TUI)")
	return nil
}
