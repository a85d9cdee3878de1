package cli

import (
	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "ralph",
	Short:   "Autonomous task dispatcher for AI coding agents",
	Long:    `Ralph drives a queue of coding tasks through plan, human approval, and execution, one task at a time.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(digestCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration relative to the current directory.
func loadConfig() (config.Config, error) {
	return config.Load(".")
}
