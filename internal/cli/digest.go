package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/digest"
	"github.com/ralphloop/ralph/internal/task"
)

var digestDryRun bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send the daily summary email",
	Long:  "Builds today's report from the task queue and mails it via the configured SMTP account.",
	RunE:  runDigest,
}

func init() {
	digestCmd.Flags().BoolVar(&digestDryRun, "dry-run", false, "print the report instead of emailing it")
}

func runDigest(cmd *cobra.Command, args []string) error {
	if err := RequireInitialized(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	list, err := task.NewStore(cfg.TasksFile).Load()
	if err != nil {
		return err
	}

	today := time.Now().UTC().Format("2006-01-02")
	report := digest.Build(list.Tasks, today)

	if digestDryRun {
		fmt.Println(report.Subject())
		fmt.Println()
		fmt.Println(report.Body())
		return nil
	}

	sent, err := digest.Send(cfg.SMTP, report)
	if err != nil {
		return err
	}
	if !sent {
		fmt.Println("SMTP credentials not configured; printing the report instead.")
		fmt.Println()
		fmt.Println(report.Subject())
		fmt.Println()
		fmt.Println(report.Body())
		return nil
	}
	fmt.Printf("Digest sent to %s\n", cfg.SMTP.To)
	return nil
}
