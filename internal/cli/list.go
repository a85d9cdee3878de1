package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ralphloop/ralph/internal/task"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "only show tasks with this status")
}

func runList(cmd *cobra.Command, args []string) error {
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

	if len(list.Tasks) == 0 {
		fmt.Println("No tasks. Queue one with 'ralph add'.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tPROMPT")
	for _, t := range list.Tasks {
		if listStatus != "" && t.Status != listStatus {
			continue
		}
		priority := t.Priority
		if priority == "" {
			priority = task.PriorityMedium
		}
		prompt := strings.ReplaceAll(t.Prompt, "\n", " ")
		if len(prompt) > 70 {
			prompt = prompt[:70] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Status, priority, prompt)
	}
	return w.Flush()
}
