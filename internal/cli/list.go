package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

var (
	listAll     bool
	listOffline bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks in priority order",
	Long: `List tasks in priority order: open tasks by descending priority, then
completed tasks. Ties keep their insertion order.

When a remote is configured the list is refreshed from it first, unless
local changes are still waiting to sync. Use --offline to skip the refresh.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		if RemoteEnabled && !listOffline {
			res, err := TaskMgr.Refresh(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("refreshing tasks: %w", err)
			}
			switch {
			case !res.Pulled:
				fmt.Println("Remote unavailable, showing local tasks.")
			case res.Pending > 0:
				fmt.Printf("%d change(s) waiting to sync, showing local tasks. Run 'pos sync'.\n", res.Pending)
			}
		}

		var tasks []models.Task
		for _, t := range TaskMgr.Ranked() {
			if t.Completed && !listAll {
				continue
			}
			tasks = append(tasks, t)
		}

		printTasks(tasks, "No tasks. Capture one with: pos add <text>")
		return nil
	},
}

var unscheduledCmd = &cobra.Command{
	Use:   "unscheduled",
	Short: "List tasks without a scheduled slot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		printTasks(TaskMgr.NeedsScheduling(), "Every task has a slot.")
		return nil
	},
}

func printTasks(tasks []models.Task, empty string) {
	if len(tasks) == 0 {
		fmt.Println(empty)
		return
	}
	for _, t := range tasks {
		fmt.Println(formatTaskLine(t))
	}
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include completed tasks")
	listCmd.Flags().BoolVar(&listOffline, "offline", false, "Do not refresh from the remote")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(unscheduledCmd)
}
