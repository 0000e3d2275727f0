package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

var addCmd = &cobra.Command{
	Use:   "add <capture...>",
	Short: "Capture a new task",
	Long: `Capture a new task from a single line of text.

Markers may appear anywhere in the line:
  !N         priority 0-9 (default 5)
  #tag       tag (lowercased)
  @today     target day (also @tomorrow or @YYYY-MM-DD)

Examples:
  pos add Draft press release !8 #work @today
  pos add "Call dentist #health @tomorrow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		res, err := TaskMgr.Capture(commandContext(cmd), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("adding task: %w", err)
		}

		task := res.Task
		fmt.Printf("Captured task #%d: %s\n", task.ID, task.Title)
		fmt.Printf("  Priority: %d (%s)\n", task.Priority, models.PriorityLabel(task.Priority))
		if len(task.Tags) > 0 {
			fmt.Printf("  Tags:     %s\n", strings.Join(task.Tags, ", "))
		}
		if task.TargetDay != "" {
			fmt.Printf("  Target:   %s\n", task.TargetDay)
		}
		if RemoteEnabled {
			fmt.Printf("  Sync:     %s\n", syncNote(res.Synced, res.SyncErr))
		}
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCompleted(cmd, args[0], true)
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <task-id>",
	Short: "Reopen a completed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCompleted(cmd, args[0], false)
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <task-id>",
	Aliases: []string{"delete"},
	Short:   "Remove a task",
	Long: `Remove a task from the local task list.

Removal is not sent to the remote task service, which has no delete
operation. Removing an unknown id is not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		if err := TaskMgr.Remove(commandContext(cmd), id); err != nil {
			return fmt.Errorf("removing task: %w", err)
		}
		fmt.Printf("Removed task #%d\n", id)
		return nil
	},
}

func setCompleted(cmd *cobra.Command, arg string, completed bool) error {
	if TaskMgr == nil {
		return fmt.Errorf("task manager not initialized")
	}
	id, err := parseTaskID(arg)
	if err != nil {
		return err
	}

	res, err := TaskMgr.SetCompleted(commandContext(cmd), id, completed)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	verb := "Completed"
	if !completed {
		verb = "Reopened"
	}
	fmt.Printf("%s task #%d: %s\n", verb, res.Task.ID, res.Task.Title)
	if RemoteEnabled {
		fmt.Printf("  Sync: %s\n", syncNote(res.Synced, res.SyncErr))
	}
	return nil
}

// parseTaskID parses a positional task id, accepting an optional leading '#'.
func parseTaskID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q: %w", arg, core.ErrNotFound)
	}
	return id, nil
}

func init() {
	doneCmd.ValidArgsFunction = completeTaskIDs(openTasks)
	undoCmd.ValidArgsFunction = completeTaskIDs(completedTasks)
	rmCmd.ValidArgsFunction = completeTaskIDs(allTasks)

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(rmCmd)
}
