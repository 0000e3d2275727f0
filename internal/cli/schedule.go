package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	scheduleMinutes int
	scheduleRemote  bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <task-id>",
	Short: "Auto-schedule a task into the earliest free slot",
	Long: `Give a task the earliest free slot between now and the end of the
scheduling day (schedule.day_end, default midnight). A task with a later
target day (@tomorrow or @YYYY-MM-DD) is placed on that day instead.

The slot length defaults to 60 - 5*priority minutes (at least 15); use
--minutes to override it. With --remote the remote task service picks the
slot instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		var hint *int
		if cmd.Flags().Changed("minutes") {
			minutes := scheduleMinutes
			hint = &minutes
		}

		ctx := commandContext(cmd)
		schedule := TaskMgr.AutoSchedule
		if scheduleRemote {
			schedule = TaskMgr.AutoScheduleRemote
		}

		res, err := schedule(ctx, id, hint)
		if err != nil {
			return fmt.Errorf("scheduling task: %w", err)
		}

		slot := res.Task.ScheduledSlot
		if slot == nil {
			return fmt.Errorf("scheduling task #%d: no slot assigned", id)
		}
		fmt.Printf("Scheduled task #%d: %s\n", res.Task.ID, res.Task.Title)
		fmt.Printf("  Slot: %s (%d min)\n", formatSlot(*slot), slot.DurationMinutes)
		if RemoteEnabled && !scheduleRemote {
			fmt.Printf("  Sync: %s\n", syncNote(res.Synced, res.SyncErr))
		}
		return nil
	},
}

var unscheduleCmd = &cobra.Command{
	Use:   "unschedule <task-id>",
	Short: "Clear a task's scheduled slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}

		res, err := TaskMgr.ClearSchedule(commandContext(cmd), id)
		if err != nil {
			return fmt.Errorf("clearing schedule: %w", err)
		}
		fmt.Printf("Cleared slot for task #%d: %s\n", res.Task.ID, res.Task.Title)
		if RemoteEnabled {
			fmt.Printf("  Sync: %s\n", syncNote(res.Synced, res.SyncErr))
		}
		return nil
	},
}

func init() {
	scheduleCmd.Flags().IntVarP(&scheduleMinutes, "minutes", "m", 0, "Slot length in minutes")
	scheduleCmd.Flags().BoolVar(&scheduleRemote, "remote", false, "Let the remote task service pick the slot")
	scheduleCmd.ValidArgsFunction = completeTaskIDs(schedulable)
	unscheduleCmd.ValidArgsFunction = completeTaskIDs(scheduledTasks)

	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(unscheduleCmd)
}
