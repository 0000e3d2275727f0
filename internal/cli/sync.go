package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/priority-os/internal/core"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued changes to the remote and refresh the local list",
	Long: `Replay every change that could not reach the remote task service,
once each and in the order they were made, then refresh the local task list
from the remote.

Changes that fail again stay queued for the next sync. The local list is
only replaced when nothing is left in the queue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		if !RemoteEnabled {
			return fmt.Errorf("no remote configured: set remote.url in %s", core.ConfigFileName)
		}

		report, err := TaskMgr.Sync(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("syncing: %w", err)
		}

		fmt.Printf("Replayed: %d\n", report.Replayed)
		if report.Failed > 0 {
			fmt.Printf("Failed:   %d (kept for the next sync)\n", report.Failed)
			for _, e := range report.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}

		switch {
		case !report.Pulled:
			fmt.Println("Remote unavailable, local tasks unchanged.")
		case report.Pending > 0:
			fmt.Printf("%d change(s) still queued, local tasks kept.\n", report.Pending)
		default:
			fmt.Printf("Refreshed %d task(s) from the remote.\n", report.Tasks)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
