package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "pos",
	Short: "PriorityOS - capture, rank and auto-schedule tasks",
	Long: `PriorityOS (pos) turns one-line captures into prioritized tasks and
slots them into the earliest free time of your day.

Capture syntax: "Call dentist !7 #health @tomorrow"
  !N         priority 0-9 (default 5, out-of-range values are clamped)
  #tag       tag, lowercased; repeat for more tags
  @today     target day (also @tomorrow or @YYYY-MM-DD)

Tasks are kept in a local snapshot and synced with a remote task service
when remote.url is configured in .posconfig.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pos %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// commandContext returns the command's context, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil {
		if ctx := cmd.Context(); ctx != nil {
			return ctx
		}
	}
	return context.Background()
}
