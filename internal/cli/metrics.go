package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	posmcp "github.com/valter-silva-au/priority-os/internal/mcp"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display task and sync metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include capture, completion and removal counts, scheduled time,
captures per tag, and how often the remote was unavailable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}

		since := strings.TrimSpace(metricsSince)
		if since == "" {
			since = "7d"
		}
		sinceTime, err := posmcp.ParseSince(since, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		// Table format.
		fmt.Printf("Metrics (since %s)\n\n", formatSince(sinceTime))
		fmt.Printf("  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Printf("  %-24s %d\n", "Tasks captured:", metrics.TasksCaptured)
		fmt.Printf("  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
		fmt.Printf("  %-24s %d\n", "Tasks reopened:", metrics.TasksReopened)
		fmt.Printf("  %-24s %d\n", "Tasks removed:", metrics.TasksRemoved)
		fmt.Printf("  %-24s %d (%d min)\n", "Tasks scheduled:", metrics.TasksScheduled, metrics.ScheduledMinutes)
		fmt.Printf("  %-24s %d\n", "Remote unavailable:", metrics.RemoteUnavailable)
		fmt.Printf("  %-24s %d\n", "Changes replayed:", metrics.OpsReplayed)

		if len(metrics.CapturedByTag) > 0 {
			fmt.Println("\n  Captures by tag:")
			for _, tag := range sortedKeys(metrics.CapturedByTag) {
				fmt.Printf("    %-20s %d\n", "#"+tag+":", metrics.CapturedByTag[tag])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Printf("\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Printf("  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
