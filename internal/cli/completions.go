package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Task filters used by id completion.
var (
	allTasks       = func(models.Task) bool { return true }
	openTasks      = func(t models.Task) bool { return !t.Completed }
	completedTasks = func(t models.Task) bool { return t.Completed }
	scheduledTasks = func(t models.Task) bool { return t.ScheduledSlot != nil }
	schedulable    = func(t models.Task) bool { return t.ScheduledSlot == nil && !t.Completed }
)

// completeTaskIDs returns a completion function that lists the ids of tasks
// accepted by keep, in ranked order.
func completeTaskIDs(keep func(models.Task) bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if TaskMgr == nil || len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var ids []string
		for _, task := range TaskMgr.Ranked() {
			if !keep(task) {
				continue
			}
			id := strconv.Itoa(task.ID)
			if toComplete == "" || strings.HasPrefix(id, toComplete) {
				// Include the title as description for better UX.
				ids = append(ids, id+"\t"+task.Title)
			}
		}

		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}
