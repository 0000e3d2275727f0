package core

import (
	"sort"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Rank returns a new slice ordering tasks for display: every incomplete task
// before every completed one, and within each group by priority, highest
// first. The sort is stable, so tasks that tie keep their input order.
// The input slice is not modified.
func Rank(tasks []models.Task) []models.Task {
	ranked := make([]models.Task, len(tasks))
	copy(ranked, tasks)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		return a.Priority > b.Priority
	})
	return ranked
}

// NeedsScheduling returns the ranked tasks that have no slot assigned.
func NeedsScheduling(tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range Rank(tasks) {
		if t.NeedsScheduling() {
			out = append(out, t)
		}
	}
	return out
}
