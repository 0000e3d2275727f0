package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Style definitions shared by the list output and the dashboard.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	priorityUrgent = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	priorityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	priorityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	priorityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	tagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	slotStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func styleForPriority(label string) lipgloss.Style {
	switch label {
	case "Urgent":
		return priorityUrgent
	case "High":
		return priorityHigh
	case "Medium":
		return priorityMedium
	case "Low":
		return priorityLow
	default:
		return lipgloss.NewStyle()
	}
}

// formatTaskLine renders one task as a single list line.
func formatTaskLine(t models.Task) string {
	var b strings.Builder

	label := models.PriorityLabel(t.Priority)
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	fmt.Fprintf(&b, "%s #%-3d %s ", check, t.ID, styleForPriority(label).Render(fmt.Sprintf("%d %-6s", t.Priority, label)))

	if t.Completed {
		b.WriteString(completedStyle.Render(t.Title))
	} else {
		b.WriteString(t.Title)
	}

	for _, tag := range t.Tags {
		b.WriteString(" ")
		b.WriteString(tagStyle.Render("#" + tag))
	}
	if t.TargetDay != "" {
		b.WriteString(" @" + t.TargetDay)
	}
	if t.ScheduledSlot != nil {
		b.WriteString("  ")
		b.WriteString(slotStyle.Render(formatSlot(*t.ScheduledSlot)))
	}
	return b.String()
}

// formatSlot renders a slot in local time, e.g. "Mon 09:00-09:45".
func formatSlot(s models.Slot) string {
	start := s.Start.Local()
	end := s.End().Local()
	return fmt.Sprintf("%s %s-%s", start.Format("Mon"), start.Format("15:04"), end.Format("15:04"))
}

// syncNote describes what happened to a change on the remote.
func syncNote(synced bool, syncErr error) string {
	switch {
	case synced:
		return "synced"
	case syncErr != nil:
		return fmt.Sprintf("saved locally, will sync later (%s)", syncErr)
	default:
		return "saved locally"
	}
}

func formatSince(t time.Time) string {
	return t.Format("2006-01-02")
}
