package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelAgenda
	panelMetrics
	panelCount
)

// maxAgendaItems caps the number of slots shown in the agenda panel.
const maxAgendaItems = 10

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	priorityCounts map[string]int
	completed      int
	unscheduled    int
	agenda         []agendaItem
	metricsData    *metricsSnapshot

	// State.
	loading bool
	err     error
}

type agendaItem struct {
	id    int
	title string
	slot  models.Slot
}

type metricsSnapshot struct {
	tasksCaptured     int
	tasksCompleted    int
	tasksScheduled    int
	remoteUnavailable int
	eventCount        int
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	priorityCounts map[string]int
	completed      int
	unscheduled    int
	agenda         []agendaItem
	metrics        *metricsSnapshot
	err            error
}

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel:    panelTasks,
		loading:        true,
		priorityCounts: make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.priorityCounts = msg.priorityCounts
		m.completed = msg.completed
		m.unscheduled = msg.unscheduled
		m.agenda = msg.agenda
		m.metricsData = msg.metrics
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" PriorityOS ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	agendaPanel := m.renderAgendaPanel()
	metricsPanel := m.renderMetricsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		agendaPanel = m.applyPanelStyle(panelAgenda, agendaPanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, agendaPanel, metricsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		agendaPanel = m.applyPanelStyle(panelAgenda, agendaPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, agendaPanel, metricsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Open tasks"))
	b.WriteString("\n")

	open := 0
	for _, c := range m.priorityCounts {
		open += c
	}
	if open == 0 && m.completed == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	for _, label := range []string{"Urgent", "High", "Medium", "Low"} {
		count := m.priorityCounts[label]
		if count == 0 {
			continue
		}
		b.WriteString(styleForPriority(label).Render(fmt.Sprintf("  %-14s %d", label, count)))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n  Open:        %d", open)
	fmt.Fprintf(&b, "\n  Unscheduled: %d", m.unscheduled)
	fmt.Fprintf(&b, "\n  Completed:   %d", m.completed)

	return b.String()
}

func (m dashboardModel) renderAgendaPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Agenda"))
	b.WriteString("\n")

	if len(m.agenda) == 0 {
		b.WriteString("  Nothing scheduled.")
		return b.String()
	}

	for _, item := range m.agenda {
		fmt.Fprintf(&b, "  %s #%d %s\n", slotStyle.Render(formatSlot(item.slot)), item.id, item.title)
	}

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Captured", md.tasksCaptured},
		{"Completed", md.tasksCompleted},
		{"Scheduled", md.tasksScheduled},
		{"Offline", md.remoteUnavailable},
	}

	for _, l := range lines {
		fmt.Fprintf(&b, "  %-14s %d\n", l.label, l.value)
	}

	return b.String()
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		priorityCounts: make(map[string]int),
	}

	if TaskMgr != nil {
		for _, t := range TaskMgr.Ranked() {
			if t.Completed {
				result.completed++
				continue
			}
			result.priorityCounts[models.PriorityLabel(t.Priority)]++
			if t.ScheduledSlot == nil {
				result.unscheduled++
				continue
			}
			result.agenda = append(result.agenda, agendaItem{id: t.ID, title: t.Title, slot: *t.ScheduledSlot})
		}
		sort.SliceStable(result.agenda, func(i, j int) bool {
			return result.agenda[i].slot.Start.Before(result.agenda[j].slot.Start)
		})
		if len(result.agenda) > maxAgendaItems {
			result.agenda = result.agenda[:maxAgendaItems]
		}
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			tasksCaptured:     metrics.TasksCaptured,
			tasksCompleted:    metrics.TasksCompleted,
			tasksScheduled:    metrics.TasksScheduled,
			remoteUnavailable: metrics.RemoteUnavailable,
			eventCount:        metrics.EventCount,
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for tasks, agenda and metrics",
	Long: `Launch an interactive terminal dashboard showing open tasks by
priority, the upcoming scheduled slots, and recent metrics.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
