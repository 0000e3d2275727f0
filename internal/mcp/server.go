// Package mcp provides an MCP (Model Context Protocol) server that exposes
// pos task operations as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/internal/observability"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Server wraps pos services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	taskMgr     core.TaskManager
	metricsCalc observability.MetricsCalculator
}

// NewServer creates a new MCP server backed by taskMgr. metricsCalc may be
// nil if the event log is unavailable.
func NewServer(taskMgr core.TaskManager, metricsCalc observability.MetricsCalculator, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		taskMgr:     taskMgr,
		metricsCalc: metricsCalc,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "pos", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskIDInput struct {
	TaskID int `json:"task_id" jsonschema:"the numeric task id"`
}

type slotOutput struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type taskOutput struct {
	ID            int         `json:"id"`
	Title         string      `json:"title"`
	Priority      int         `json:"priority"`
	PriorityLabel string      `json:"priority_label"`
	Tags          []string    `json:"tags,omitempty"`
	TargetDay     string      `json:"target_day,omitempty"`
	Completed     bool        `json:"completed"`
	ScheduledSlot *slotOutput `json:"scheduled_slot,omitempty"`
	CreatedAt     string      `json:"created_at"`
}

type mutationOutput struct {
	Task    taskOutput `json:"task"`
	Synced  bool       `json:"synced"`
	SyncErr string     `json:"sync_error,omitempty"`
}

type listTasksInput struct {
	Unscheduled bool `json:"unscheduled,omitempty" jsonschema:"only list tasks that have no scheduled slot"`
	Open        bool `json:"open,omitempty" jsonschema:"omit completed tasks"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type captureTaskInput struct {
	Text string `json:"text" jsonschema:"capture line, e.g. 'Call dentist !7 #health @tomorrow'"`
}

type completeTaskInput struct {
	TaskID    int   `json:"task_id" jsonschema:"the numeric task id"`
	Completed *bool `json:"completed,omitempty" jsonschema:"completion state to set; defaults to true"`
}

type deleteTaskOutput struct {
	Message string `json:"message"`
}

type scheduleTaskInput struct {
	TaskID  int  `json:"task_id" jsonschema:"the numeric task id"`
	Minutes *int `json:"minutes,omitempty" jsonschema:"slot length in minutes; defaults to 30"`
	Remote  bool `json:"remote,omitempty" jsonschema:"ask the remote service to pick the slot"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksCaptured     int            `json:"tasks_captured"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksRemoved      int            `json:"tasks_removed"`
	TasksScheduled    int            `json:"tasks_scheduled"`
	ScheduledMinutes  int            `json:"scheduled_minutes"`
	RemoteUnavailable int            `json:"remote_unavailable"`
	OpsReplayed       int            `json:"ops_replayed"`
	CapturedByTag     map[string]int `json:"captured_by_tag"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks in priority order: open tasks by priority, then completed ones.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by id, including its scheduled slot.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "capture_task",
		Description: "Create a task from a capture line. '!N' sets priority 0-9, '#tag' adds a tag, '@today' or '@tomorrow' sets the target day.",
	}, s.handleCaptureTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task completed, or reopen it with completed=false.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task from the local list.",
	}, s.handleDeleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "schedule_task",
		Description: "Give a task the earliest free slot in the scheduling horizon.",
	}, s.handleScheduleTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: captures, completions, scheduling and sync outages.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	var tasks []models.Task
	if input.Unscheduled {
		tasks = s.taskMgr.NeedsScheduling()
	} else {
		tasks = s.taskMgr.Ranked()
	}

	out := listTasksOutput{Tasks: make([]taskOutput, 0, len(tasks))}
	for _, t := range tasks {
		if input.Open && t.Completed {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID <= 0 {
		return errorResult("task_id must be a positive integer"), taskOutput{}, nil
	}

	task, err := s.taskMgr.Get(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %d: %s", input.TaskID, err)), taskOutput{}, nil
	}

	return nil, taskToOutput(task), nil
}

func (s *Server) handleCaptureTask(ctx context.Context, _ *gomcp.CallToolRequest, input captureTaskInput) (*gomcp.CallToolResult, mutationOutput, error) {
	res, err := s.taskMgr.Capture(ctx, input.Text)
	if err != nil {
		return errorResult(fmt.Sprintf("capturing task: %s", err)), mutationOutput{}, nil
	}
	return nil, resultToOutput(res), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, mutationOutput, error) {
	if input.TaskID <= 0 {
		return errorResult("task_id must be a positive integer"), mutationOutput{}, nil
	}

	completed := true
	if input.Completed != nil {
		completed = *input.Completed
	}

	res, err := s.taskMgr.SetCompleted(ctx, input.TaskID, completed)
	if err != nil {
		return errorResult(fmt.Sprintf("updating task %d: %s", input.TaskID, err)), mutationOutput{}, nil
	}
	return nil, resultToOutput(res), nil
}

func (s *Server) handleDeleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskIDInput) (*gomcp.CallToolResult, deleteTaskOutput, error) {
	if input.TaskID <= 0 {
		return errorResult("task_id must be a positive integer"), deleteTaskOutput{}, nil
	}
	if err := s.taskMgr.Remove(ctx, input.TaskID); err != nil {
		return errorResult(fmt.Sprintf("deleting task %d: %s", input.TaskID, err)), deleteTaskOutput{}, nil
	}
	return nil, deleteTaskOutput{Message: fmt.Sprintf("task %d deleted", input.TaskID)}, nil
}

func (s *Server) handleScheduleTask(ctx context.Context, _ *gomcp.CallToolRequest, input scheduleTaskInput) (*gomcp.CallToolResult, mutationOutput, error) {
	if input.TaskID <= 0 {
		return errorResult("task_id must be a positive integer"), mutationOutput{}, nil
	}

	schedule := s.taskMgr.AutoSchedule
	if input.Remote {
		schedule = s.taskMgr.AutoScheduleRemote
	}

	res, err := schedule(ctx, input.TaskID, input.Minutes)
	if err != nil {
		return errorResult(fmt.Sprintf("scheduling task %d: %s", input.TaskID, err)), mutationOutput{}, nil
	}
	return nil, resultToOutput(res), nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := ParseSince(sinceStr, time.Now().UTC())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		TasksCaptured:     metrics.TasksCaptured,
		TasksCompleted:    metrics.TasksCompleted,
		TasksRemoved:      metrics.TasksRemoved,
		TasksScheduled:    metrics.TasksScheduled,
		ScheduledMinutes:  metrics.ScheduledMinutes,
		RemoteUnavailable: metrics.RemoteUnavailable,
		OpsReplayed:       metrics.OpsReplayed,
		CapturedByTag:     metrics.CapturedByTag,
		EventCount:        metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:            t.ID,
		Title:         t.Title,
		Priority:      t.Priority,
		PriorityLabel: models.PriorityLabel(t.Priority),
		Tags:          t.Tags,
		TargetDay:     t.TargetDay,
		Completed:     t.Completed,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
	if t.ScheduledSlot != nil {
		out.ScheduledSlot = &slotOutput{
			Start:           t.ScheduledSlot.Start.Format(time.RFC3339),
			End:             t.ScheduledSlot.End().Format(time.RFC3339),
			DurationMinutes: t.ScheduledSlot.DurationMinutes,
		}
	}
	return out
}

func resultToOutput(res core.Result) mutationOutput {
	out := mutationOutput{
		Task:   taskToOutput(res.Task),
		Synced: res.Synced,
	}
	if res.SyncErr != nil {
		out.SyncErr = res.SyncErr.Error()
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{CapturedByTag: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ParseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time before now.
func ParseSince(s string, now time.Time) (time.Time, error) {
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
