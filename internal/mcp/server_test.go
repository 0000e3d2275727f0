package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/internal/observability"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// --- Fake implementations ---

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
	since   time.Time
}

func (f *fakeMetricsCalculator) Calculate(since time.Time) (*observability.Metrics, error) {
	f.since = since
	return f.metrics, nil
}

// --- Test helpers ---

// newTestManager returns a local-only task manager seeded with tasks.
func newTestManager(t *testing.T, tasks ...models.Task) core.TaskManager {
	t.Helper()
	scheduler, err := core.NewScheduler(models.ScheduleConfig{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	clock := func() time.Time { return testNow }
	return core.NewTaskManager(core.NewTaskStore(tasks, clock), scheduler, nil, nil, nil, nil, clock)
}

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: 1, Title: "Write report", Priority: 3, Tags: []string{"work"}, CreatedAt: testNow},
		{ID: 2, Title: "Call dentist", Priority: 8, Tags: []string{"health"}, TargetDay: models.DayTomorrow, CreatedAt: testNow},
		{ID: 3, Title: "File taxes", Priority: 9, Completed: true, CreatedAt: testNow},
	}
}

// callTool connects a client to the server and calls a tool. It returns nil
// when the call fails at the protocol level (e.g. schema validation).
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return nil
	}
	return result
}

// decodeOutput reads the tool's structured output, falling back to the text
// content.
func decodeOutput(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result == nil {
		t.Fatal("tool call failed at the protocol level")
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			t.Fatalf("marshalling structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	text := extractText(result)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("unmarshalling output: %v (text was: %s)", err, text)
	}
}

// --- Tests ---

func TestListTasks_Ranked(t *testing.T) {
	srv := NewServer(newTestManager(t, sampleTasks()...), nil, "test")

	var out listTasksOutput
	decodeOutput(t, callTool(t, srv, "list_tasks", map[string]any{}), &out)

	if out.Count != 3 {
		t.Fatalf("expected 3 tasks, got %d", out.Count)
	}
	wantIDs := []int{2, 1, 3}
	for i, want := range wantIDs {
		if out.Tasks[i].ID != want {
			t.Errorf("position %d: expected task %d, got %d", i, want, out.Tasks[i].ID)
		}
	}
	if out.Tasks[0].PriorityLabel != "Urgent" {
		t.Errorf("expected Urgent label, got %s", out.Tasks[0].PriorityLabel)
	}
}

func TestListTasks_OpenOnly(t *testing.T) {
	srv := NewServer(newTestManager(t, sampleTasks()...), nil, "test")

	var out listTasksOutput
	decodeOutput(t, callTool(t, srv, "list_tasks", map[string]any{"open": true}), &out)

	if out.Count != 2 {
		t.Fatalf("expected 2 open tasks, got %d", out.Count)
	}
	for _, task := range out.Tasks {
		if task.Completed {
			t.Errorf("task %d is completed", task.ID)
		}
	}
}

func TestListTasks_Unscheduled(t *testing.T) {
	tasks := sampleTasks()
	tasks[0].ScheduledSlot = &models.Slot{Start: testNow, DurationMinutes: 30}
	srv := NewServer(newTestManager(t, tasks...), nil, "test")

	var out listTasksOutput
	decodeOutput(t, callTool(t, srv, "list_tasks", map[string]any{"unscheduled": true}), &out)

	for _, task := range out.Tasks {
		if task.ID == 1 {
			t.Fatal("scheduled task 1 listed as unscheduled")
		}
	}
	if out.Count != 2 {
		t.Errorf("expected 2 unscheduled tasks, got %d", out.Count)
	}
}

func TestGetTask(t *testing.T) {
	srv := NewServer(newTestManager(t, sampleTasks()...), nil, "test")

	var out taskOutput
	decodeOutput(t, callTool(t, srv, "get_task", map[string]any{"task_id": 2}), &out)

	if out.Title != "Call dentist" {
		t.Errorf("expected title 'Call dentist', got %s", out.Title)
	}
	if out.TargetDay != models.DayTomorrow {
		t.Errorf("expected target day tomorrow, got %s", out.TargetDay)
	}
	if out.CreatedAt != testNow.Format(time.RFC3339) {
		t.Errorf("expected created_at %s, got %s", testNow.Format(time.RFC3339), out.CreatedAt)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv := NewServer(newTestManager(t), nil, "test")

	result := callTool(t, srv, "get_task", map[string]any{"task_id": 99})
	if result == nil || !result.IsError {
		t.Fatal("expected error result for non-existent task")
	}
	if extractText(result) == "" {
		t.Fatal("expected error message in result content")
	}
}

func TestGetTaskMissingID(t *testing.T) {
	srv := NewServer(newTestManager(t), nil, "test")

	result := callTool(t, srv, "get_task", map[string]any{})
	if result == nil {
		// The SDK rejected the call before it reached the handler.
		return
	}
	if !result.IsError {
		t.Fatal("expected error result for missing task_id")
	}
}

func TestCaptureTask(t *testing.T) {
	mgr := newTestManager(t)
	srv := NewServer(mgr, nil, "test")

	var out mutationOutput
	decodeOutput(t, callTool(t, srv, "capture_task", map[string]any{"text": "Draft press release !8 #work @today"}), &out)

	if out.Task.ID != 1 || out.Task.Title != "Draft press release" {
		t.Fatalf("unexpected task: %+v", out.Task)
	}
	if out.Task.Priority != 8 || out.Task.TargetDay != models.DayToday {
		t.Errorf("unexpected markers: %+v", out.Task)
	}
	if out.Synced {
		t.Error("local-only manager should not report synced")
	}

	if _, err := mgr.Get(1); err != nil {
		t.Fatalf("captured task not stored: %v", err)
	}
}

func TestCaptureTaskEmptyTitle(t *testing.T) {
	srv := NewServer(newTestManager(t), nil, "test")

	result := callTool(t, srv, "capture_task", map[string]any{"text": "!3 #x"})
	if result == nil || !result.IsError {
		t.Fatal("expected error result for a capture with no title words")
	}
}

func TestCompleteTask(t *testing.T) {
	mgr := newTestManager(t, sampleTasks()...)
	srv := NewServer(mgr, nil, "test")

	var out mutationOutput
	decodeOutput(t, callTool(t, srv, "complete_task", map[string]any{"task_id": 1}), &out)
	if !out.Task.Completed {
		t.Fatal("expected task 1 to be completed")
	}

	decodeOutput(t, callTool(t, srv, "complete_task", map[string]any{"task_id": 3, "completed": false}), &out)
	if out.Task.Completed {
		t.Fatal("expected task 3 to be reopened")
	}

	task, err := mgr.Get(3)
	if err != nil || task.Completed {
		t.Fatalf("task 3 = %+v, %v; want reopened", task, err)
	}
}

func TestDeleteTask(t *testing.T) {
	mgr := newTestManager(t, sampleTasks()...)
	srv := NewServer(mgr, nil, "test")

	var out deleteTaskOutput
	decodeOutput(t, callTool(t, srv, "delete_task", map[string]any{"task_id": 1}), &out)
	if out.Message == "" {
		t.Error("expected a confirmation message")
	}
	if _, err := mgr.Get(1); err == nil {
		t.Fatal("task 1 still present after delete")
	}

	// Deleting again is a no-op.
	decodeOutput(t, callTool(t, srv, "delete_task", map[string]any{"task_id": 1}), &out)
}

func TestScheduleTask(t *testing.T) {
	srv := NewServer(newTestManager(t, sampleTasks()...), nil, "test")

	var out mutationOutput
	decodeOutput(t, callTool(t, srv, "schedule_task", map[string]any{"task_id": 1, "minutes": 45}), &out)

	slot := out.Task.ScheduledSlot
	if slot == nil {
		t.Fatal("expected a scheduled slot")
	}
	if slot.Start != testNow.Format(time.RFC3339) {
		t.Errorf("expected slot at %s, got %s", testNow.Format(time.RFC3339), slot.Start)
	}
	if slot.DurationMinutes != 45 {
		t.Errorf("expected 45 minutes, got %d", slot.DurationMinutes)
	}

	result := callTool(t, srv, "schedule_task", map[string]any{"task_id": 1})
	if result == nil || !result.IsError {
		t.Fatal("expected error scheduling an already scheduled task")
	}
}

func TestScheduleTaskRemoteWithoutRemote(t *testing.T) {
	srv := NewServer(newTestManager(t, sampleTasks()...), nil, "test")

	result := callTool(t, srv, "schedule_task", map[string]any{"task_id": 1, "remote": true})
	if result == nil || !result.IsError {
		t.Fatal("expected error when no remote is configured")
	}
}

func TestGetMetrics(t *testing.T) {
	now := time.Now().UTC()
	mc := &fakeMetricsCalculator{
		metrics: &observability.Metrics{
			TasksCaptured:     5,
			TasksCompleted:    3,
			TasksScheduled:    2,
			ScheduledMinutes:  90,
			RemoteUnavailable: 1,
			CapturedByTag:     map[string]int{"work": 4},
			ScheduledBy:       map[string]int{"local": 2},
			EventCount:        42,
			OldestEvent:       &now,
			NewestEvent:       &now,
		},
	}
	srv := NewServer(newTestManager(t), mc, "test")

	var m metricsOutput
	decodeOutput(t, callTool(t, srv, "get_metrics", map[string]any{"since": "30d"}), &m)

	if m.TasksCaptured != 5 {
		t.Errorf("expected 5 tasks captured, got %d", m.TasksCaptured)
	}
	if m.ScheduledMinutes != 90 {
		t.Errorf("expected 90 scheduled minutes, got %d", m.ScheduledMinutes)
	}
	if m.CapturedByTag["work"] != 4 {
		t.Errorf("expected 4 work captures, got %d", m.CapturedByTag["work"])
	}
	if m.EventCount != 42 {
		t.Errorf("expected 42 events, got %d", m.EventCount)
	}
	if time.Since(mc.since) < 29*24*time.Hour {
		t.Errorf("expected a 30 day window, got since %v", mc.since)
	}
}

func TestGetMetricsDisabled(t *testing.T) {
	srv := NewServer(newTestManager(t), nil, "test")

	result := callTool(t, srv, "get_metrics", map[string]any{})
	if result == nil || !result.IsError {
		t.Fatal("expected error when metrics calculator is nil")
	}
	if extractText(result) == "" {
		t.Fatal("expected error message in result")
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"7d", now.AddDate(0, 0, -7), false},
		{"30d", now.AddDate(0, 0, -30), false},
		{"24h", now.Add(-24 * time.Hour), false},
		{"1h", now.Add(-time.Hour), false},
		{"", time.Time{}, true},
		{"x", time.Time{}, true},
		{"7x", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSince(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSince(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseSince(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
