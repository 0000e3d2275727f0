package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	TasksCaptured     int            `json:"tasks_captured"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksReopened     int            `json:"tasks_reopened"`
	TasksRemoved      int            `json:"tasks_removed"`
	TasksScheduled    int            `json:"tasks_scheduled"`
	ScheduledMinutes  int            `json:"scheduled_minutes"`
	RemoteUnavailable int            `json:"remote_unavailable"`
	OpsReplayed       int            `json:"ops_replayed"`
	CapturedByTag     map[string]int `json:"captured_by_tag"`
	ScheduledBy       map[string]int `json:"scheduled_by"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		CapturedByTag: make(map[string]int),
		ScheduledBy:   make(map[string]int),
	}

	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventTaskCaptured:
			m.TasksCaptured++
			for _, tag := range stringSlice(event.Data["tags"]) {
				m.CapturedByTag[tag]++
			}
		case EventTaskCompleted:
			m.TasksCompleted++
		case EventTaskReopened:
			m.TasksReopened++
		case EventTaskRemoved:
			m.TasksRemoved++
		case EventTaskScheduled:
			m.TasksScheduled++
			m.ScheduledMinutes += intValue(event.Data["minutes"])
			if assigner, ok := event.Data["assigner"].(string); ok {
				m.ScheduledBy[assigner]++
			}
		case EventRemoteUnavailable:
			m.RemoteUnavailable++
		case EventSyncReplayed:
			m.OpsReplayed += intValue(event.Data["synced"])
		}
	}

	return m, nil
}

// stringSlice converts a decoded JSON array into strings, skipping other values.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// intValue converts a decoded JSON number to int.
func intValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
