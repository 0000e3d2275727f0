package models

import "time"

// Priority bounds and default applied when a capture carries no priority marker.
const (
	MinPriority     = 0
	MaxPriority     = 9
	DefaultPriority = 5
)

// Day markers recognised by the capture syntax. Explicit dates are stored
// as YYYY-MM-DD strings.
const (
	DayToday    = "today"
	DayTomorrow = "tomorrow"
)

// DateLayout is the layout of an explicit target day.
const DateLayout = "2006-01-02"

// Slot is a concrete time interval held by a scheduled task.
type Slot struct {
	Start           time.Time `json:"start" yaml:"start"`
	DurationMinutes int       `json:"durationMinutes" yaml:"duration_minutes"`
}

// End returns the exclusive end of the slot.
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two half-open intervals intersect.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start.Before(other.End()) && other.Start.Before(s.End())
}

// Task is a unit of work captured by the user. ID and CreatedAt are set once
// by the TaskStore and never change afterwards.
type Task struct {
	ID            int       `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Priority      int       `json:"priority" yaml:"priority"`
	Tags          []string  `json:"tags" yaml:"tags"`
	TargetDay     string    `json:"targetDay,omitempty" yaml:"target_day,omitempty"`
	Completed     bool      `json:"completed" yaml:"completed"`
	ScheduledSlot *Slot     `json:"scheduledSlot,omitempty" yaml:"scheduled_slot,omitempty"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
}

// NeedsScheduling reports whether the task has no slot assigned.
func (t Task) NeedsScheduling() bool {
	return t.ScheduledSlot == nil
}

// Clone returns a deep copy so callers never alias store-owned slices or slots.
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.ScheduledSlot != nil {
		slot := *t.ScheduledSlot
		c.ScheduledSlot = &slot
	}
	return c
}

// TaskDraft is the structured result of parsing a capture string.
type TaskDraft struct {
	Title     string   `json:"title"`
	Priority  int      `json:"priority"`
	Tags      []string `json:"tags"`
	TargetDay string   `json:"targetDay,omitempty"`
}

// TaskPatch carries a partial update. Nil fields are left untouched.
// ID and CreatedAt exist only so that attempts to change them can be rejected.
type TaskPatch struct {
	ID            *int       `json:"id,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Priority      *int       `json:"priority,omitempty"`
	Tags          *[]string  `json:"tags,omitempty"`
	TargetDay     *string    `json:"targetDay,omitempty"`
	Completed     *bool      `json:"completed,omitempty"`
	ScheduledSlot *Slot      `json:"scheduledSlot,omitempty"`
	ClearSlot     bool       `json:"clearSlot,omitempty"`
}

// ClampPriority forces p into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// PriorityLabel returns the display label for a priority value.
func PriorityLabel(p int) string {
	switch {
	case p >= 8:
		return "Urgent"
	case p >= 5:
		return "High"
	case p >= 3:
		return "Medium"
	default:
		return "Low"
	}
}
