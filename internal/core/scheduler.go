package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Default duration policy: urgent tasks get quick slots.
const (
	baseDurationMinutes    = 60
	minutesPerPriority     = 5
	minimumDurationMinutes = 15
)

// Scheduler assigns time slots to unscheduled tasks using a greedy
// earliest-fit policy over the intervals already occupied by other tasks.
type Scheduler struct {
	granularity time.Duration
	dayStart    time.Duration
	dayEnd      time.Duration
}

// NewScheduler creates a Scheduler from the schedule configuration. A zero
// granularity defaults to 15 minutes and empty clock times default to the
// whole day.
func NewScheduler(cfg models.ScheduleConfig) (*Scheduler, error) {
	s := &Scheduler{
		granularity: 15 * time.Minute,
		dayStart:    0,
		dayEnd:      24 * time.Hour,
	}
	if cfg.GranularityMinutes != 0 {
		if cfg.GranularityMinutes < 0 {
			return nil, fmt.Errorf("creating scheduler: granularity %d must be positive", cfg.GranularityMinutes)
		}
		s.granularity = time.Duration(cfg.GranularityMinutes) * time.Minute
	}
	if cfg.DayStart != "" {
		d, err := parseClock(cfg.DayStart)
		if err != nil {
			return nil, fmt.Errorf("creating scheduler: day start: %w", err)
		}
		s.dayStart = d
	}
	if cfg.DayEnd != "" {
		d, err := parseClock(cfg.DayEnd)
		if err != nil {
			return nil, fmt.Errorf("creating scheduler: day end: %w", err)
		}
		s.dayEnd = d
	}
	if s.dayStart >= s.dayEnd {
		return nil, fmt.Errorf("creating scheduler: day start %s is not before day end %s", cfg.DayStart, cfg.DayEnd)
	}
	return s, nil
}

// DefaultDurationMinutes returns the slot length used when no hint is given:
// 60 - 5*priority minutes, never less than 15.
func DefaultDurationMinutes(priority int) int {
	d := baseDurationMinutes - models.ClampPriority(priority)*minutesPerPriority
	if d < minimumDurationMinutes {
		return minimumDurationMinutes
	}
	return d
}

// Assign picks a slot for task. hintMinutes, when non-nil, overrides the
// priority-derived duration and must be positive. occupied holds the slots
// of other tasks in any order. The slot starts on a granularity boundary on
// or after now (and on or after the configured day start), does not overlap
// any occupied interval, and ends no later than the day's horizon. A target
// day after today moves the window to that day.
//
// Assign does not modify task; the caller stores the returned slot.
func (s *Scheduler) Assign(task models.Task, hintMinutes *int, occupied []models.Slot, now time.Time) (models.Slot, error) {
	if task.ScheduledSlot != nil {
		return models.Slot{}, fmt.Errorf("scheduling task %d: %w", task.ID, ErrAlreadyScheduled)
	}

	minutes := DefaultDurationMinutes(task.Priority)
	if hintMinutes != nil {
		if *hintMinutes <= 0 {
			return models.Slot{}, fmt.Errorf("scheduling task %d: %d minutes: %w", task.ID, *hintMinutes, ErrInvalidDuration)
		}
		minutes = *hintMinutes
	}

	from := now
	if day, ok := ResolveTargetDay(task.TargetDay, now); ok && day.After(now) {
		from = day
	}
	midnight := startOfDay(from)
	horizon := s.Horizon(from)

	cursor := from
	if windowStart := midnight.Add(s.dayStart); cursor.Before(windowStart) {
		cursor = windowStart
	}
	cursor = s.alignUp(cursor, midnight)

	// Compare in minutes first: a huge hint overflows time.Duration.
	if minutes > int(horizon.Sub(cursor)/time.Minute) {
		return models.Slot{}, fmt.Errorf("scheduling task %d for %d minutes before %s: %w",
			task.ID, minutes, horizon.Format(time.RFC3339), ErrNoAvailableSlot)
	}
	duration := time.Duration(minutes) * time.Minute

	for _, iv := range sortedSlots(occupied) {
		if iv.DurationMinutes <= 0 || !iv.End().After(cursor) {
			continue
		}
		candidate := models.Slot{Start: cursor, DurationMinutes: minutes}
		if !candidate.Overlaps(iv) {
			break
		}
		cursor = s.alignUp(iv.End(), midnight)
		if cursor.Add(duration).After(horizon) {
			break
		}
	}

	if cursor.Add(duration).After(horizon) {
		return models.Slot{}, fmt.Errorf("scheduling task %d for %d minutes before %s: %w",
			task.ID, minutes, horizon.Format(time.RFC3339), ErrNoAvailableSlot)
	}
	return models.Slot{Start: cursor, DurationMinutes: minutes}, nil
}

// Horizon returns the latest end time a slot assigned at now may have.
func (s *Scheduler) Horizon(now time.Time) time.Time {
	return startOfDay(now).Add(s.dayEnd)
}

// alignUp rounds t up to the next granularity boundary counted from midnight.
func (s *Scheduler) alignUp(t, midnight time.Time) time.Time {
	rem := t.Sub(midnight) % s.granularity
	if rem == 0 {
		return t
	}
	if rem < 0 {
		return t.Add(-rem)
	}
	return t.Add(s.granularity - rem)
}

func sortedSlots(slots []models.Slot) []models.Slot {
	sorted := make([]models.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End().Before(sorted[j].End())
	})
	return sorted
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseClock parses an HH:MM clock time into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("clock time %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("clock time %q: hour: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("clock time %q: minute: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock time %q is out of range", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
