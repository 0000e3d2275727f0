package core

import (
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/priority-os/pkg/models"
	"pgregory.net/rapid"
)

func newTestScheduler(t *testing.T, cfg models.ScheduleConfig) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestDefaultDurationMinutes(t *testing.T) {
	tests := []struct {
		priority int
		want     int
	}{
		{0, 60},
		{1, 55},
		{5, 35},
		{6, 30},
		{9, 15},
		{42, 15},
		{-4, 60},
	}
	for _, tt := range tests {
		if got := DefaultDurationMinutes(tt.priority); got != tt.want {
			t.Errorf("DefaultDurationMinutes(%d) = %d, want %d", tt.priority, got, tt.want)
		}
	}
}

func TestScheduler_EarliestFitAfterOccupied(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	occupied := []models.Slot{{Start: now, DurationMinutes: 30}}

	slot, err := s.Assign(models.Task{ID: 1, Priority: 6}, nil, occupied, now)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if want := now.Add(30 * time.Minute); !slot.Start.Equal(want) {
		t.Fatalf("Start = %v, want %v", slot.Start, want)
	}
	if slot.DurationMinutes != 30 {
		t.Errorf("DurationMinutes = %d, want 30", slot.DurationMinutes)
	}
}

func TestScheduler_RoundsToNextBoundary(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	now := time.Date(2026, 4, 1, 10, 7, 0, 0, time.UTC)
	occupied := []models.Slot{{Start: now, DurationMinutes: 30}}

	slot, err := s.Assign(models.Task{ID: 1}, intPtr(30), occupied, now)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	want := time.Date(2026, 4, 1, 10, 45, 0, 0, time.UTC)
	if !slot.Start.Equal(want) {
		t.Fatalf("Start = %v, want %v", slot.Start, want)
	}
}

func TestScheduler_FillsFirstGap(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return time.Date(2026, 4, 1, h, m, 0, 0, time.UTC) }
	occupied := []models.Slot{
		{Start: at(11, 0), DurationMinutes: 60},
		{Start: at(9, 0), DurationMinutes: 30},
		{Start: at(10, 0), DurationMinutes: 30},
	}

	// 9:30-10:00 fits 30 minutes.
	slot, err := s.Assign(models.Task{ID: 1}, intPtr(30), occupied, now)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !slot.Start.Equal(at(9, 30)) {
		t.Fatalf("30m Start = %v, want 09:30", slot.Start)
	}

	// 45 minutes skips both short gaps and lands after 12:00.
	slot, err = s.Assign(models.Task{ID: 2}, intPtr(45), occupied, now)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !slot.Start.Equal(at(12, 0)) {
		t.Fatalf("45m Start = %v, want 12:00", slot.Start)
	}
}

func TestScheduler_IgnoresPastAndEmptyIntervals(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	now := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	occupied := []models.Slot{
		{Start: now.Add(-2 * time.Hour), DurationMinutes: 60},
		{Start: now, DurationMinutes: 0},
	}
	slot, err := s.Assign(models.Task{ID: 1}, intPtr(15), occupied, now)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !slot.Start.Equal(now) {
		t.Fatalf("Start = %v, want %v", slot.Start, now)
	}
}

func TestScheduler_AlreadyScheduled(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	existing := models.Slot{Start: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), DurationMinutes: 45}
	task := models.Task{ID: 1, ScheduledSlot: &existing}

	_, err := s.Assign(task, nil, nil, time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrAlreadyScheduled) {
		t.Fatalf("error = %v, want ErrAlreadyScheduled", err)
	}
	if task.ScheduledSlot.DurationMinutes != 45 || !task.ScheduledSlot.Start.Equal(existing.Start) {
		t.Fatalf("existing slot changed: %+v", task.ScheduledSlot)
	}
}

func TestScheduler_InvalidDuration(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	now := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	for _, hint := range []int{0, -15} {
		if _, err := s.Assign(models.Task{ID: 1}, intPtr(hint), nil, now); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("hint %d error = %v, want ErrInvalidDuration", hint, err)
		}
	}
}

func TestScheduler_NoAvailableSlot(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{DayEnd: "18:00"})

	late := time.Date(2026, 4, 1, 17, 40, 0, 0, time.UTC)
	if _, err := s.Assign(models.Task{ID: 1}, intPtr(30), nil, late); !errors.Is(err, ErrNoAvailableSlot) {
		t.Fatalf("error = %v, want ErrNoAvailableSlot", err)
	}

	now := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)
	occupied := []models.Slot{{Start: now, DurationMinutes: 105}}
	if _, err := s.Assign(models.Task{ID: 1}, intPtr(30), occupied, now); !errors.Is(err, ErrNoAvailableSlot) {
		t.Fatalf("error = %v, want ErrNoAvailableSlot", err)
	}

	// Exactly reaching the horizon is allowed.
	slot, err := s.Assign(models.Task{ID: 1}, intPtr(15), occupied, now)
	if err != nil {
		t.Fatalf("Assign ending at horizon: %v", err)
	}
	if !slot.End().Equal(s.Horizon(now)) {
		t.Errorf("End = %v, want %v", slot.End(), s.Horizon(now))
	}
}

func TestScheduler_HintLongerThanWindow(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		minutes int
	}{
		{"one past the horizon", 15*60 + 1},
		{"several days", 3 * 24 * 60},
		{"overflows a duration", 200_000_000},
		{"max int", int(^uint(0) >> 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := s.Assign(models.Task{ID: 1, Priority: 5}, intPtr(tt.minutes), nil, now)
			if !errors.Is(err, ErrNoAvailableSlot) {
				t.Fatalf("Assign(%d) = %+v, %v; want ErrNoAvailableSlot", tt.minutes, slot, err)
			}
		})
	}

	// The whole remaining day still fits.
	slot, err := s.Assign(models.Task{ID: 1}, intPtr(15*60), nil, now)
	if err != nil {
		t.Fatalf("Assign filling the day: %v", err)
	}
	if !slot.End().Equal(s.Horizon(now)) {
		t.Errorf("End = %v, want %v", slot.End(), s.Horizon(now))
	}
}

func TestScheduler_TargetDay(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{DayStart: "08:00", DayEnd: "18:00"})
	now := time.Date(2026, 3, 2, 9, 10, 0, 0, time.UTC)

	tests := []struct {
		day  string
		want time.Time
	}{
		{"", time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)},
		{models.DayToday, time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)},
		{models.DayTomorrow, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)},
		{"2026-03-06", time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC)},
		{"2026-02-20", time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run("day="+tt.day, func(t *testing.T) {
			slot, err := s.Assign(models.Task{ID: 1, TargetDay: tt.day}, intPtr(30), nil, now)
			if err != nil {
				t.Fatalf("Assign: %v", err)
			}
			if !slot.Start.Equal(tt.want) {
				t.Errorf("Start = %v, want %v", slot.Start, tt.want)
			}
		})
	}
}

func TestScheduler_TargetDayUsesThatDaysOccupancy(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{DayStart: "08:00", DayEnd: "18:00"})
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	occupied := []models.Slot{
		{Start: now, DurationMinutes: 60},
		{Start: tomorrow, DurationMinutes: 45},
	}

	slot, err := s.Assign(models.Task{ID: 1, TargetDay: models.DayTomorrow}, intPtr(30), occupied, now)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if want := tomorrow.Add(45 * time.Minute); !slot.Start.Equal(want) {
		t.Fatalf("Start = %v, want %v", slot.Start, want)
	}
}

func TestScheduler_WorkdayStart(t *testing.T) {
	s := newTestScheduler(t, models.ScheduleConfig{DayStart: "08:00", DayEnd: "18:00"})
	early := time.Date(2026, 4, 1, 6, 12, 0, 0, time.UTC)
	slot, err := s.Assign(models.Task{ID: 1}, intPtr(30), nil, early)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if want := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC); !slot.Start.Equal(want) {
		t.Fatalf("Start = %v, want %v", slot.Start, want)
	}
}

func TestNewScheduler_RejectsBadConfig(t *testing.T) {
	bad := []models.ScheduleConfig{
		{GranularityMinutes: -5},
		{DayStart: "9am"},
		{DayEnd: "25:00"},
		{DayStart: "18:00", DayEnd: "08:00"},
	}
	for _, cfg := range bad {
		if _, err := NewScheduler(cfg); err == nil {
			t.Errorf("NewScheduler(%+v) should fail", cfg)
		}
	}
}

// Feature: priority-os, Property 5: Scheduled Slots Are Aligned, Free and Bounded
// Every slot Assign returns starts on a granularity boundary at or after now,
// overlaps no occupied interval, and ends by the horizon.
func TestProperty_SchedulerSlotValidity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		granularity := rapid.SampledFrom([]int{5, 10, 15, 30, 60}).Draw(rt, "granularity")
		s, err := NewScheduler(models.ScheduleConfig{GranularityMinutes: granularity})
		if err != nil {
			rt.Fatalf("NewScheduler: %v", err)
		}

		day := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
		now := day.Add(time.Duration(rapid.IntRange(0, 24*60-1).Draw(rt, "nowMinute")) * time.Minute)

		n := rapid.IntRange(0, 12).Draw(rt, "occupied")
		occupied := make([]models.Slot, n)
		for i := range occupied {
			occupied[i] = models.Slot{
				Start:           day.Add(time.Duration(rapid.IntRange(0, 24*60).Draw(rt, "start")) * time.Minute),
				DurationMinutes: rapid.IntRange(0, 180).Draw(rt, "duration"),
			}
		}
		hint := rapid.IntRange(1, 240).Draw(rt, "hint")

		slot, err := s.Assign(models.Task{ID: 1}, &hint, occupied, now)
		if err != nil {
			if !errors.Is(err, ErrNoAvailableSlot) {
				rt.Fatalf("unexpected error: %v", err)
			}
			return
		}

		if slot.DurationMinutes != hint {
			rt.Fatalf("duration = %d, want %d", slot.DurationMinutes, hint)
		}
		if slot.Start.Before(now) {
			rt.Fatalf("slot %v starts before now %v", slot.Start, now)
		}
		if slot.Start.Sub(day)%(time.Duration(granularity)*time.Minute) != 0 {
			rt.Fatalf("slot %v not aligned to %d minutes", slot.Start, granularity)
		}
		if slot.End().After(s.Horizon(now)) {
			rt.Fatalf("slot ends %v after horizon %v", slot.End(), s.Horizon(now))
		}
		for _, iv := range occupied {
			if iv.DurationMinutes > 0 && slot.Overlaps(iv) {
				rt.Fatalf("slot %v+%d overlaps %v+%d", slot.Start, slot.DurationMinutes, iv.Start, iv.DurationMinutes)
			}
		}
	})
}
