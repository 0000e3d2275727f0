package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// TaskStore is the in-memory task collection for one session. It owns every
// Task it holds; all reads return copies, so callers can never mutate store
// state by aliasing. TaskStore is not safe for concurrent use.
type TaskStore struct {
	tasks   []models.Task
	removed map[int]bool
	ids     *taskIDSequence
	now     func() time.Time
}

// NewTaskStore creates a store seeded with initial (typically the local
// snapshot). A nil clock defaults to time.Now.
func NewTaskStore(initial []models.Task, clock func() time.Time) *TaskStore {
	if clock == nil {
		clock = time.Now
	}
	s := &TaskStore{
		removed: make(map[int]bool),
		ids:     newTaskIDSequence(initial),
		now:     clock,
	}
	for _, t := range initial {
		s.Insert(t)
	}
	return s
}

// Add creates a task from a parsed draft, assigning the next id and the
// creation time.
func (s *TaskStore) Add(draft models.TaskDraft) models.Task {
	task := models.Task{
		ID:        s.ids.Next(),
		Title:     draft.Title,
		Priority:  models.ClampPriority(draft.Priority),
		Tags:      normalizeTags(draft.Tags),
		TargetDay: draft.TargetDay,
		CreatedAt: s.now(),
	}
	s.tasks = append(s.tasks, task)
	return task.Clone()
}

// Insert stores a fully formed task record. The record keeps its id when
// that id is positive and unused; otherwise it gets the next id. A zero
// CreatedAt is set to now.
func (s *TaskStore) Insert(task models.Task) models.Task {
	task = task.Clone()
	if task.ID <= 0 || s.indexOf(task.ID) >= 0 {
		task.ID = s.ids.Next()
	} else {
		s.ids.observe(task.ID)
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}
	task.Priority = models.ClampPriority(task.Priority)
	task.Tags = normalizeTags(task.Tags)
	s.tasks = append(s.tasks, task)
	return task.Clone()
}

// Update merges the provided fields of patch into the task with the given id.
func (s *TaskStore) Update(id int, patch models.TaskPatch) (models.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.Task{}, fmt.Errorf("updating task %d: %w", id, ErrNotFound)
	}
	if patch.ID != nil && *patch.ID != id {
		return models.Task{}, fmt.Errorf("updating task %d: id: %w", id, ErrImmutableField)
	}
	if patch.CreatedAt != nil && !patch.CreatedAt.Equal(s.tasks[i].CreatedAt) {
		return models.Task{}, fmt.Errorf("updating task %d: createdAt: %w", id, ErrImmutableField)
	}

	task := s.tasks[i].Clone()
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Task{}, fmt.Errorf("updating task %d: %w", id, ErrEmptyTitle)
		}
		task.Title = title
	}
	if patch.Priority != nil {
		task.Priority = models.ClampPriority(*patch.Priority)
	}
	if patch.Tags != nil {
		task.Tags = normalizeTags(*patch.Tags)
	}
	if patch.TargetDay != nil {
		task.TargetDay = *patch.TargetDay
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.ClearSlot {
		task.ScheduledSlot = nil
	}
	if patch.ScheduledSlot != nil {
		slot := *patch.ScheduledSlot
		task.ScheduledSlot = &slot
	}

	s.tasks[i] = task
	return task.Clone(), nil
}

// Remove deletes the task with the given id and remembers the id so that
// Replace never restores it. Removing an absent id is a no-op.
func (s *TaskStore) Remove(id int) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.removed[id] = true
}

// MarkRemoved records ids deleted in an earlier session and drops any task
// still holding one of them.
func (s *TaskStore) MarkRemoved(ids ...int) {
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		s.ids.observe(id)
		if i := s.indexOf(id); i >= 0 {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		}
		s.removed[id] = true
	}
}

// Removed returns the ids of removed tasks in ascending order.
func (s *TaskStore) Removed() []int {
	ids := make([]int, 0, len(s.removed))
	for id := range s.removed {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(id int) (models.Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.Task{}, fmt.Errorf("getting task %d: %w", id, ErrNotFound)
	}
	return s.tasks[i].Clone(), nil
}

// All returns copies of every task in insertion order.
func (s *TaskStore) All() []models.Task {
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Len returns the number of tasks held.
func (s *TaskStore) Len() int {
	return len(s.tasks)
}

// Replace swaps the store contents for tasks, as done when the remote
// authority answers a pull. Removed ids are skipped and the id sequence
// never moves backwards.
func (s *TaskStore) Replace(tasks []models.Task) {
	s.tasks = nil
	for _, t := range tasks {
		s.ids.observe(t.ID)
	}
	for _, t := range tasks {
		if s.removed[t.ID] {
			continue
		}
		s.Insert(t)
	}
}

// Occupied returns the slots held by every task other than exceptID.
func (s *TaskStore) Occupied(exceptID int) []models.Slot {
	var slots []models.Slot
	for _, t := range s.tasks {
		if t.ID == exceptID || t.ScheduledSlot == nil {
			continue
		}
		slots = append(slots, *t.ScheduledSlot)
	}
	return slots
}

func (s *TaskStore) indexOf(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// normalizeTags lower-cases tags and drops empty entries and duplicates,
// keeping first-appearance order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
