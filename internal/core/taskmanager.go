package core

import (
	"context"
	"fmt"
	"time"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// Result is the outcome of a mutating operation. Synced reports whether the
// remote authority accepted the change; SyncErr holds the remote failure, if
// any. A remote failure never undoes the local change.
type Result struct {
	Task    models.Task
	Synced  bool
	SyncErr error
}

// SyncReport summarizes a Sync call.
type SyncReport struct {
	Replayed int
	Failed   int
	Errors   []string
	Pending  int
	Pulled   bool
	Tasks    int
}

// RefreshResult summarizes a Refresh call.
type RefreshResult struct {
	// Pulled is true when the remote answered with a task list.
	Pulled bool
	// Replaced is true when the local contents were swapped for the remote's.
	Replaced bool
	// Pending is the number of outbox entries that blocked replacement.
	Pending int
}

// TaskManager coordinates the engine for one session: it applies user
// intents to the TaskStore, writes the local snapshot, and pushes changes
// to the remote authority on a best-effort basis.
type TaskManager interface {
	Capture(ctx context.Context, raw string) (Result, error)
	SetCompleted(ctx context.Context, id int, completed bool) (Result, error)
	Remove(ctx context.Context, id int) error
	AutoSchedule(ctx context.Context, id int, hintMinutes *int) (Result, error)
	AutoScheduleRemote(ctx context.Context, id int, hintMinutes *int) (Result, error)
	ClearSchedule(ctx context.Context, id int) (Result, error)
	Get(id int) (models.Task, error)
	Ranked() []models.Task
	NeedsScheduling() []models.Task
	Refresh(ctx context.Context) (RefreshResult, error)
	Sync(ctx context.Context) (*SyncReport, error)
}

type taskManager struct {
	store     *TaskStore
	scheduler *Scheduler
	snapshot  SnapshotStore
	remote    RemoteSync
	outbox    Outbox
	events    EventLogger
	now       func() time.Time
}

// NewTaskManager creates a TaskManager. snapshot, remote, outbox and events
// may be nil: without a remote the manager works local-only, and without an
// outbox failed pushes are reported but not kept. A nil clock uses time.Now.
func NewTaskManager(store *TaskStore, scheduler *Scheduler, snapshot SnapshotStore, remote RemoteSync, outbox Outbox, events EventLogger, clock func() time.Time) TaskManager {
	if clock == nil {
		clock = time.Now
	}
	return &taskManager{
		store:     store,
		scheduler: scheduler,
		snapshot:  snapshot,
		remote:    remote,
		outbox:    outbox,
		events:    events,
		now:       clock,
	}
}

// Capture parses raw, adds the task, persists it and pushes it.
func (tm *taskManager) Capture(ctx context.Context, raw string) (Result, error) {
	draft, err := ParseCapture(raw)
	if err != nil {
		return Result{}, fmt.Errorf("capturing task: %w", err)
	}

	task := tm.store.Add(draft)
	if err := tm.persist(); err != nil {
		return Result{Task: task}, fmt.Errorf("capturing task %d: %w", task.ID, err)
	}
	tm.logEvent("task.captured", map[string]any{
		"task_id":  task.ID,
		"priority": task.Priority,
		"tags":     task.Tags,
	})

	res := Result{Task: task}
	if tm.remote == nil {
		return res, nil
	}
	created, err := tm.remote.Push(ctx, task)
	if err != nil {
		tm.deferEntry(OutboxEntry{Kind: OutboxCreate, TaskID: task.ID, Task: &task}, err)
		res.SyncErr = err
		return res, nil
	}
	tm.checkRemoteID(task.ID, created)
	res.Synced = true
	return res, nil
}

// SetCompleted marks a task complete or incomplete.
func (tm *taskManager) SetCompleted(ctx context.Context, id int, completed bool) (Result, error) {
	res, err := tm.apply(ctx, id, models.TaskPatch{Completed: &completed})
	if err != nil {
		return res, fmt.Errorf("setting completion: %w", err)
	}
	eventType := "task.completed"
	if !completed {
		eventType = "task.reopened"
	}
	tm.logEvent(eventType, map[string]any{"task_id": id})
	return res, nil
}

// Remove deletes a task locally. It is idempotent. The remote contract has
// no delete operation, so nothing is pushed; the id is kept as a tombstone
// that Refresh honors instead.
func (tm *taskManager) Remove(_ context.Context, id int) error {
	if _, err := tm.store.Get(id); err != nil {
		return nil
	}
	tm.store.Remove(id)
	// Tombstones first: a crash between the writes must not resurrect the task.
	if tm.snapshot != nil {
		if err := tm.snapshot.SaveRemoved(tm.store.Removed()); err != nil {
			return fmt.Errorf("removing task %d: %w", id, err)
		}
	}
	if err := tm.persist(); err != nil {
		return fmt.Errorf("removing task %d: %w", id, err)
	}
	tm.logEvent("task.removed", map[string]any{"task_id": id})
	return nil
}

// AutoSchedule assigns the task a slot locally and pushes the result.
func (tm *taskManager) AutoSchedule(ctx context.Context, id int, hintMinutes *int) (Result, error) {
	task, err := tm.store.Get(id)
	if err != nil {
		return Result{}, fmt.Errorf("auto-scheduling: %w", err)
	}

	slot, err := tm.scheduler.Assign(task, hintMinutes, tm.store.Occupied(id), tm.now())
	if err != nil {
		return Result{Task: task}, fmt.Errorf("auto-scheduling: %w", err)
	}

	res, err := tm.apply(ctx, id, models.TaskPatch{ScheduledSlot: &slot})
	if err != nil {
		return res, fmt.Errorf("auto-scheduling: %w", err)
	}
	tm.logEvent("task.scheduled", map[string]any{
		"task_id":  id,
		"start":    slot.Start.Format(time.RFC3339),
		"minutes":  slot.DurationMinutes,
		"assigner": "local",
	})
	return res, nil
}

// AutoScheduleRemote asks the remote authority to pick the slot and stores
// the slot it returns. Remote failures are returned as errors because no
// local fallback choice is made on the caller's behalf.
func (tm *taskManager) AutoScheduleRemote(ctx context.Context, id int, hintMinutes *int) (Result, error) {
	task, err := tm.store.Get(id)
	if err != nil {
		return Result{}, fmt.Errorf("remote auto-scheduling: %w", err)
	}
	if task.ScheduledSlot != nil {
		return Result{Task: task}, fmt.Errorf("remote auto-scheduling task %d: %w", id, ErrAlreadyScheduled)
	}
	if hintMinutes != nil && *hintMinutes <= 0 {
		return Result{Task: task}, fmt.Errorf("remote auto-scheduling task %d: %w", id, ErrInvalidDuration)
	}
	if tm.remote == nil {
		return Result{Task: task}, fmt.Errorf("remote auto-scheduling task %d: no remote configured", id)
	}

	remoteTask, err := tm.remote.AutoSchedule(ctx, id, hintMinutes)
	if err != nil {
		return Result{Task: task, SyncErr: err}, fmt.Errorf("remote auto-scheduling task %d: %w", id, err)
	}
	if remoteTask.ScheduledSlot == nil {
		return Result{Task: task, Synced: true}, fmt.Errorf("remote auto-scheduling task %d: remote returned no slot", id)
	}

	updated, err := tm.store.Update(id, models.TaskPatch{ScheduledSlot: remoteTask.ScheduledSlot})
	if err != nil {
		return Result{Task: task, Synced: true}, fmt.Errorf("remote auto-scheduling: %w", err)
	}
	if err := tm.persist(); err != nil {
		return Result{Task: updated, Synced: true}, fmt.Errorf("remote auto-scheduling task %d: %w", id, err)
	}
	tm.logEvent("task.scheduled", map[string]any{
		"task_id":  id,
		"start":    remoteTask.ScheduledSlot.Start.Format(time.RFC3339),
		"minutes":  remoteTask.ScheduledSlot.DurationMinutes,
		"assigner": "remote",
	})
	return Result{Task: updated, Synced: true}, nil
}

// ClearSchedule removes a task's slot so that it can be scheduled again.
func (tm *taskManager) ClearSchedule(ctx context.Context, id int) (Result, error) {
	res, err := tm.apply(ctx, id, models.TaskPatch{ClearSlot: true})
	if err != nil {
		return res, fmt.Errorf("clearing schedule: %w", err)
	}
	tm.logEvent("task.unscheduled", map[string]any{"task_id": id})
	return res, nil
}

func (tm *taskManager) Get(id int) (models.Task, error) {
	return tm.store.Get(id)
}

func (tm *taskManager) Ranked() []models.Task {
	return Rank(tm.store.All())
}

func (tm *taskManager) NeedsScheduling() []models.Task {
	return NeedsScheduling(tm.store.All())
}

// Refresh pulls the remote task list and, when the remote answers and no
// local changes are waiting in the outbox, replaces the local contents with
// it. An unreachable remote leaves the store untouched.
func (tm *taskManager) Refresh(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult
	if tm.remote == nil {
		return res, nil
	}

	tasks, ok := tm.remote.Pull(ctx)
	if !ok {
		tm.logEvent("sync.remote_unavailable", map[string]any{"op": "pull"})
		return res, nil
	}
	res.Pulled = true

	if tm.outbox != nil {
		pending, err := tm.outbox.Len()
		if err != nil {
			return res, fmt.Errorf("refreshing tasks: %w", err)
		}
		if pending > 0 {
			res.Pending = pending
			return res, nil
		}
	}

	tm.store.Replace(tasks)
	if err := tm.persist(); err != nil {
		return res, fmt.Errorf("refreshing tasks: %w", err)
	}
	res.Replaced = true
	return res, nil
}

// Sync replays queued mutations against the remote once each, then refreshes.
func (tm *taskManager) Sync(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{}
	if tm.remote == nil {
		return report, fmt.Errorf("syncing: no remote configured")
	}

	if tm.outbox != nil {
		replay, err := tm.outbox.Drain(func(entry OutboxEntry) error {
			return tm.replay(ctx, entry)
		})
		if err != nil {
			return report, fmt.Errorf("syncing: %w", err)
		}
		report.Replayed = replay.Synced
		report.Failed = replay.Failed
		report.Errors = replay.Errors
		tm.logEvent("sync.replayed", map[string]any{
			"synced": replay.Synced,
			"failed": replay.Failed,
		})
	}

	refreshed, err := tm.Refresh(ctx)
	if err != nil {
		return report, fmt.Errorf("syncing: %w", err)
	}
	report.Pulled = refreshed.Pulled
	report.Pending = refreshed.Pending
	report.Tasks = tm.store.Len()
	return report, nil
}

func (tm *taskManager) replay(ctx context.Context, entry OutboxEntry) error {
	switch entry.Kind {
	case OutboxCreate:
		if entry.Task == nil {
			return fmt.Errorf("create entry for task %d has no task", entry.TaskID)
		}
		created, err := tm.remote.Push(ctx, *entry.Task)
		if err != nil {
			return err
		}
		tm.checkRemoteID(entry.Task.ID, created)
		return nil
	case OutboxUpdate:
		if entry.Patch == nil {
			return fmt.Errorf("update entry for task %d has no patch", entry.TaskID)
		}
		_, err := tm.remote.PushUpdate(ctx, entry.TaskID, *entry.Patch)
		return err
	default:
		return fmt.Errorf("unknown outbox entry kind %q", entry.Kind)
	}
}

// apply updates the store, persists, and pushes the patch to the remote.
func (tm *taskManager) apply(ctx context.Context, id int, patch models.TaskPatch) (Result, error) {
	task, err := tm.store.Update(id, patch)
	if err != nil {
		return Result{}, err
	}
	if err := tm.persist(); err != nil {
		return Result{Task: task}, fmt.Errorf("task %d: %w", id, err)
	}

	res := Result{Task: task}
	if tm.remote == nil {
		return res, nil
	}
	if _, err := tm.remote.PushUpdate(ctx, id, patch); err != nil {
		tm.deferEntry(OutboxEntry{Kind: OutboxUpdate, TaskID: id, Patch: &patch}, err)
		res.SyncErr = err
		return res, nil
	}
	res.Synced = true
	return res, nil
}

// checkRemoteID records a remote that filed a pushed task under another id.
// Task ids are immutable locally, so the mismatch is logged rather than
// re-keyed; later updates for the task would reach the wrong remote record.
func (tm *taskManager) checkRemoteID(localID int, created models.Task) {
	if created.ID == 0 || created.ID == localID {
		return
	}
	tm.logEvent("sync.id_mismatch", map[string]any{
		"task_id":   localID,
		"remote_id": created.ID,
	})
}

// deferEntry keeps a mutation the remote did not accept for a later Sync.
func (tm *taskManager) deferEntry(entry OutboxEntry, cause error) {
	tm.logEvent("sync.remote_unavailable", map[string]any{
		"op":      entry.Kind,
		"task_id": entry.TaskID,
		"error":   cause.Error(),
	})
	if tm.outbox == nil {
		return
	}
	if err := tm.outbox.Enqueue(entry); err != nil {
		tm.logEvent("sync.outbox_failed", map[string]any{
			"task_id": entry.TaskID,
			"error":   err.Error(),
		})
	}
}

func (tm *taskManager) persist() error {
	if tm.snapshot == nil {
		return nil
	}
	if err := tm.snapshot.Save(tm.store.All()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// logEvent writes to the event log when one is configured. Failures are
// ignored: the event log never blocks a task operation.
func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if tm.events == nil {
		return
	}
	_ = tm.events.LogEvent(eventType, data)
}
