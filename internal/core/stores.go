package core

import (
	"context"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// SnapshotStore is the subset of storage.SnapshotManager that TaskManager
// needs. Defining it here keeps core independent of the storage package.
// The removed ids are tombstones for local deletions: the remote contract
// has no delete, so a refresh must not bring those tasks back.
type SnapshotStore interface {
	Load() ([]models.Task, error)
	Save(tasks []models.Task) error
	LoadRemoved() ([]int, error)
	SaveRemoved(ids []int) error
}

// RemoteSync is the subset of integration.SyncGateway that TaskManager needs.
// Pull reports false when the remote could not produce a task list.
type RemoteSync interface {
	Pull(ctx context.Context) ([]models.Task, bool)
	Push(ctx context.Context, task models.Task) (models.Task, error)
	PushUpdate(ctx context.Context, id int, patch models.TaskPatch) (models.Task, error)
	AutoSchedule(ctx context.Context, id int, minutes *int) (models.Task, error)
}

// Outbox operation kinds.
const (
	OutboxCreate = "create"
	OutboxUpdate = "update"
)

// OutboxEntry is a mutation the remote did not accept, kept for replay.
type OutboxEntry struct {
	Kind   string
	TaskID int
	Task   *models.Task
	Patch  *models.TaskPatch
}

// OutboxReport summarizes a replay of the outbox.
type OutboxReport struct {
	Synced int
	Failed int
	Errors []string
}

// Outbox is the subset of integration.OfflineManager that TaskManager needs.
type Outbox interface {
	Enqueue(entry OutboxEntry) error
	Len() (int, error)
	Drain(apply func(OutboxEntry) error) (*OutboxReport, error)
}
