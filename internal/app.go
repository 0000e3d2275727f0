// Package internal provides the App struct that wires all components of the
// PriorityOS system together and initializes the CLI layer.
package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/priority-os/internal/cli"
	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/internal/integration"
	"github.com/valter-silva-au/priority-os/internal/observability"
	"github.com/valter-silva-au/priority-os/internal/server"
	"github.com/valter-silva-au/priority-os/internal/storage"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

// App holds all service dependencies for the PriorityOS system.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Storage layer
	Snapshot storage.SnapshotManager

	// Core services
	Store     *core.TaskStore
	Scheduler *core.Scheduler
	TaskMgr   core.TaskManager

	// Integration services. Both are nil when no remote is configured.
	Gateway    integration.SyncGateway
	OfflineMgr integration.OfflineManager

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components of the PriorityOS system.
// basePath is the directory holding .posconfig and the local task files.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	app.Config = cfg

	// --- Storage layer ---
	app.Snapshot = storage.NewSnapshotManager(filepath.Join(basePath, storage.SnapshotFileName))
	tasks, err := app.Snapshot.Load()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	removed, err := app.Snapshot.LoadRemoved()
	if err != nil {
		return nil, fmt.Errorf("loading removed tasks: %w", err)
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, observability.EventFileName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Integration services ---
	var remote core.RemoteSync
	var outbox core.Outbox
	if cfg.Remote.URL != "" {
		app.Gateway = integration.NewSyncGateway(cfg.Remote.URL, nil)
		app.OfflineMgr = integration.NewOfflineManager(basePath)
		remote = app.Gateway
		outbox = &outboxAdapter{mgr: app.OfflineMgr}
	}

	// --- Core services ---
	app.Scheduler, err = core.NewScheduler(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	app.Store = core.NewTaskStore(tasks, time.Now)
	app.Store.MarkRemoved(removed...)
	app.TaskMgr = core.NewTaskManager(app.Store, app.Scheduler, app.Snapshot, remote, outbox, evtAdapter, time.Now)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.TaskMgr = app.TaskMgr
	cli.RemoteEnabled = remote != nil
	cli.NewTaskService = app.NewTaskService
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc

	return app, nil
}

// NewTaskService builds the remote authority service served by `pos serve`.
// It keeps its own task file, server.data_file, resolved against the base
// path when relative.
func (a *App) NewTaskService() (*server.Service, error) {
	dataFile := a.Config.Server.DataFile
	if !filepath.IsAbs(dataFile) {
		dataFile = filepath.Join(a.BasePath, dataFile)
	}
	logger := server.NewLogger(a.Config.Log.Level, os.Stderr)
	return server.NewService(storage.NewSnapshotManager(dataFile), a.Scheduler, logger, nil)
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the PriorityOS data directory.
// It checks for the POS_HOME env var, then the nearest directory holding a
// .posconfig file, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("POS_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	// Walk up to find a directory containing .posconfig.
	for {
		for _, name := range []string{core.ConfigFileName, core.ConfigFileName + ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	// Fall back to cwd.
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// outboxAdapter adapts integration.OfflineManager to core.Outbox. Create
// entries carry the task as payload, update entries the patch.
type outboxAdapter struct {
	mgr integration.OfflineManager
}

func (a *outboxAdapter) Enqueue(entry core.OutboxEntry) error {
	var payload any
	switch entry.Kind {
	case core.OutboxCreate:
		payload = entry.Task
	case core.OutboxUpdate:
		payload = entry.Patch
	default:
		return fmt.Errorf("queueing task %d: unknown operation %q", entry.TaskID, entry.Kind)
	}
	op, err := integration.NewQueuedOperation(entry.Kind, entry.TaskID, payload)
	if err != nil {
		return err
	}
	return a.mgr.QueueOperation(op)
}

func (a *outboxAdapter) Len() (int, error) {
	ops, err := a.mgr.PendingOperations()
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

func (a *outboxAdapter) Drain(apply func(core.OutboxEntry) error) (*core.OutboxReport, error) {
	result, err := a.mgr.SyncPendingOperations(func(op integration.QueuedOperation) error {
		entry, err := outboxEntryFromOperation(op)
		if err != nil {
			return err
		}
		return apply(entry)
	})
	if err != nil {
		return nil, err
	}
	return &core.OutboxReport{
		Synced: result.Synced,
		Failed: result.Failed,
		Errors: result.Errors,
	}, nil
}

func outboxEntryFromOperation(op integration.QueuedOperation) (core.OutboxEntry, error) {
	entry := core.OutboxEntry{Kind: op.Type, TaskID: op.TaskID}
	switch op.Type {
	case core.OutboxCreate:
		var task models.Task
		if err := json.Unmarshal(op.Payload, &task); err != nil {
			return entry, fmt.Errorf("decoding queued task %d: %w", op.TaskID, err)
		}
		entry.Task = &task
	case core.OutboxUpdate:
		var patch models.TaskPatch
		if err := json.Unmarshal(op.Payload, &patch); err != nil {
			return entry, fmt.Errorf("decoding queued patch for task %d: %w", op.TaskID, err)
		}
		entry.Patch = &patch
	}
	return entry, nil
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelFor(eventType),
		Type:    eventType,
		Message: observability.MessageFor(eventType),
		Data:    data,
	})
}
