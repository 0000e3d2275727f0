package cli

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/priority-os/internal/core"
	"github.com/valter-silva-au/priority-os/internal/integration"
	"github.com/valter-silva-au/priority-os/internal/server"
	"github.com/valter-silva-au/priority-os/internal/storage"
	"github.com/valter-silva-au/priority-os/pkg/models"
)

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// captureStdout captures stdout output during fn execution.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = origStdout

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return string(out)
}

// memOutbox is an in-memory core.Outbox.
type memOutbox struct {
	entries []core.OutboxEntry
}

func (o *memOutbox) Enqueue(entry core.OutboxEntry) error {
	o.entries = append(o.entries, entry)
	return nil
}

func (o *memOutbox) Len() (int, error) { return len(o.entries), nil }

func (o *memOutbox) Drain(apply func(core.OutboxEntry) error) (*core.OutboxReport, error) {
	report := &core.OutboxReport{}
	var kept []core.OutboxEntry
	for _, e := range o.entries {
		if err := apply(e); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			kept = append(kept, e)
			continue
		}
		report.Synced++
	}
	o.entries = kept
	return report, nil
}

// useLocalManager installs a local-only task manager seeded with tasks and
// restores the package state when the test ends.
func useLocalManager(t *testing.T, tasks ...models.Task) core.TaskManager {
	t.Helper()
	return useManager(t, nil, nil, tasks...)
}

func useManager(t *testing.T, remote core.RemoteSync, outbox core.Outbox, tasks ...models.Task) core.TaskManager {
	t.Helper()
	origTaskMgr, origRemote := TaskMgr, RemoteEnabled
	t.Cleanup(func() {
		TaskMgr = origTaskMgr
		RemoteEnabled = origRemote
	})

	scheduler, err := core.NewScheduler(models.ScheduleConfig{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	clock := func() time.Time { return testNow }
	snapshot := storage.NewSnapshotManager(filepath.Join(t.TempDir(), storage.SnapshotFileName))
	store := core.NewTaskStore(tasks, clock)

	if outbox == nil {
		outbox = &memOutbox{}
	}
	var mgr core.TaskManager
	if remote == nil {
		mgr = core.NewTaskManager(store, scheduler, snapshot, nil, nil, nil, clock)
	} else {
		mgr = core.NewTaskManager(store, scheduler, snapshot, remote, outbox, nil, clock)
	}
	TaskMgr = mgr
	RemoteEnabled = remote != nil
	return mgr
}

// startRemote runs the task service on an httptest server and returns a
// gateway pointed at it.
func startRemote(t *testing.T) (integration.SyncGateway, *httptest.Server) {
	t.Helper()
	scheduler, err := core.NewScheduler(models.ScheduleConfig{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	snapshot := storage.NewSnapshotManager(filepath.Join(t.TempDir(), "remote.yaml"))
	svc, err := server.NewService(snapshot, scheduler, nil, func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ts := httptest.NewServer(svc.Router())
	t.Cleanup(ts.Close)
	return integration.NewSyncGateway(ts.URL+"/api", nil), ts
}

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: 1, Title: "Write report", Priority: 3, Tags: []string{"work"}, CreatedAt: testNow},
		{ID: 2, Title: "Call dentist", Priority: 8, Tags: []string{"health"}, TargetDay: models.DayTomorrow, CreatedAt: testNow},
		{ID: 3, Title: "File taxes", Priority: 9, Completed: true, CreatedAt: testNow},
	}
}
