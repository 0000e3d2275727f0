package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OutboxFileName is the queue file created under the base path.
const OutboxFileName = ".pos_outbox.json"

// QueuedOperation represents a mutation the remote did not accept, kept so
// that it can be replayed on the next sync.
type QueuedOperation struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	TaskID    int             `json:"task_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewQueuedOperation builds an operation with a fresh id and the given
// payload encoded as JSON.
func NewQueuedOperation(opType string, taskID int, payload any) (QueuedOperation, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return QueuedOperation{}, fmt.Errorf("encoding %s payload for task %d: %w", opType, taskID, err)
	}
	return QueuedOperation{
		ID:        uuid.NewString(),
		Type:      opType,
		TaskID:    taskID,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// SyncResult contains the outcome of replaying pending operations.
type SyncResult struct {
	Synced int      `json:"synced"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// OfflineManager persists operations made while the remote was unreachable
// so that they can be replayed when connectivity is restored. Replay is
// driven by the caller; nothing runs in the background.
type OfflineManager interface {
	QueueOperation(op QueuedOperation) error
	PendingOperations() ([]QueuedOperation, error)
	// SyncPendingOperations calls execute once per queued operation, in
	// queue order, and keeps only the operations that failed.
	SyncPendingOperations(execute func(QueuedOperation) error) (*SyncResult, error)
}

// offlineManager implements OfflineManager, persisting queued operations to
// a JSON file under basePath.
type offlineManager struct {
	basePath string
	mu       sync.Mutex
}

// NewOfflineManager creates a new OfflineManager that stores its queue file
// under the given basePath.
func NewOfflineManager(basePath string) OfflineManager {
	return &offlineManager{basePath: basePath}
}

// queueFilePath returns the path to the offline queue file.
func (m *offlineManager) queueFilePath() string {
	return filepath.Join(m.basePath, OutboxFileName)
}

// QueueOperation persists an operation to the offline queue file.
func (m *offlineManager) QueueOperation(op QueuedOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now().UTC()
	}

	queue, err := m.loadQueue()
	if err != nil {
		return fmt.Errorf("loading offline queue: %w", err)
	}

	queue = append(queue, op)

	return m.saveQueue(queue)
}

// PendingOperations returns the queued operations in queue order.
func (m *offlineManager) PendingOperations() ([]QueuedOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, err := m.loadQueue()
	if err != nil {
		return nil, fmt.Errorf("loading offline queue: %w", err)
	}
	return queue, nil
}

func (m *offlineManager) SyncPendingOperations(execute func(QueuedOperation) error) (*SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, err := m.loadQueue()
	if err != nil {
		return nil, fmt.Errorf("loading offline queue: %w", err)
	}

	result := &SyncResult{}

	if len(queue) == 0 {
		return result, nil
	}

	var remaining []QueuedOperation

	for _, op := range queue {
		if err := execute(op); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("op %s (%s task %d): %v", op.ID, op.Type, op.TaskID, err))
			remaining = append(remaining, op)
		} else {
			result.Synced++
		}
	}

	if err := m.saveQueue(remaining); err != nil {
		return result, fmt.Errorf("saving remaining queue: %w", err)
	}

	return result, nil
}

// loadQueue reads the queue file and returns the queued operations.
// Returns an empty slice if the file does not exist.
func (m *offlineManager) loadQueue() ([]QueuedOperation, error) {
	data, err := os.ReadFile(m.queueFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if len(data) == 0 {
		return nil, nil
	}

	var queue []QueuedOperation
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("parsing offline queue: %w", err)
	}

	return queue, nil
}

// saveQueue writes the queue to the queue file. If the queue is empty,
// the file is removed.
func (m *offlineManager) saveQueue(queue []QueuedOperation) error {
	if len(queue) == 0 {
		err := os.Remove(m.queueFilePath())
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	if err := os.MkdirAll(m.basePath, 0o750); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}

	data, err := json.MarshalIndent(queue, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling offline queue: %w", err)
	}

	return os.WriteFile(m.queueFilePath(), data, 0o600)
}
