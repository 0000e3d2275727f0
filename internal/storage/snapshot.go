package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/valter-silva-au/priority-os/pkg/models"
	"gopkg.in/yaml.v3"
)

// SnapshotFileName is the local snapshot file created under the base path.
const SnapshotFileName = "tasks.yaml"

// SnapshotManager reads and writes the local task snapshot: an ordered YAML
// sequence of task records.
type SnapshotManager interface {
	// Load returns the saved tasks in order. An absent or corrupt
	// snapshot yields an empty list and no error.
	Load() ([]models.Task, error)
	// Save replaces the snapshot with tasks.
	Save(tasks []models.Task) error
	// LoadRemoved returns the ids of tasks deleted locally. An absent or
	// corrupt file yields no ids and no error.
	LoadRemoved() ([]int, error)
	// SaveRemoved replaces the set of locally deleted task ids.
	SaveRemoved(ids []int) error
	// Path returns the snapshot file location.
	Path() string
}

type fileSnapshotManager struct {
	path string
}

// NewSnapshotManager creates a SnapshotManager backed by the file at path.
func NewSnapshotManager(path string) SnapshotManager {
	return &fileSnapshotManager{path: path}
}

func (m *fileSnapshotManager) Path() string {
	return m.path
}

func (m *fileSnapshotManager) Load() ([]models.Task, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	var tasks []models.Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		// A corrupt snapshot is treated as an empty task set.
		return nil, nil
	}

	valid := tasks[:0]
	for _, t := range tasks {
		if t.ID <= 0 {
			continue
		}
		valid = append(valid, t)
	}
	return valid, nil
}

func (m *fileSnapshotManager) Save(tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := yaml.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("saving snapshot: marshaling YAML: %w", err)
	}
	if err := m.writeAtomic(m.path, data); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// removedPath is the tombstone file kept next to the snapshot, e.g.
// tasks.removed.yaml for tasks.yaml.
func (m *fileSnapshotManager) removedPath() string {
	ext := filepath.Ext(m.path)
	return strings.TrimSuffix(m.path, ext) + ".removed" + ext
}

func (m *fileSnapshotManager) LoadRemoved() ([]int, error) {
	data, err := os.ReadFile(m.removedPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading removed tasks: %w", err)
	}

	var ids []int
	if err := yaml.Unmarshal(data, &ids); err != nil {
		return nil, nil
	}
	valid := ids[:0]
	for _, id := range ids {
		if id > 0 {
			valid = append(valid, id)
		}
	}
	return valid, nil
}

func (m *fileSnapshotManager) SaveRemoved(ids []int) error {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	data, err := yaml.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("saving removed tasks: marshaling YAML: %w", err)
	}
	if err := m.writeAtomic(m.removedPath(), data); err != nil {
		return fmt.Errorf("saving removed tasks: %w", err)
	}
	return nil
}

// writeAtomic replaces path with data through a temp file and rename, under
// the snapshot lock.
func (m *fileSnapshotManager) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	unlock, err := lockFile(m.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}
