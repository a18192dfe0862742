// Package storage persists the conversation state: the window snapshot file,
// the sqlite search index, and conversation exports.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/miyifan/deepchat/store"
)

const snapshotFile = "windows.json"

// SnapshotStorage reads and writes the window snapshot on disk.
type SnapshotStorage struct {
	dataDir string
}

// NewSnapshotStorage creates the data directory if needed (0700 - user-only
// access) and returns a storage rooted there.
func NewSnapshotStorage(dataDir string) (*SnapshotStorage, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &SnapshotStorage{dataDir: dataDir}, nil
}

func (s *SnapshotStorage) path() string {
	return filepath.Join(s.dataDir, snapshotFile)
}

// Save writes the snapshot. Conversation history is sensitive, hence 0600.
func (s *SnapshotStorage) Save(snap store.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write-then-rename so a crash mid-write never truncates the snapshot.
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file is not an error: it returns an
// empty snapshot and false, the first-run case.
func (s *SnapshotStorage) Load() (store.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// LockInstance records this process's pid so a second instance can detect
// the running one. Lock file: <data_dir>/deepchat.lock.
func (s *SnapshotStorage) LockInstance() error {
	lockPath := filepath.Join(s.dataDir, "deepchat.lock")
	return os.WriteFile(lockPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
}

// UnlockInstance removes the instance lock; a missing file is fine.
func (s *SnapshotStorage) UnlockInstance() error {
	err := os.Remove(filepath.Join(s.dataDir, "deepchat.lock"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CheckInstanceLock reports whether another instance appears to be running,
// and its pid. Stale or unparsable lock files are cleaned up.
func (s *SnapshotStorage) CheckInstanceLock() (bool, int, error) {
	lockPath := filepath.Join(s.dataDir, "deepchat.lock")

	data, err := os.ReadFile(lockPath)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil {
		_ = os.Remove(lockPath)
		return false, 0, nil
	}

	// FindProcess always succeeds on Unix; good enough as a liveness hint
	// without signaling.
	if _, err := os.FindProcess(pid); err != nil {
		_ = os.Remove(lockPath)
		return false, 0, nil
	}
	return true, pid, nil
}
