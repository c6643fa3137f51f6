package settings

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// Snapshot is a saved copy of the confirmed settings structure
type Snapshot struct {
	// Data is the structure as the device reported it
	Data []byte

	// Timestamp when this snapshot was taken
	Timestamp time.Time

	// Description of the operation this snapshot was taken before
	Description string
}

// SnapshotManager keeps recent settings snapshots for rollback
type SnapshotManager struct {
	settings *DeviceSettings

	// snapshots is limited to maxSnapshots entries
	snapshots    []*Snapshot
	maxSnapshots int

	mutex sync.RWMutex
}

// NewSnapshotManager creates a snapshot manager for s
func NewSnapshotManager(s *DeviceSettings) *SnapshotManager {
	return &SnapshotManager{
		settings:     s,
		snapshots:    make([]*Snapshot, 0, 10),
		maxSnapshots: 10,
	}
}

// SaveSnapshot captures the confirmed structure. Settings must be loaded.
func (sm *SnapshotManager) SaveSnapshot(description string) (*Snapshot, error) {
	if !sm.settings.Loaded() {
		return nil, newError(ErrTypeNotAvailable, nil, "cannot snapshot settings that were never read")
	}

	snapshot := &Snapshot{
		Data:        sm.settings.DeviceRAM(),
		Timestamp:   time.Now(),
		Description: description,
	}

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.snapshots = append(sm.snapshots, snapshot)
	if len(sm.snapshots) > sm.maxSnapshots {
		sm.snapshots = sm.snapshots[1:]
	}
	return snapshot, nil
}

// Latest returns the most recent snapshot, or nil
func (sm *SnapshotManager) Latest() *Snapshot {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	if len(sm.snapshots) == 0 {
		return nil
	}
	return sm.snapshots[len(sm.snapshots)-1]
}

// Snapshots returns all snapshots, oldest first
func (sm *SnapshotManager) Snapshots() []*Snapshot {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	result := make([]*Snapshot, len(sm.snapshots))
	copy(result, sm.snapshots)
	return result
}

// Clear removes all snapshots
func (sm *SnapshotManager) Clear() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.snapshots = make([]*Snapshot, 0, 10)
}

// Rollback writes snapshot back to the device
func (sm *SnapshotManager) Rollback(snapshot *Snapshot, temporary bool) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if err := sm.settings.ApplyStructure(snapshot.Data); err != nil {
		return err
	}
	return sm.settings.Apply(temporary)
}

// SafeApplyResult describes a SafeApply
type SafeApplyResult struct {
	// Success indicates whether the apply succeeded
	Success bool

	Description string

	// Adjusted lists bytes the device changed from what was requested
	Adjusted []Mismatch

	RollbackAttempted bool
	RollbackSucceeded bool

	Error error
}

// String returns a human-readable summary
func (r *SafeApplyResult) String() string {
	if r.Success {
		if len(r.Adjusted) > 0 {
			return fmt.Sprintf("Applied %s; device adjusted %s", r.Description, FormatMismatches(r.Adjusted))
		}
		return fmt.Sprintf("Applied %s", r.Description)
	}
	if r.RollbackAttempted {
		if r.RollbackSucceeded {
			return fmt.Sprintf("Apply failed but rolled back: %s\nError: %v", r.Description, r.Error)
		}
		return fmt.Sprintf("Apply failed and rollback failed: %s\nError: %v", r.Description, r.Error)
	}
	return fmt.Sprintf("Apply failed: %s\nError: %v", r.Description, r.Error)
}

// SafeApply snapshots the confirmed structure, applies pending, and rolls
// back to the snapshot if the apply fails.
func (sm *SnapshotManager) SafeApply(description string, temporary bool) *SafeApplyResult {
	result := &SafeApplyResult{Description: description}

	snapshot, err := sm.SaveSnapshot(description)
	if err != nil {
		result.Error = fmt.Errorf("failed to save pre-apply snapshot: %w", err)
		return result
	}

	requested := sm.settings.Pending()
	applyErr := sm.settings.Apply(temporary)
	if applyErr == nil {
		result.Success = true
		result.Adjusted = Diff(requested, sm.settings.DeviceRAM())
		return result
	}

	result.RollbackAttempted = true
	if bytes.Equal(sm.settings.DeviceRAM(), snapshot.Data) {
		// The device never took the new structure.
		result.RollbackSucceeded = true
		result.Error = applyErr
		return result
	}

	if err := sm.Rollback(snapshot, temporary); err != nil {
		result.Error = fmt.Errorf("apply failed (%w) and rollback failed: %w", applyErr, err)
		return result
	}
	result.RollbackSucceeded = true
	result.Error = fmt.Errorf("apply failed, rolled back to previous settings: %w", applyErr)
	return result
}
