package embedx

import (
	"context"
	"time"
)

// Snapshot is the serializable view of an instance's lifecycle state.
type Snapshot struct {
	InstanceID string    `json:"instanceID" yaml:"instanceID"`
	State      State     `json:"state" yaml:"state"`
	BundleID   string    `json:"bundleID,omitempty" yaml:"bundleID,omitempty"`
	PendingURL string    `json:"pendingURL,omitempty" yaml:"pendingURL,omitempty"`
	ExitCode   int       `json:"exitCode" yaml:"exitCode"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// SnapshotStore persists snapshots after each lifecycle transition.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, instanceID string) (Snapshot, error)
}

// Snapshot returns the current snapshot.
func (i *Instance) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snapshotLocked()
}

func (i *Instance) snapshotLocked() Snapshot {
	return Snapshot{
		InstanceID: i.id,
		State:      i.stateLocked(),
		BundleID:   i.bundleID,
		PendingURL: i.pendingURL,
		ExitCode:   i.exitCode,
		Timestamp:  time.Now(),
	}
}
