package climate

import (
	"context"
	"time"
)

// Repository loads and saves the attribute snapshot of each device so state
// survives a restart.
//
// Implementations must be thread-safe.
type Repository interface {
	// Load returns the saved attributes for a device, or ErrNotFound.
	Load(ctx context.Context, deviceID string) (Attributes, error)

	// Save replaces the saved attributes for a device.
	Save(ctx context.Context, deviceID string, attrs Attributes) error
}

// HistoryEntry is a single recorded state change.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the climate device identifier.
	DeviceID string `json:"device_id"`

	// State is the snapshot at the time of the change.
	State Snapshot `json:"state"`

	// Source is the stimulus that caused the change (command, sensor, power, restore).
	Source Reason `json:"source"`

	// CreatedAt is the timestamp of the change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves state change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// RecordStateChange records a state change for a device.
	RecordStateChange(ctx context.Context, deviceID string, snap Snapshot, source Reason) error

	// GetHistory returns recent entries for the device, newest first.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error)

	// PruneHistory deletes entries older than the given duration and
	// returns how many were removed.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
