package domain

import "time"

// SyncAction identifies what kind of sync produced a log entry.
type SyncAction string

// Sync actions.
const (
	SyncActionFull         SyncAction = "full_sync"
	SyncActionDocument     SyncAction = "document_sync"
	SyncActionMarkerRepair SyncAction = "marker_repair"
)

// SyncStatus is the outcome of a sync action.
type SyncStatus string

// Sync statuses.
const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncLog is an append-only audit record of a sync action. It exists for
// observability only; business logic never reads it back.
type SyncLog struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DocumentID string     `json:"document_id,omitempty"`
	Action     SyncAction `json:"action"`
	Status     SyncStatus `json:"status"`
	Details    string     `json:"details,omitempty"` // JSON payload
	CreatedAt  time.Time  `json:"created_at"`
}
