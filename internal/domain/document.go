package domain

import "time"

// Document is a registered external document whose segments are tracked
// locally. FileID is the provider's file id, unique per user.
//
// Documents are soft-deleted (IsActive=false) when they disappear from the
// watch folder or when provider access is lost, and can be reactivated if
// the file reappears.
type Document struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	FileID         string     `json:"file_id"`
	Title          string     `json:"title"`
	FolderID       string     `json:"folder_id,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	LastModifiedAt *time.Time `json:"last_modified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
