// Package provider defines the interface to external document sources.
// The canonical copy of every document lives with the provider; this
// server only indexes excerpts of it.
package provider

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors returned by provider implementations.
var (
	// ErrNotFound means the file does not exist or is trashed.
	ErrNotFound = errors.New("provider: file not found")
	// ErrAccessLost means the user's credentials no longer grant access
	// to the file or folder. Sync treats this as document gone.
	ErrAccessLost = errors.New("provider: access lost")
	// ErrRateLimited means the provider rejected the request for quota.
	ErrRateLimited = errors.New("provider: rate limited")
	// ErrServer covers provider-side failures.
	ErrServer = errors.New("provider: server error")
)

// Credentials identify one user's grant at the provider. They are loaded
// per request and never cached inside the client.
type Credentials struct {
	UserID       string
	RefreshToken string
}

// Marker is a persistent named range anchoring one segment inside a
// provider document. Offsets are positions in the snapshot text.
type Marker struct {
	Name        string
	SegmentID   string
	StartOffset int
	EndOffset   int
}

// Snapshot is one point-in-time read of a provider document: its full
// flattened text plus every segment marker found in it.
type Snapshot struct {
	FileID     string
	Title      string
	Text       string
	Markers    []Marker
	ModifiedAt time.Time
}

// Slice extracts [start, end) from the snapshot text, clamped to its
// bounds. Offsets beyond the text return an empty string.
func (s *Snapshot) Slice(start, end int) string {
	runes := []rune(s.Text)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// File is one entry of a folder listing.
type File struct {
	ID         string
	Name       string
	ModifiedAt time.Time
}

// Provider is the document source abstraction. All methods take
// credentials explicitly so a single client instance serves every user.
type Provider interface {
	// FetchDocument reads the full document with its markers.
	FetchDocument(ctx context.Context, creds Credentials, fileID string) (*Snapshot, error)

	// ListFolder enumerates the provider documents in a folder.
	ListFolder(ctx context.Context, creds Credentials, folderID string) ([]File, error)

	// CreateMarker writes a named range for a segment into the document.
	CreateMarker(ctx context.Context, creds Credentials, fileID string, marker Marker) error

	// DeleteMarkers removes the named ranges with the given names.
	DeleteMarkers(ctx context.Context, creds Credentials, fileID string, names []string) error
}

const markerPrefix = "segment:"

// MarkerName returns the named-range name anchoring a segment.
func MarkerName(segmentID string) string {
	return markerPrefix + segmentID
}

// SegmentIDFromMarker extracts the segment id from a marker name.
// Returns false for ranges this server did not create.
func SegmentIDFromMarker(name string) (string, bool) {
	if !strings.HasPrefix(name, markerPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(name, markerPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}
