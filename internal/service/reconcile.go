package service

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/provider"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// ReconcileService brings a document's stored segments into agreement
// with the live source. Markers in the source document drive the
// process: each stored segment is looked up by its marker, re-sliced
// from the current text, and updated when position or content drifted.
// Segments whose marker disappeared are reported as orphans, never
// deleted.
type ReconcileService struct {
	store    *store.Store
	provider provider.Provider
	logger   *slog.Logger
}

// NewReconcileService creates a reconcile service.
func NewReconcileService(st *store.Store, p provider.Provider, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{store: st, provider: p, logger: logger}
}

// Conflict types reported by reconciliation.
const (
	ConflictOrphanedMarker = "orphaned_marker"
)

// SyncConflict is a reconciliation finding that needs manual attention.
type SyncConflict struct {
	Type      string `json:"type"`
	SegmentID string `json:"segment_id"`
	Detail    string `json:"detail"`
}

// DocumentSyncResult is the outcome of reconciling one document.
type DocumentSyncResult struct {
	DocumentID       string            `json:"document_id"`
	Status           domain.SyncStatus `json:"status"`
	SegmentsUpdated  int               `json:"segments_updated"`
	SegmentsMoved    int               `json:"segments_moved"`
	OrphanedSegments []string          `json:"orphaned_segments"`
	Conflicts        []SyncConflict    `json:"conflicts"`
}

// SyncDocument reconciles one document. Losing access to the source is
// an expected terminal state: the document is deactivated and a failed
// result returned without an error.
func (s *ReconcileService) SyncDocument(ctx context.Context, user *domain.User, documentID string) (*DocumentSyncResult, error) {
	doc, err := s.store.GetDocument(ctx, user.ID, documentID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("document")
		}
		return nil, err
	}

	result := &DocumentSyncResult{
		DocumentID:       doc.ID,
		Status:           domain.SyncStatusSuccess,
		OrphanedSegments: []string{},
		Conflicts:        []SyncConflict{},
	}

	creds := provider.Credentials{UserID: user.ID, RefreshToken: user.RefreshToken}
	snap, err := s.provider.FetchDocument(ctx, creds, doc.FileID)
	if err != nil {
		if apperrors.Is(err, provider.ErrNotFound) || apperrors.Is(err, provider.ErrAccessLost) {
			return s.deactivate(ctx, user.ID, doc, err)
		}
		s.logSync(ctx, user.ID, doc.ID, domain.SyncActionDocument, domain.SyncStatusFailed,
			map[string]any{"error": err.Error()})
		return nil, mapProviderError(err, doc.FileID)
	}

	markers := make(map[string]provider.Marker, len(snap.Markers))
	for _, m := range snap.Markers {
		markers[m.SegmentID] = m
	}

	segments, err := s.store.ListSegmentsByDocument(ctx, user.ID, doc.ID)
	if err != nil {
		return nil, err
	}

	var updates []store.SegmentSyncUpdate
	for _, seg := range segments {
		marker, ok := markers[seg.ID]
		if !ok {
			result.OrphanedSegments = append(result.OrphanedSegments, seg.ID)
			result.Conflicts = append(result.Conflicts, SyncConflict{
				Type:      ConflictOrphanedMarker,
				SegmentID: seg.ID,
				Detail:    fmt.Sprintf("marker for segment %s no longer exists in the document", seg.ID),
			})
			continue
		}

		text := snap.Slice(marker.StartOffset, marker.EndOffset)
		textChanged := text != seg.Text
		moved := marker.StartOffset != seg.StartOffset || marker.EndOffset != seg.EndOffset
		if !textChanged && !moved {
			continue
		}

		updates = append(updates, store.SegmentSyncUpdate{
			SegmentID:   seg.ID,
			StartOffset: marker.StartOffset,
			EndOffset:   marker.EndOffset,
			Text:        text,
		})
		if textChanged {
			result.SegmentsUpdated++
		} else {
			result.SegmentsMoved++
		}
	}

	if err := s.store.ApplyDocumentSync(ctx, user.ID, doc.ID, snap.Title, time.Now().UTC(), updates); err != nil {
		s.logSync(ctx, user.ID, doc.ID, domain.SyncActionDocument, domain.SyncStatusFailed,
			map[string]any{"error": err.Error()})
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "apply document sync")
	}

	if len(result.Conflicts) > 0 {
		result.Status = domain.SyncStatusPartial
	}
	s.logSync(ctx, user.ID, doc.ID, domain.SyncActionDocument, result.Status, map[string]any{
		"segments_updated": result.SegmentsUpdated,
		"segments_moved":   result.SegmentsMoved,
		"orphans":          len(result.OrphanedSegments),
	})
	return result, nil
}

// deactivate soft-deletes a document whose source is gone or no longer
// accessible.
func (s *ReconcileService) deactivate(ctx context.Context, userID string, doc *domain.Document, cause error) (*DocumentSyncResult, error) {
	s.logger.Info("document no longer accessible, deactivating",
		"document_id", doc.ID, "file_id", doc.FileID, "error", cause)

	if err := s.store.SetDocumentActive(ctx, userID, doc.ID, false); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "deactivate document")
	}
	s.logSync(ctx, userID, doc.ID, domain.SyncActionDocument, domain.SyncStatusFailed,
		map[string]any{"error": cause.Error(), "deactivated": true})

	return &DocumentSyncResult{
		DocumentID:       doc.ID,
		Status:           domain.SyncStatusFailed,
		OrphanedSegments: []string{},
		Conflicts:        []SyncConflict{},
	}, nil
}

// MarkerRepairResult reports how many markers were rewritten.
type MarkerRepairResult struct {
	DocumentID      string   `json:"document_id"`
	MarkersRepaired int      `json:"markers_repaired"`
	FailedSegments  []string `json:"failed_segments"`
}

// RepairMarkers re-creates missing document markers from stored segment
// offsets. Offsets beyond the current document length are clamped, so a
// repaired marker may cover less text than the segment stores; the next
// sync reconciles the difference.
func (s *ReconcileService) RepairMarkers(ctx context.Context, user *domain.User, documentID string) (*MarkerRepairResult, error) {
	doc, err := s.store.GetDocument(ctx, user.ID, documentID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("document")
		}
		return nil, err
	}

	creds := provider.Credentials{UserID: user.ID, RefreshToken: user.RefreshToken}
	snap, err := s.provider.FetchDocument(ctx, creds, doc.FileID)
	if err != nil {
		return nil, mapProviderError(err, doc.FileID)
	}

	present := make(map[string]bool, len(snap.Markers))
	for _, m := range snap.Markers {
		present[m.SegmentID] = true
	}

	segments, err := s.store.ListSegmentsByDocument(ctx, user.ID, doc.ID)
	if err != nil {
		return nil, err
	}

	result := &MarkerRepairResult{DocumentID: doc.ID, FailedSegments: []string{}}
	textLen := len([]rune(snap.Text))
	for _, seg := range segments {
		if present[seg.ID] {
			continue
		}

		start, end := seg.StartOffset, seg.EndOffset
		if start >= textLen {
			result.FailedSegments = append(result.FailedSegments, seg.ID)
			continue
		}
		if end > textLen {
			end = textLen
		}

		err := s.provider.CreateMarker(ctx, creds, doc.FileID, provider.Marker{
			Name:        provider.MarkerName(seg.ID),
			SegmentID:   seg.ID,
			StartOffset: start,
			EndOffset:   end,
		})
		if err != nil {
			s.logger.Warn("failed to repair segment marker",
				"segment_id", seg.ID, "document_id", doc.ID, "error", err)
			result.FailedSegments = append(result.FailedSegments, seg.ID)
			continue
		}
		result.MarkersRepaired++
	}

	status := domain.SyncStatusSuccess
	if len(result.FailedSegments) > 0 {
		status = domain.SyncStatusPartial
	}
	s.logSync(ctx, user.ID, doc.ID, domain.SyncActionMarkerRepair, status, map[string]any{
		"markers_repaired": result.MarkersRepaired,
		"failed":           len(result.FailedSegments),
	})
	return result, nil
}

// logSync appends an audit entry. Failures are logged, never surfaced:
// the audit trail is best effort.
func (s *ReconcileService) logSync(ctx context.Context, userID, documentID string, action domain.SyncAction, status domain.SyncStatus, details map[string]any) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = nil
	}
	entry := &domain.SyncLog{
		ID:         id.MustGenerate("synclog"),
		UserID:     userID,
		DocumentID: documentID,
		Action:     action,
		Status:     status,
		Details:    string(payload),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.AppendSyncLog(ctx, entry); err != nil {
		s.logger.Warn("failed to append sync log", "user_id", userID, "error", err)
	}
}
