package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/provider"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// SyncService reconciles a user's whole watch folder in one pass. At
// most one folder sync runs per user at a time; a second trigger while
// one is in flight is rejected with a conflict.
type SyncService struct {
	store      *store.Store
	provider   provider.Provider
	reconciler *ReconcileService
	documents  *DocumentService
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncService creates a sync service.
func NewSyncService(st *store.Store, p provider.Provider, reconciler *ReconcileService, documents *DocumentService, logger *slog.Logger) *SyncService {
	return &SyncService{
		store:      st,
		provider:   p,
		reconciler: reconciler,
		documents:  documents,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// SyncError records one document's failure inside an otherwise
// continuing folder sync.
type SyncError struct {
	FileID     string `json:"file_id"`
	DocumentID string `json:"document_id,omitempty"`
	Message    string `json:"message"`
}

// FullSyncResult aggregates one folder sync run.
type FullSyncResult struct {
	Status           domain.SyncStatus `json:"status"`
	DocumentsSynced  int               `json:"documents_synced"`
	DocumentsAdded   int               `json:"documents_added"`
	DocumentsRemoved int               `json:"documents_removed"`
	SegmentsUpdated  int               `json:"segments_updated"`
	OrphanedSegments []string          `json:"orphaned_segments"`
	Errors           []SyncError       `json:"errors"`
}

// userLock returns the per-user sync mutex, creating it on first use.
func (s *SyncService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// FullSync reconciles every document in the user's watch folder:
// registered files are synced, unknown files registered, and documents
// missing from the folder deactivated. A single document's failure is
// recorded and the run continues; only the folder listing itself is
// fatal.
func (s *SyncService) FullSync(ctx context.Context, user *domain.User) (*FullSyncResult, error) {
	if user.WatchFolderID == "" {
		return nil, apperrors.Validation("no watch folder configured")
	}

	lock := s.userLock(user.ID)
	if !lock.TryLock() {
		return nil, apperrors.Conflict("a sync is already running for this user")
	}
	defer lock.Unlock()

	creds := provider.Credentials{UserID: user.ID, RefreshToken: user.RefreshToken}
	files, err := s.provider.ListFolder(ctx, creds, user.WatchFolderID)
	if err != nil {
		s.reconciler.logSync(ctx, user.ID, "", domain.SyncActionFull, domain.SyncStatusFailed,
			map[string]any{"error": err.Error()})
		return nil, mapProviderError(err, user.WatchFolderID)
	}

	active, err := s.store.ListActiveDocuments(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	byFileID := make(map[string]*domain.Document, len(active))
	for _, doc := range active {
		byFileID[doc.FileID] = doc
	}

	result := &FullSyncResult{
		Status:           domain.SyncStatusSuccess,
		OrphanedSegments: []string{},
		Errors:           []SyncError{},
	}

	listed := make(map[string]bool, len(files))
	for _, file := range files {
		listed[file.ID] = true

		doc, known := byFileID[file.ID]
		if !known {
			if _, err := s.documents.Register(ctx, user, file.ID); err != nil {
				result.Errors = append(result.Errors, SyncError{FileID: file.ID, Message: err.Error()})
				continue
			}
			result.DocumentsAdded++
			continue
		}

		docResult, err := s.reconciler.SyncDocument(ctx, user, doc.ID)
		if err != nil {
			result.Errors = append(result.Errors, SyncError{
				FileID:     file.ID,
				DocumentID: doc.ID,
				Message:    err.Error(),
			})
			continue
		}
		result.DocumentsSynced++
		result.SegmentsUpdated += docResult.SegmentsUpdated + docResult.SegmentsMoved
		result.OrphanedSegments = append(result.OrphanedSegments, docResult.OrphanedSegments...)
	}

	for fileID, doc := range byFileID {
		if listed[fileID] {
			continue
		}
		if err := s.store.SetDocumentActive(ctx, user.ID, doc.ID, false); err != nil {
			result.Errors = append(result.Errors, SyncError{
				FileID:     fileID,
				DocumentID: doc.ID,
				Message:    err.Error(),
			})
			continue
		}
		result.DocumentsRemoved++
	}

	if len(result.Errors) > 0 {
		result.Status = domain.SyncStatusPartial
	}
	s.reconciler.logSync(ctx, user.ID, "", domain.SyncActionFull, result.Status, map[string]any{
		"documents_synced":  result.DocumentsSynced,
		"documents_added":   result.DocumentsAdded,
		"documents_removed": result.DocumentsRemoved,
		"segments_updated":  result.SegmentsUpdated,
		"errors":            len(result.Errors),
	})
	return result, nil
}

// Status returns the user's recent sync history, newest first.
func (s *SyncService) Status(ctx context.Context, userID string, page store.PageParams) ([]*domain.SyncLog, int, error) {
	return s.store.ListSyncLogs(ctx, userID, page)
}
