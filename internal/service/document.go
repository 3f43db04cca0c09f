package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/provider"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// DocumentService manages the local registry of provider documents.
type DocumentService struct {
	store    *store.Store
	provider provider.Provider
	logger   *slog.Logger
}

// NewDocumentService creates a document service.
func NewDocumentService(st *store.Store, p provider.Provider, logger *slog.Logger) *DocumentService {
	return &DocumentService{store: st, provider: p, logger: logger}
}

// Register adds a provider document to the user's registry, verifying
// access by fetching it once. Registering a file that was soft-deleted
// reactivates the existing row so its segments come back.
func (d *DocumentService) Register(ctx context.Context, user *domain.User, fileID string) (*domain.Document, error) {
	if fileID == "" {
		return nil, apperrors.Validation("file_id is required")
	}

	snap, err := d.provider.FetchDocument(ctx, provider.Credentials{
		UserID:       user.ID,
		RefreshToken: user.RefreshToken,
	}, fileID)
	if err != nil {
		return nil, mapProviderError(err, fileID)
	}

	existing, err := d.store.GetDocumentByFileID(ctx, user.ID, fileID)
	switch {
	case err == nil:
		if existing.IsActive {
			return nil, apperrors.AlreadyExists("document already registered")
		}
		if err := d.store.SetDocumentActive(ctx, user.ID, existing.ID, true); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "reactivate document")
		}
		existing.IsActive = true
		d.logger.Info("reactivated document", "user_id", user.ID, "document_id", existing.ID)
		return existing, nil

	case apperrors.Is(err, store.ErrNotFound):
		now := time.Now().UTC()
		doc := &domain.Document{
			ID:        id.MustGenerate("doc"),
			UserID:    user.ID,
			FileID:    fileID,
			Title:     snap.Title,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := d.store.CreateDocument(ctx, doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create document")
		}
		d.logger.Info("registered document", "user_id", user.ID, "document_id", doc.ID, "title", doc.Title)
		return doc, nil

	default:
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "look up document")
	}
}

// Get loads one document.
func (d *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := d.store.GetDocument(ctx, userID, documentID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("document")
		}
		return nil, err
	}
	return doc, nil
}

// List returns the user's documents. activeOnly hides soft-deleted rows.
func (d *DocumentService) List(ctx context.Context, userID string, activeOnly bool, page store.PageParams) ([]*domain.Document, int, error) {
	return d.store.ListDocuments(ctx, userID, activeOnly, page)
}

// Delete removes a document from the registry. cascade hard-deletes the
// document with all its segments; otherwise the document must have no
// segments left.
func (d *DocumentService) Delete(ctx context.Context, userID, documentID string, cascade bool) error {
	doc, err := d.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if !cascade {
		segments, err := d.store.ListSegmentsByDocument(ctx, userID, doc.ID)
		if err != nil {
			return err
		}
		if len(segments) > 0 {
			return apperrors.Conflictf("document still has %d segments, delete them or pass cascade", len(segments))
		}
	}

	if err := d.store.DeleteDocument(ctx, userID, doc.ID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("document")
		}
		return err
	}
	return nil
}

// Segments lists a document's segments in position order.
func (d *DocumentService) Segments(ctx context.Context, userID, documentID string) ([]*domain.Segment, error) {
	if _, err := d.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return d.store.ListSegmentsByDocument(ctx, userID, documentID)
}

// mapProviderError translates provider sentinels into API errors.
func mapProviderError(err error, fileID string) error {
	switch {
	case apperrors.Is(err, provider.ErrNotFound):
		return apperrors.NotFoundf("provider file %s not found", fileID)
	case apperrors.Is(err, provider.ErrAccessLost):
		return apperrors.ProviderAccess("access to the document was revoked or the grant expired")
	case apperrors.Is(err, provider.ErrRateLimited):
		return apperrors.Conflict("provider rate limit hit, retry shortly")
	default:
		return apperrors.Wrap(err, apperrors.CodeInternal, "provider request failed")
	}
}
