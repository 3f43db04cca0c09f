package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// AssociationService manages typed edges between segments. Copying
// association types (derivative, callback) can spawn a non-primary
// copy of the source segment as the edge target.
type AssociationService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewAssociationService creates an association service.
func NewAssociationService(st *store.Store, logger *slog.Logger) *AssociationService {
	return &AssociationService{store: st, logger: logger}
}

// AssociateInput links a source segment to a target. An empty
// TargetSegmentID with a copying type spawns a copy of the source.
type AssociateInput struct {
	TargetSegmentID string
	Type            domain.AssociationType
}

// AssociateResult is a created edge, plus the copy segment when the
// association spawned one.
type AssociateResult struct {
	Association    *domain.SegmentAssociation `json:"association"`
	CreatedSegment *domain.Segment            `json:"created_segment,omitempty"`
}

// Associate creates a typed edge from the given segment.
func (s *AssociationService) Associate(ctx context.Context, userID, sourceID string, input AssociateInput) (*AssociateResult, error) {
	if !input.Type.Valid() {
		return nil, apperrors.Validationf("invalid association type %q", input.Type)
	}

	source, err := s.store.GetSegment(ctx, userID, sourceID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("segment")
		}
		return nil, err
	}

	var created *domain.Segment
	targetID := input.TargetSegmentID
	switch {
	case targetID == "":
		if !input.Type.CreatesCopy() {
			return nil, apperrors.Validationf("%s associations require a target segment", input.Type)
		}
		created, err = s.spawnCopy(ctx, source)
		if err != nil {
			return nil, err
		}
		targetID = created.ID
	case targetID == sourceID:
		return nil, apperrors.Validation("segment cannot be associated with itself")
	default:
		if _, err := s.store.GetSegment(ctx, userID, targetID); err != nil {
			if apperrors.Is(err, store.ErrNotFound) {
				return nil, apperrors.NotFound("target segment")
			}
			return nil, err
		}
	}

	assoc := &domain.SegmentAssociation{
		ID:        id.MustGenerate("assoc"),
		UserID:    userID,
		SourceID:  sourceID,
		TargetID:  targetID,
		Type:      input.Type,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAssociation(ctx, assoc); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflict("segments are already associated")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create association")
	}

	return &AssociateResult{Association: assoc, CreatedSegment: created}, nil
}

// spawnCopy duplicates the source as a non-primary segment, inheriting
// its location, category, color and tags.
func (s *AssociationService) spawnCopy(ctx context.Context, source *domain.Segment) (*domain.Segment, error) {
	tagIDs, err := s.store.GetSegmentTagIDs(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	copySeg := &domain.Segment{
		ID:          id.MustGenerate("seg"),
		UserID:      source.UserID,
		DocumentID:  source.DocumentID,
		CategoryID:  source.CategoryID,
		StartOffset: source.StartOffset,
		EndOffset:   source.EndOffset,
		Text:        source.Text,
		WordCount:   source.WordCount,
		Title:       source.Title,
		Color:       source.Color,
		IsPrimary:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateSegment(ctx, copySeg, tagIDs); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create copy segment")
	}
	return copySeg, nil
}

// List returns every edge touching the segment, in either direction.
func (s *AssociationService) List(ctx context.Context, userID, segmentID string) ([]*domain.SegmentAssociation, error) {
	if _, err := s.store.GetSegment(ctx, userID, segmentID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("segment")
		}
		return nil, err
	}
	return s.store.ListAssociations(ctx, userID, segmentID)
}

// Delete removes a single edge. Segments on either end are untouched.
func (s *AssociationService) Delete(ctx context.Context, userID, associationID string) error {
	if err := s.store.DeleteAssociation(ctx, userID, associationID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("association")
		}
		return err
	}
	return nil
}
