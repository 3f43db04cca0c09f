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

// SegmentService owns the segment lifecycle: capture from a document
// selection, edits, tagging and deletion. Every capture and offset edit
// round-trips through the provider so the stored text matches the
// source and the marker anchors the selection for future syncs.
type SegmentService struct {
	store     *store.Store
	provider  provider.Provider
	documents *DocumentService
	colors    *ColorService
	logger    *slog.Logger
}

// NewSegmentService creates a segment service.
func NewSegmentService(st *store.Store, p provider.Provider, documents *DocumentService, colors *ColorService, logger *slog.Logger) *SegmentService {
	return &SegmentService{
		store:     st,
		provider:  p,
		documents: documents,
		colors:    colors,
		logger:    logger,
	}
}

// CaptureInput describes a new segment. Exactly one of DocumentID or
// FileID locates the source; an unknown FileID registers the document
// on the fly.
type CaptureInput struct {
	DocumentID  string
	FileID      string
	StartOffset int
	EndOffset   int
	CategoryID  string
	Title       string
	Color       string
	TagIDs      []string
}

// SegmentDetail is a segment with its relations hydrated.
type SegmentDetail struct {
	Segment      *domain.Segment              `json:"segment"`
	Tags         []*domain.Tag                `json:"tags"`
	Associations []*domain.SegmentAssociation `json:"associations"`
}

// Capture creates a segment over a selection of a provider document.
func (s *SegmentService) Capture(ctx context.Context, user *domain.User, input CaptureInput) (*domain.Segment, error) {
	if input.StartOffset < 0 || input.EndOffset <= input.StartOffset {
		return nil, apperrors.Validation("end_offset must be greater than start_offset")
	}
	if input.CategoryID == "" {
		return nil, apperrors.Validation("category_id is required")
	}
	if input.Color != "" && !domain.ValidHexColor(input.Color) {
		return nil, apperrors.Validationf("invalid color %q", input.Color)
	}

	if _, err := s.store.GetCategory(ctx, user.ID, input.CategoryID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("category")
		}
		return nil, err
	}
	if err := s.checkTagOwnership(ctx, user.ID, input.TagIDs); err != nil {
		return nil, err
	}

	doc, err := s.resolveDocument(ctx, user, input.DocumentID, input.FileID)
	if err != nil {
		return nil, err
	}

	creds := provider.Credentials{UserID: user.ID, RefreshToken: user.RefreshToken}
	snap, err := s.provider.FetchDocument(ctx, creds, doc.FileID)
	if err != nil {
		return nil, mapProviderError(err, doc.FileID)
	}

	text := snap.Slice(input.StartOffset, input.EndOffset)
	if text == "" {
		return nil, apperrors.Validation("selection is outside the document")
	}

	color := input.Color
	if color == "" {
		color, err = s.colors.AssignColor(ctx, user, doc.ID, "")
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "assign color")
		}
	}

	now := time.Now().UTC()
	seg := &domain.Segment{
		ID:          id.MustGenerate("seg"),
		UserID:      user.ID,
		DocumentID:  doc.ID,
		CategoryID:  input.CategoryID,
		StartOffset: input.StartOffset,
		EndOffset:   input.EndOffset,
		Text:        text,
		WordCount:   domain.CountWords(text),
		Title:       input.Title,
		Color:       color,
		IsPrimary:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateSegment(ctx, seg, input.TagIDs); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create segment")
	}
	s.colors.RecordUse(ctx, user.ID, color)

	// Marker write failures leave the segment orphaned until the next
	// marker repair, not failed.
	err = s.provider.CreateMarker(ctx, creds, doc.FileID, provider.Marker{
		Name:        provider.MarkerName(seg.ID),
		SegmentID:   seg.ID,
		StartOffset: seg.StartOffset,
		EndOffset:   seg.EndOffset,
	})
	if err != nil {
		s.logger.Warn("failed to write segment marker",
			"segment_id", seg.ID, "document_id", doc.ID, "error", err)
	}

	return seg, nil
}

// resolveDocument finds the registered document, auto-registering by
// file id when needed.
func (s *SegmentService) resolveDocument(ctx context.Context, user *domain.User, documentID, fileID string) (*domain.Document, error) {
	switch {
	case documentID != "":
		return s.documents.Get(ctx, user.ID, documentID)
	case fileID != "":
		doc, err := s.store.GetDocumentByFileID(ctx, user.ID, fileID)
		if err == nil {
			if !doc.IsActive {
				return s.documents.Register(ctx, user, fileID)
			}
			return doc, nil
		}
		if apperrors.Is(err, store.ErrNotFound) {
			return s.documents.Register(ctx, user, fileID)
		}
		return nil, err
	default:
		return nil, apperrors.Validation("document_id or file_id is required")
	}
}

func (s *SegmentService) checkTagOwnership(ctx context.Context, userID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	tags, err := s.store.GetTagsByIDs(ctx, userID, tagIDs)
	if err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, ok := tags[tagID]; !ok {
			return apperrors.NotFoundf("tag %s", tagID)
		}
	}
	return nil
}

// Get loads a segment with tags and associations.
func (s *SegmentService) Get(ctx context.Context, userID, segmentID string) (*SegmentDetail, error) {
	seg, err := s.store.GetSegment(ctx, userID, segmentID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("segment")
		}
		return nil, err
	}

	tagsBySegment, err := s.store.GetTagsForSegments(ctx, []string{segmentID})
	if err != nil {
		return nil, err
	}
	associations, err := s.store.ListAssociations(ctx, userID, segmentID)
	if err != nil {
		return nil, err
	}

	tags := tagsBySegment[segmentID]
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return &SegmentDetail{Segment: seg, Tags: tags, Associations: associations}, nil
}

// ListItem is one row of a segment listing.
type ListItem struct {
	Segment          *domain.Segment `json:"segment"`
	Tags             []*domain.Tag   `json:"tags"`
	AssociationCount int             `json:"association_count"`
}

// List returns the user's segments with tags and association counts.
func (s *SegmentService) List(ctx context.Context, userID string, filter store.SegmentListFilter, page store.PageParams) ([]*ListItem, int, error) {
	segments, total, err := s.store.ListSegments(ctx, userID, filter, page)
	if err != nil {
		return nil, 0, err
	}

	items, err := s.hydrate(ctx, segments)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// hydrate attaches tags and association counts to segments.
func (s *SegmentService) hydrate(ctx context.Context, segments []*domain.Segment) ([]*ListItem, error) {
	ids := make([]string, len(segments))
	for i, seg := range segments {
		ids[i] = seg.ID
	}

	tags, err := s.store.GetTagsForSegments(ctx, ids)
	if err != nil {
		return nil, err
	}
	assocCounts, err := s.store.CountAssociationsForSegments(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*ListItem, len(segments))
	for i, seg := range segments {
		segTags := tags[seg.ID]
		if segTags == nil {
			segTags = []*domain.Tag{}
		}
		items[i] = &ListItem{
			Segment:          seg,
			Tags:             segTags,
			AssociationCount: assocCounts[seg.ID],
		}
	}
	return items, nil
}

// UpdateInput carries segment edits. Nil fields stay untouched.
type UpdateInput struct {
	Title       *string
	CategoryID  *string
	Color       *string
	IsPrimary   *bool
	StartOffset *int
	EndOffset   *int
}

// Update edits a segment. Changing the offsets re-reads the selection
// from the provider and moves the marker.
func (s *SegmentService) Update(ctx context.Context, user *domain.User, segmentID string, input UpdateInput) (*domain.Segment, error) {
	seg, err := s.store.GetSegment(ctx, user.ID, segmentID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("segment")
		}
		return nil, err
	}

	if input.Title != nil {
		seg.Title = *input.Title
	}
	if input.CategoryID != nil && *input.CategoryID != seg.CategoryID {
		if _, err := s.store.GetCategory(ctx, user.ID, *input.CategoryID); err != nil {
			if apperrors.Is(err, store.ErrNotFound) {
				return nil, apperrors.NotFound("category")
			}
			return nil, err
		}
		seg.CategoryID = *input.CategoryID
	}
	colorChanged := false
	if input.Color != nil && *input.Color != seg.Color {
		if !domain.ValidHexColor(*input.Color) {
			return nil, apperrors.Validationf("invalid color %q", *input.Color)
		}
		seg.Color = *input.Color
		colorChanged = true
	}
	if input.IsPrimary != nil {
		seg.IsPrimary = *input.IsPrimary
	}

	offsetsChanged := false
	if input.StartOffset != nil {
		seg.StartOffset = *input.StartOffset
		offsetsChanged = true
	}
	if input.EndOffset != nil {
		seg.EndOffset = *input.EndOffset
		offsetsChanged = true
	}

	if offsetsChanged {
		if seg.StartOffset < 0 || seg.EndOffset <= seg.StartOffset {
			return nil, apperrors.Validation("end_offset must be greater than start_offset")
		}

		doc, err := s.documents.Get(ctx, user.ID, seg.DocumentID)
		if err != nil {
			return nil, err
		}

		creds := provider.Credentials{UserID: user.ID, RefreshToken: user.RefreshToken}
		snap, err := s.provider.FetchDocument(ctx, creds, doc.FileID)
		if err != nil {
			return nil, mapProviderError(err, doc.FileID)
		}

		text := snap.Slice(seg.StartOffset, seg.EndOffset)
		if text == "" {
			return nil, apperrors.Validation("selection is outside the document")
		}
		seg.Text = text
		seg.WordCount = domain.CountWords(text)

		err = s.provider.CreateMarker(ctx, creds, doc.FileID, provider.Marker{
			Name:        provider.MarkerName(seg.ID),
			SegmentID:   seg.ID,
			StartOffset: seg.StartOffset,
			EndOffset:   seg.EndOffset,
		})
		if err != nil {
			s.logger.Warn("failed to move segment marker",
				"segment_id", seg.ID, "document_id", doc.ID, "error", err)
		}
	}

	seg.Touch()
	if err := s.store.UpdateSegment(ctx, seg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "update segment")
	}

	if colorChanged {
		s.propagateColor(ctx, user.ID, seg.ID, seg.Color)
	}
	return seg, nil
}

// propagateColor pushes a color change to the segment's direct
// association-created children. Only one level deep; grandchildren keep
// their own color.
func (s *SegmentService) propagateColor(ctx context.Context, userID, segmentID, color string) {
	childIDs, err := s.store.AssociationChildIDs(ctx, userID, segmentID)
	if err != nil {
		s.logger.Warn("failed to load association children for color propagation",
			"segment_id", segmentID, "error", err)
		return
	}
	for _, childID := range childIDs {
		child, err := s.store.GetSegment(ctx, userID, childID)
		if err != nil {
			continue
		}
		child.Color = color
		child.Touch()
		if err := s.store.UpdateSegment(ctx, child); err != nil {
			s.logger.Warn("failed to propagate color to child segment",
				"segment_id", childID, "error", err)
		}
	}
}

// Delete removes a segment and its provider marker. cascade also removes
// segments created from it through copying associations; without it,
// those are promoted to standalone.
func (s *SegmentService) Delete(ctx context.Context, user *domain.User, segmentID string, cascade bool) error {
	seg, err := s.store.GetSegment(ctx, user.ID, segmentID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("segment")
		}
		return err
	}

	doc, err := s.store.GetDocument(ctx, user.ID, seg.DocumentID)
	if err == nil && doc.IsActive {
		creds := provider.Credentials{UserID: user.ID, RefreshToken: user.RefreshToken}
		err := s.provider.DeleteMarkers(ctx, creds, doc.FileID, []string{provider.MarkerName(seg.ID)})
		if err != nil {
			s.logger.Warn("failed to delete segment marker",
				"segment_id", seg.ID, "document_id", doc.ID, "error", err)
		}
	}

	if err := s.store.DeleteSegment(ctx, user.ID, segmentID, cascade); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("segment")
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "delete segment")
	}
	return nil
}

// SetTags replaces a segment's tag set.
func (s *SegmentService) SetTags(ctx context.Context, userID, segmentID string, tagIDs []string) error {
	if err := s.checkTagOwnership(ctx, userID, tagIDs); err != nil {
		return err
	}
	if err := s.store.SetSegmentTags(ctx, userID, segmentID, tagIDs); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("segment")
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "set segment tags")
	}
	return nil
}
