package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/store"
)

const (
	maxTagNameLength     = 50
	autocompleteMaxLimit = 25
)

// TagService manages a user's tags and bulk tagging of segments.
type TagService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewTagService creates a tag service.
func NewTagService(st *store.Store, logger *slog.Logger) *TagService {
	return &TagService{store: st, logger: logger}
}

func normalizeTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Validation("tag name is required")
	}
	if len(name) > maxTagNameLength {
		return "", apperrors.Validationf("tag name exceeds %d characters", maxTagNameLength)
	}
	return strings.ToLower(name), nil
}

// Create adds a tag. Names are unique per user and stored lowercase.
func (s *TagService) Create(ctx context.Context, userID, name string, tagType domain.TagType) (*domain.Tag, error) {
	name, err := normalizeTagName(name)
	if err != nil {
		return nil, err
	}
	if !tagType.Valid() {
		return nil, apperrors.Validationf("invalid tag type %q", tagType)
	}

	now := time.Now().UTC()
	tag := &domain.Tag{
		ID:        id.MustGenerate("tag"),
		UserID:    userID,
		Name:      name,
		Type:      tagType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflictf("tag %q already exists", name)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create tag")
	}
	return tag, nil
}

// List returns the user's tags with segment counts, optionally filtered
// by type.
func (s *TagService) List(ctx context.Context, userID string, tagType domain.TagType) ([]*domain.Tag, error) {
	if !tagType.Valid() {
		return nil, apperrors.Validationf("invalid tag type %q", tagType)
	}
	return s.store.ListTags(ctx, userID, tagType)
}

// Autocomplete returns tags matching a name prefix, most used first.
func (s *TagService) Autocomplete(ctx context.Context, userID, prefix string, limit int) ([]*domain.Tag, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []*domain.Tag{}, nil
	}
	if limit <= 0 || limit > autocompleteMaxLimit {
		limit = autocompleteMaxLimit
	}
	return s.store.AutocompleteTags(ctx, userID, prefix, limit)
}

// TagUpdate carries tag edits. Nil fields stay untouched.
type TagUpdate struct {
	Name *string
	Type *domain.TagType
}

// Update renames or reclassifies a tag.
func (s *TagService) Update(ctx context.Context, userID, tagID string, input TagUpdate) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, userID, tagID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("tag")
		}
		return nil, err
	}

	if input.Name != nil {
		name, err := normalizeTagName(*input.Name)
		if err != nil {
			return nil, err
		}
		tag.Name = name
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, apperrors.Validationf("invalid tag type %q", *input.Type)
		}
		tag.Type = *input.Type
	}

	tag.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflictf("tag %q already exists", tag.Name)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "update tag")
	}
	return tag, nil
}

// Delete removes a tag and detaches it from every segment.
func (s *TagService) Delete(ctx context.Context, userID, tagID string) error {
	if err := s.store.DeleteTag(ctx, userID, tagID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("tag")
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "delete tag")
	}
	return nil
}

// BulkTagResult reports a bulk tagging run.
type BulkTagResult struct {
	TagIDs          []string `json:"tag_ids"`
	SegmentsTagged  int      `json:"segments_tagged"`
	SegmentsSkipped []string `json:"segments_skipped,omitempty"`
}

// BulkTag attaches the named tags to every given segment, creating tags
// that don't exist yet. Existing segment tags are kept. Segments not
// owned by the user are skipped and reported, not fatal.
func (s *TagService) BulkTag(ctx context.Context, userID string, segmentIDs, tagNames []string, tagType domain.TagType) (*BulkTagResult, error) {
	if len(segmentIDs) == 0 {
		return nil, apperrors.Validation("segment_ids is required")
	}
	if len(tagNames) == 0 {
		return nil, apperrors.Validation("tag_names is required")
	}
	if !tagType.Valid() {
		return nil, apperrors.Validationf("invalid tag type %q", tagType)
	}

	now := time.Now().UTC()
	tags := make([]*domain.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		name, err := normalizeTagName(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, &domain.Tag{
			ID:        id.MustGenerate("tag"),
			UserID:    userID,
			Name:      name,
			Type:      tagType,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	tagIDs, err := s.store.EnsureTags(ctx, userID, tags)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "ensure tags")
	}

	result := &BulkTagResult{TagIDs: tagIDs}
	for _, segmentID := range segmentIDs {
		existing, err := s.store.GetSegmentTagIDs(ctx, segmentID)
		if err != nil {
			return nil, err
		}
		merged := mergeIDs(existing, tagIDs)

		if err := s.store.SetSegmentTags(ctx, userID, segmentID, merged); err != nil {
			if apperrors.Is(err, store.ErrNotFound) {
				result.SegmentsSkipped = append(result.SegmentsSkipped, segmentID)
				continue
			}
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "tag segment")
		}
		result.SegmentsTagged++
	}
	return result, nil
}

// mergeIDs unions two id lists preserving first-seen order.
func mergeIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
