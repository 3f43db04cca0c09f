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

const maxCategoryNameLength = 50

// CategoryService manages a user's segment categories.
type CategoryService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewCategoryService creates a category service.
func NewCategoryService(st *store.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{store: st, logger: logger}
}

// Create adds a category. Names are unique per user.
func (s *CategoryService) Create(ctx context.Context, userID, name, icon string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("category name is required")
	}
	if len(name) > maxCategoryNameLength {
		return nil, apperrors.Validationf("category name exceeds %d characters", maxCategoryNameLength)
	}

	existing, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cat := &domain.Category{
		ID:        id.MustGenerate("cat"),
		UserID:    userID,
		Name:      name,
		Icon:      icon,
		SortOrder: len(existing),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCategory(ctx, cat); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflictf("category %q already exists", name)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "create category")
	}
	return cat, nil
}

// List returns the user's categories with live segment counts, in sort
// order.
func (s *CategoryService) List(ctx context.Context, userID string) ([]*domain.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

// CategoryUpdate carries category edits. Nil fields stay untouched.
type CategoryUpdate struct {
	Name *string
	Icon *string
}

// Update edits a category's name or icon.
func (s *CategoryService) Update(ctx context.Context, userID, categoryID string, input CategoryUpdate) (*domain.Category, error) {
	cat, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("category")
		}
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.Validation("category name is required")
		}
		if len(name) > maxCategoryNameLength {
			return nil, apperrors.Validationf("category name exceeds %d characters", maxCategoryNameLength)
		}
		cat.Name = name
	}
	if input.Icon != nil {
		cat.Icon = *input.Icon
	}

	cat.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateCategory(ctx, cat); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflictf("category %q already exists", cat.Name)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "update category")
	}
	return cat, nil
}

// Reorder applies a new sort order. orderedIDs must name every category
// the user has, exactly once.
func (s *CategoryService) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	existing, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(existing) {
		return apperrors.Validationf("reorder requires all %d category ids", len(existing))
	}
	known := make(map[string]bool, len(existing))
	for _, cat := range existing {
		known[cat.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, catID := range orderedIDs {
		if !known[catID] {
			return apperrors.NotFoundf("category %s", catID)
		}
		if seen[catID] {
			return apperrors.Validationf("duplicate category id %s", catID)
		}
		seen[catID] = true
	}

	if err := s.store.ReorderCategories(ctx, userID, orderedIDs); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "reorder categories")
	}
	return nil
}

// Delete removes a category. A category still referenced by segments
// needs migrateToID; its segments move there first. Self-migration is
// rejected.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID, migrateToID string) error {
	if migrateToID == categoryID {
		return apperrors.Validation("cannot migrate a category's segments to itself")
	}

	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("category")
		}
		return err
	}

	count, err := s.store.CountSegmentsInCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if count > 0 && migrateToID == "" {
		return apperrors.Conflictf("category has %d segments; provide migrate_to", count)
	}
	if migrateToID != "" {
		if _, err := s.store.GetCategory(ctx, userID, migrateToID); err != nil {
			if apperrors.Is(err, store.ErrNotFound) {
				return apperrors.NotFound("migration target category")
			}
			return err
		}
	}

	if err := s.store.DeleteCategory(ctx, userID, categoryID, migrateToID); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("category")
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "delete category")
	}
	return nil
}
