package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

const categoryColumns = `id, user_id, name, icon, sort_order, is_default, created_at, updated_at`

func scanCategory(scanner interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	var cat domain.Category

	var (
		isDefault int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&cat.ID,
		&cat.UserID,
		&cat.Name,
		&cat.Icon,
		&cat.SortOrder,
		&isDefault,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cat.IsDefault = isDefault != 0

	if cat.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if cat.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &cat, nil
}

// CreateCategory inserts a category. Returns ErrAlreadyExists when the
// user already has a category with that name.
func (s *Store) CreateCategory(ctx context.Context, cat *domain.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, icon, sort_order, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cat.ID,
		cat.UserID,
		cat.Name,
		cat.Icon,
		cat.SortOrder,
		boolToInt(cat.IsDefault),
		formatTime(cat.CreatedAt),
		formatTime(cat.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SeedDefaultCategories creates the starter set for a new user. Runs in
// one transaction so a half-seeded user never exists.
func (s *Store) SeedDefaultCategories(ctx context.Context, userID string, categories []*domain.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, cat := range categories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, user_id, name, icon, sort_order, is_default, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			cat.ID,
			userID,
			cat.Name,
			cat.Icon,
			cat.SortOrder,
			boolToInt(cat.IsDefault),
			formatTime(cat.CreatedAt),
			formatTime(cat.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", cat.Name, err)
		}
	}

	return tx.Commit()
}

// GetCategory retrieves a single category owned by the user.
func (s *Store) GetCategory(ctx context.Context, userID, categoryID string) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID)

	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// ListCategories returns the user's categories ordered by sort order,
// each with its current segment count.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.name, c.icon, c.sort_order, c.is_default, c.created_at, c.updated_at,
		       COUNT(seg.id)
		FROM categories c
		LEFT JOIN segments seg ON seg.category_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY c.sort_order ASC, c.name ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		var cat domain.Category
		var (
			isDefault int
			createdAt string
			updatedAt string
		)
		err := rows.Scan(
			&cat.ID,
			&cat.UserID,
			&cat.Name,
			&cat.Icon,
			&cat.SortOrder,
			&isDefault,
			&createdAt,
			&updatedAt,
			&cat.SegmentCount,
		)
		if err != nil {
			return nil, err
		}
		cat.IsDefault = isDefault != 0
		if cat.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if cat.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, &cat)
	}
	return categories, rows.Err()
}

// UpdateCategory persists name, icon and sort order.
func (s *Store) UpdateCategory(ctx context.Context, cat *domain.Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, sort_order = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		cat.Name, cat.Icon, cat.SortOrder, formatTime(cat.UpdatedAt),
		cat.ID, cat.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return requireRowAffected(res)
}

// ReorderCategories applies a new sort order in one transaction. orderedIDs
// holds every category id of the user in the desired order.
func (s *Store) ReorderCategories(ctx context.Context, userID string, orderedIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE categories SET sort_order = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			i, now, id, userID)
		if err != nil {
			return err
		}
		if err := requireRowAffected(res); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CountSegmentsInCategory returns how many segments reference a category.
func (s *Store) CountSegmentsInCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM segments WHERE category_id = ?`, categoryID).Scan(&n)
	return n, err
}

// DeleteCategory removes a category. When migrateToID is set, segments in
// the category move there first, in the same transaction. Affected
// segments are reindexed after commit.
func (s *Store) DeleteCategory(ctx context.Context, userID, categoryID, migrateToID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var migrated []string
	if migrateToID != "" {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM segments WHERE category_id = ? AND user_id = ?`, categoryID, userID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			migrated = append(migrated, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		now := formatTime(time.Now())
		_, err = tx.ExecContext(ctx,
			`UPDATE segments SET category_id = ?, updated_at = ? WHERE category_id = ? AND user_id = ?`,
			migrateToID, now, categoryID, userID)
		if err != nil {
			return fmt.Errorf("migrate segments: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, segmentID := range migrated {
		seg, tagIDs, err := s.getSegmentWithTags(ctx, userID, segmentID)
		if err != nil {
			s.logger.Warn("failed to reload migrated segment for indexing", "segment_id", segmentID, "error", err)
			continue
		}
		s.indexSegment(ctx, seg, tagIDs)
	}

	return nil
}
