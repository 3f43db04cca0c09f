package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

const tagColumns = `id, user_id, name, type, created_at, updated_at`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var tag domain.Tag

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&tag.ID,
		&tag.UserID,
		&tag.Name,
		&tag.Type,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tag.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tag.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &tag, nil
}

// CreateTag inserts a tag. Returns ErrAlreadyExists on a duplicate name
// for the same user.
func (s *Store) CreateTag(ctx context.Context, tag *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tag.ID,
		tag.UserID,
		tag.Name,
		string(tag.Type),
		formatTime(tag.CreatedAt),
		formatTime(tag.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTag retrieves a single tag owned by the user.
func (s *Store) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)

	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTagByName looks a tag up by its exact name.
func (s *Store) GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name = ?`, userID, name)

	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTagsByIDs returns the user's tags matching ids, keyed by id.
func (s *Store) GetTagsByIDs(ctx context.Context, userID string, ids []string) (map[string]*domain.Tag, error) {
	result := make(map[string]*domain.Tag, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := append([]any{userID}, toAnySlice(ids)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		result[tag.ID] = tag
	}
	return result, rows.Err()
}

// ListTags returns the user's tags with segment counts, optionally
// filtered by type, ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string, tagType domain.TagType) ([]*domain.Tag, error) {
	query := `
		SELECT t.id, t.user_id, t.name, t.type, t.created_at, t.updated_at,
		       COUNT(st.segment_id)
		FROM tags t
		LEFT JOIN segment_tags st ON st.tag_id = t.id
		WHERE t.user_id = ?`
	args := []any{userID}
	if tagType != "" {
		query += ` AND t.type = ?`
		args = append(args, string(tagType))
	}
	query += ` GROUP BY t.id ORDER BY t.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		var (
			createdAt string
			updatedAt string
		)
		err := rows.Scan(
			&tag.ID,
			&tag.UserID,
			&tag.Name,
			&tag.Type,
			&createdAt,
			&updatedAt,
			&tag.SegmentCount,
		)
		if err != nil {
			return nil, err
		}
		if tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if tag.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}

// AutocompleteTags returns up to limit tags whose name starts with the
// given prefix, most used first.
func (s *Store) AutocompleteTags(ctx context.Context, userID, prefix string, limit int) ([]*domain.Tag, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := escapeLike(prefix) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.type, t.created_at, t.updated_at,
		       COUNT(st.segment_id) AS uses
		FROM tags t
		LEFT JOIN segment_tags st ON st.tag_id = t.id
		WHERE t.user_id = ? AND t.name LIKE ? ESCAPE '\'
		GROUP BY t.id
		ORDER BY uses DESC, t.name ASC
		LIMIT ?`,
		userID, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		var (
			createdAt string
			updatedAt string
		)
		err := rows.Scan(
			&tag.ID,
			&tag.UserID,
			&tag.Name,
			&tag.Type,
			&createdAt,
			&updatedAt,
			&tag.SegmentCount,
		)
		if err != nil {
			return nil, err
		}
		if tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if tag.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// UpdateTag persists name and type.
func (s *Store) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = ?, type = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		tag.Name, string(tag.Type), formatTime(tag.UpdatedAt),
		tag.ID, tag.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return requireRowAffected(res)
}

// DeleteTag removes a tag; segment_tags rows cascade. Segments that
// carried the tag are reindexed after the delete.
func (s *Store) DeleteTag(ctx context.Context, userID, tagID string) error {
	segmentIDs, err := s.segmentIDsForTag(ctx, tagID)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	for _, segmentID := range segmentIDs {
		seg, tagIDs, err := s.getSegmentWithTags(ctx, userID, segmentID)
		if err != nil {
			s.logger.Warn("failed to reload segment after tag delete", "segment_id", segmentID, "error", err)
			continue
		}
		s.indexSegment(ctx, seg, tagIDs)
	}

	return nil
}

// GetTagsForSegments returns tags grouped by segment id, for response
// hydration.
func (s *Store) GetTagsForSegments(ctx context.Context, segmentIDs []string) (map[string][]*domain.Tag, error) {
	result := make(map[string][]*domain.Tag, len(segmentIDs))
	if len(segmentIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT st.segment_id, t.id, t.user_id, t.name, t.type, t.created_at, t.updated_at
		FROM segment_tags st
		JOIN tags t ON t.id = st.tag_id
		WHERE st.segment_id IN (`+placeholders(len(segmentIDs))+`)
		ORDER BY t.name ASC`,
		toAnySlice(segmentIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var segmentID string
		var tag domain.Tag
		var (
			createdAt string
			updatedAt string
		)
		err := rows.Scan(
			&segmentID,
			&tag.ID,
			&tag.UserID,
			&tag.Name,
			&tag.Type,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, err
		}
		if tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if tag.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		result[segmentID] = append(result[segmentID], &tag)
	}
	return result, rows.Err()
}

func (s *Store) segmentIDsForTag(ctx context.Context, tagID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_id FROM segment_tags WHERE tag_id = ?`, tagID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EnsureTags resolves tag names to ids, creating any that do not exist
// yet. Used by bulk tagging. All creations share one transaction.
func (s *Store) EnsureTags(ctx context.Context, userID string, tags []*domain.Tag) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		var id string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM tags WHERE user_id = ? AND name = ?`, userID, tag.Name).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tags (id, user_id, name, type, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				tag.ID,
				userID,
				tag.Name,
				string(tag.Type),
				formatTime(tag.CreatedAt),
				formatTime(tag.UpdatedAt),
			)
			if err != nil {
				return nil, fmt.Errorf("create tag %s: %w", tag.Name, err)
			}
			ids = append(ids, tag.ID)
		case err != nil:
			return nil, err
		default:
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}
