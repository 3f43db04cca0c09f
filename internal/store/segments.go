package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

// segmentColumns is the ordered list of columns selected in segment queries.
// Must match the scan order in scanSegment.
const segmentColumns = `id, user_id, document_id, category_id, start_offset, end_offset, text, word_count, title, color, is_primary, created_at, updated_at`

// scanSegment scans a sql.Row (or sql.Rows via its Scan method) into a domain.Segment.
func scanSegment(scanner interface{ Scan(dest ...any) error }) (*domain.Segment, error) {
	var seg domain.Segment

	var (
		isPrimary int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&seg.ID,
		&seg.UserID,
		&seg.DocumentID,
		&seg.CategoryID,
		&seg.StartOffset,
		&seg.EndOffset,
		&seg.Text,
		&seg.WordCount,
		&seg.Title,
		&seg.Color,
		&isPrimary,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	seg.IsPrimary = isPrimary != 0

	if seg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if seg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &seg, nil
}

// CreateSegment inserts a segment and its tag links in one transaction,
// then feeds the new segment into the search index.
func (s *Store) CreateSegment(ctx context.Context, seg *domain.Segment, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertSegment(ctx, tx, seg); err != nil {
		return err
	}

	now := formatTime(time.Now())
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO segment_tags (segment_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			seg.ID, tagID, now)
		if err != nil {
			return fmt.Errorf("insert segment_tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.indexSegment(ctx, seg, tagIDs)
	return nil
}

// insertSegment inserts one segment row within a transaction.
func insertSegment(ctx context.Context, tx *sql.Tx, seg *domain.Segment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO segments (id, user_id, document_id, category_id, start_offset, end_offset, text, word_count, title, color, is_primary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.ID,
		seg.UserID,
		seg.DocumentID,
		seg.CategoryID,
		seg.StartOffset,
		seg.EndOffset,
		seg.Text,
		seg.WordCount,
		seg.Title,
		seg.Color,
		boolToInt(seg.IsPrimary),
		formatTime(seg.CreatedAt),
		formatTime(seg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// GetSegment retrieves a segment owned by the given user.
// Returns ErrNotFound when absent or owned by someone else.
func (s *Store) GetSegment(ctx context.Context, userID, segmentID string) (*domain.Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = ? AND user_id = ?`,
		segmentID, userID)

	seg, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// GetSegmentsByIDs returns the user's segments matching ids, keyed by id.
// Missing ids are simply absent from the map.
func (s *Store) GetSegmentsByIDs(ctx context.Context, userID string, ids []string) (map[string]*domain.Segment, error) {
	result := make(map[string]*domain.Segment, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := append([]any{userID}, toAnySlice(ids)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		result[seg.ID] = seg
	}
	return result, rows.Err()
}

// ListSegmentsByDocument returns all segments in a document, ordered by
// position.
func (s *Store) ListSegmentsByDocument(ctx context.Context, userID, documentID string) ([]*domain.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE user_id = ? AND document_id = ? ORDER BY start_offset ASC`,
		userID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	segments := []*domain.Segment{}
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// SegmentListFilter narrows ListSegments.
type SegmentListFilter struct {
	DocumentID string
	CategoryID string
}

// ListSegments returns the user's segments newest first, with the total
// count for pagination.
func (s *Store) ListSegments(ctx context.Context, userID string, filter SegmentListFilter, page PageParams) ([]*domain.Segment, int, error) {
	page.Validate()

	where := `WHERE user_id = ?`
	args := []any{userID}
	if filter.DocumentID != "" {
		where += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}
	if filter.CategoryID != "" {
		where += ` AND category_id = ?`
		args = append(args, filter.CategoryID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM segments `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments `+where+` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	segments := []*domain.Segment{}
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, 0, err
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return segments, total, nil
}

// ListAllSegments returns every segment of every user. Full reindex only.
func (s *Store) ListAllSegments(ctx context.Context) ([]*domain.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+segmentColumns+` FROM segments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []*domain.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// UpdateSegment persists the mutable fields of a segment and reindexes it.
func (s *Store) UpdateSegment(ctx context.Context, seg *domain.Segment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE segments
		SET category_id = ?, start_offset = ?, end_offset = ?, text = ?, word_count = ?, title = ?, color = ?, is_primary = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		seg.CategoryID,
		seg.StartOffset,
		seg.EndOffset,
		seg.Text,
		seg.WordCount,
		seg.Title,
		seg.Color,
		boolToInt(seg.IsPrimary),
		formatTime(seg.UpdatedAt),
		seg.ID,
		seg.UserID,
	)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	tagIDs, err := s.GetSegmentTagIDs(ctx, seg.ID)
	if err != nil {
		s.logger.Warn("failed to load tags for indexing", "segment_id", seg.ID, "error", err)
		tagIDs = nil
	}
	s.indexSegment(ctx, seg, tagIDs)
	return nil
}

// SetSegmentTags replaces all tags for a segment in a single transaction
// and reindexes it.
func (s *Store) SetSegmentTags(ctx context.Context, userID, segmentID string, tagIDs []string) error {
	seg, err := s.GetSegment(ctx, userID, segmentID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segment_tags WHERE segment_id = ?`, segmentID); err != nil {
		return fmt.Errorf("delete segment_tags: %w", err)
	}

	now := formatTime(time.Now())
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO segment_tags (segment_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			segmentID, tagID, now)
		if err != nil {
			return fmt.Errorf("insert segment_tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.indexSegment(ctx, seg, tagIDs)
	return nil
}

// GetSegmentTagIDs returns the tag ids attached to a segment.
func (s *Store) GetSegmentTagIDs(ctx context.Context, segmentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_id FROM segment_tags WHERE segment_id = ?`, segmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tagIDs []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, tagID)
	}
	return tagIDs, rows.Err()
}

// getSegmentWithTags loads a segment together with its tag ids.
func (s *Store) getSegmentWithTags(ctx context.Context, userID, segmentID string) (*domain.Segment, []string, error) {
	seg, err := s.GetSegment(ctx, userID, segmentID)
	if err != nil {
		return nil, nil, err
	}
	tagIDs, err := s.GetSegmentTagIDs(ctx, segmentID)
	if err != nil {
		return nil, nil, err
	}
	return seg, tagIDs, nil
}

// DeleteSegment removes a segment. Association-created children (non-primary
// targets of its derivative/callback edges) are deleted too when
// cascadeAssociations is set; otherwise they are promoted to primary.
// Everything happens in one transaction.
func (s *Store) DeleteSegment(ctx context.Context, userID, segmentID string, cascadeAssociations bool) error {
	childIDs, err := s.AssociationChildIDs(ctx, userID, segmentID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	deleted := []string{segmentID}
	promoted := make([]string, 0, len(childIDs))

	if cascadeAssociations {
		for _, childID := range childIDs {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM segments WHERE id = ? AND user_id = ?`, childID, userID); err != nil {
				return fmt.Errorf("delete child segment %s: %w", childID, err)
			}
			deleted = append(deleted, childID)
		}
	} else {
		now := formatTime(time.Now())
		for _, childID := range childIDs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE segments SET is_primary = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
				now, childID, userID); err != nil {
				return fmt.Errorf("promote child segment %s: %w", childID, err)
			}
			promoted = append(promoted, childID)
		}
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM segments WHERE id = ? AND user_id = ?`, segmentID, userID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.deindexSegments(deleted)
	for _, childID := range promoted {
		seg, tagIDs, err := s.getSegmentWithTags(ctx, userID, childID)
		if err != nil {
			s.logger.Warn("failed to reload promoted segment for indexing", "segment_id", childID, "error", err)
			continue
		}
		s.indexSegment(ctx, seg, tagIDs)
	}

	return nil
}

// AssociationChildIDs returns non-primary segments created from this one
// via derivative/callback associations. Direct children only.
func (s *Store) AssociationChildIDs(ctx context.Context, userID, segmentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seg.id
		FROM segment_associations a
		JOIN segments seg ON seg.id = a.target_id
		WHERE a.source_id = ? AND a.user_id = ? AND a.type IN (?, ?) AND seg.is_primary = 0`,
		segmentID, userID,
		string(domain.AssociationDerivative), string(domain.AssociationCallback))
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
