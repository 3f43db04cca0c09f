package store

import (
	"context"
	"database/sql"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

const associationColumns = `id, user_id, source_id, target_id, type, created_at`

func scanAssociation(scanner interface{ Scan(dest ...any) error }) (*domain.SegmentAssociation, error) {
	var assoc domain.SegmentAssociation

	var createdAt string
	err := scanner.Scan(
		&assoc.ID,
		&assoc.UserID,
		&assoc.SourceID,
		&assoc.TargetID,
		&assoc.Type,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if assoc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &assoc, nil
}

// CreateAssociation links two segments. A second edge between the same
// pair returns ErrAlreadyExists.
func (s *Store) CreateAssociation(ctx context.Context, assoc *domain.SegmentAssociation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO segment_associations (id, user_id, source_id, target_id, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		assoc.ID,
		assoc.UserID,
		assoc.SourceID,
		assoc.TargetID,
		string(assoc.Type),
		formatTime(assoc.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetAssociation retrieves a single association owned by the user.
func (s *Store) GetAssociation(ctx context.Context, userID, associationID string) (*domain.SegmentAssociation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+associationColumns+` FROM segment_associations WHERE id = ? AND user_id = ?`,
		associationID, userID)

	assoc, err := scanAssociation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return assoc, nil
}

// ListAssociations returns every edge touching a segment, in either
// direction, oldest first.
func (s *Store) ListAssociations(ctx context.Context, userID, segmentID string) ([]*domain.SegmentAssociation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+associationColumns+` FROM segment_associations
		 WHERE user_id = ? AND (source_id = ? OR target_id = ?)
		 ORDER BY created_at ASC, id ASC`,
		userID, segmentID, segmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	associations := []*domain.SegmentAssociation{}
	for rows.Next() {
		assoc, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		associations = append(associations, assoc)
	}
	return associations, rows.Err()
}

// DeleteAssociation removes an edge without touching either segment.
func (s *Store) DeleteAssociation(ctx context.Context, userID, associationID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM segment_associations WHERE id = ? AND user_id = ?`,
		associationID, userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// CountAssociationsForSegments returns edge counts keyed by segment id,
// covering both directions. Used for list hydration.
func (s *Store) CountAssociationsForSegments(ctx context.Context, segmentIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(segmentIDs))
	if len(segmentIDs) == 0 {
		return result, nil
	}

	args := append(toAnySlice(segmentIDs), toAnySlice(segmentIDs)...)
	rows, err := s.db.QueryContext(ctx, `
		SELECT seg_id, COUNT(*) FROM (
			SELECT source_id AS seg_id FROM segment_associations WHERE source_id IN (`+placeholders(len(segmentIDs))+`)
			UNION ALL
			SELECT target_id AS seg_id FROM segment_associations WHERE target_id IN (`+placeholders(len(segmentIDs))+`)
		) GROUP BY seg_id`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			segID string
			n     int
		)
		if err := rows.Scan(&segID, &n); err != nil {
			return nil, err
		}
		result[segID] = n
	}
	return result, rows.Err()
}
