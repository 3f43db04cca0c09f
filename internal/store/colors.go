package store

import (
	"context"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

// GetColorUsage returns the user's per-color usage stats keyed by color.
func (s *Store) GetColorUsage(ctx context.Context, userID string) (map[string]*domain.ColorUsage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, color, use_count, last_used_at FROM color_usage WHERE user_id = ?`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]*domain.ColorUsage{}
	for rows.Next() {
		var (
			usage      domain.ColorUsage
			lastUsedAt string
		)
		if err := rows.Scan(&usage.UserID, &usage.Color, &usage.UseCount, &lastUsedAt); err != nil {
			return nil, err
		}
		if usage.LastUsedAt, err = parseTime(lastUsedAt); err != nil {
			return nil, err
		}
		result[usage.Color] = &usage
	}
	return result, rows.Err()
}

// RecordColorUsage bumps the use count for a color, creating the row on
// first use.
func (s *Store) RecordColorUsage(ctx context.Context, userID, color string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO color_usage (user_id, color, use_count, last_used_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, color) DO UPDATE SET
			use_count = use_count + 1,
			last_used_at = excluded.last_used_at`,
		userID, color, formatTime(time.Now()))
	return err
}

// ListDocumentColors returns the distinct colors already used by the
// user's segments in a document, excluding one segment when excludeID is
// set.
func (s *Store) ListDocumentColors(ctx context.Context, userID, documentID, excludeID string) ([]string, error) {
	query := `SELECT DISTINCT color FROM segments WHERE user_id = ? AND document_id = ? AND color != ''`
	args := []any{userID, documentID}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var colors []string
	for rows.Next() {
		var color string
		if err := rows.Scan(&color); err != nil {
			return nil, err
		}
		colors = append(colors, color)
	}
	return colors, rows.Err()
}
