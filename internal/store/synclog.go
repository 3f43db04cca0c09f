package store

import (
	"context"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

// AppendSyncLog records one sync outcome. Logs are append-only.
func (s *Store) AppendSyncLog(ctx context.Context, entry *domain.SyncLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, user_id, document_id, action, status, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.DocumentID,
		string(entry.Action),
		string(entry.Status),
		entry.Details,
		formatTime(entry.CreatedAt),
	)
	return err
}

// ListSyncLogs returns the user's sync history newest first, with the
// total count for pagination.
func (s *Store) ListSyncLogs(ctx context.Context, userID string, page PageParams) ([]*domain.SyncLog, int, error) {
	page.Validate()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_logs WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, document_id, action, status, details, created_at
		FROM sync_logs
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`,
		userID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []*domain.SyncLog{}
	for rows.Next() {
		var (
			entry     domain.SyncLog
			createdAt string
		)
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.DocumentID,
			&entry.Action,
			&entry.Status,
			&entry.Details,
			&createdAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
