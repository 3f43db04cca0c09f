package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

// documentColumns is the ordered list of columns selected in document queries.
// Must match the scan order in scanDocument.
const documentColumns = `id, user_id, file_id, title, folder_id, is_active, last_synced_at, last_modified_at, created_at, updated_at`

// scanDocument scans a sql.Row (or sql.Rows via its Scan method) into a domain.Document.
func scanDocument(scanner interface{ Scan(dest ...any) error }) (*domain.Document, error) {
	var d domain.Document

	var (
		isActive       int
		lastSyncedAt   sql.NullString
		lastModifiedAt sql.NullString
		createdAt      string
		updatedAt      string
	)

	err := scanner.Scan(
		&d.ID,
		&d.UserID,
		&d.FileID,
		&d.Title,
		&d.FolderID,
		&isActive,
		&lastSyncedAt,
		&lastModifiedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.IsActive = isActive != 0

	if d.LastSyncedAt, err = parseNullableTime(lastSyncedAt); err != nil {
		return nil, err
	}
	if d.LastModifiedAt, err = parseNullableTime(lastModifiedAt); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &d, nil
}

// CreateDocument inserts a new document.
// Returns ErrAlreadyExists when the provider file is already registered
// for this user.
func (s *Store) CreateDocument(ctx context.Context, d *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, file_id, title, folder_id, is_active, last_synced_at, last_modified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.UserID,
		d.FileID,
		d.Title,
		d.FolderID,
		boolToInt(d.IsActive),
		nullTimeString(d.LastSyncedAt),
		nullTimeString(d.LastModifiedAt),
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetDocument retrieves a document owned by the given user.
// Returns ErrNotFound when absent or owned by someone else.
func (s *Store) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND user_id = ?`,
		documentID, userID)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDocumentByFileID retrieves a document by provider file id, including
// inactive ones (folder sync uses this to reactivate returning files).
func (s *Store) GetDocumentByFileID(ctx context.Context, userID, fileID string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = ? AND file_id = ?`,
		userID, fileID)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns the user's documents ordered by title, with the
// total count for pagination. When activeOnly is set, soft-deleted
// documents are excluded.
func (s *Store) ListDocuments(ctx context.Context, userID string, activeOnly bool, page PageParams) ([]*domain.Document, int, error) {
	page.Validate()

	where := `WHERE user_id = ?`
	if activeOnly {
		where += ` AND is_active = 1`
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents `+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents `+where+` ORDER BY title ASC, id ASC LIMIT ? OFFSET ?`,
		userID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// ListActiveDocuments returns all active documents for a user, unpaginated.
// Folder sync diffs against this set.
func (s *Store) ListActiveDocuments(ctx context.Context, userID string) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = ? AND is_active = 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DocumentTitles returns titles keyed by document id. Used to label
// facet values without loading full rows.
func (s *Store) DocumentTitles(ctx context.Context, userID string, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := append([]any{userID}, toAnySlice(ids)...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title FROM documents WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		result[id] = title
	}
	return result, rows.Err()
}

// SetDocumentActive flips the soft-delete flag.
func (s *Store) SetDocumentActive(ctx context.Context, userID, documentID string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		boolToInt(active), formatTime(time.Now()), documentID, userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteDocument hard-deletes a document. Segments cascade via FK; their
// ids are collected first so the search index can be cleaned up too.
func (s *Store) DeleteDocument(ctx context.Context, userID, documentID string) error {
	segmentIDs, err := s.segmentIDsForDocument(ctx, documentID)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND user_id = ?`, documentID, userID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	s.deindexSegments(segmentIDs)
	return nil
}

// SegmentSyncUpdate carries one segment's reconciled offsets and text.
type SegmentSyncUpdate struct {
	SegmentID   string
	StartOffset int
	EndOffset   int
	Text        string
}

// ApplyDocumentSync applies the outcome of reconciling one document in a
// single transaction: segment offset/text updates plus the document's
// title and last_synced_at. Any failure rolls the whole batch back.
func (s *Store) ApplyDocumentSync(ctx context.Context, userID, documentID, title string, syncedAt time.Time, updates []SegmentSyncUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(syncedAt)
	for _, u := range updates {
		_, err := tx.ExecContext(ctx, `
			UPDATE segments
			SET start_offset = ?, end_offset = ?, text = ?, word_count = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			u.StartOffset,
			u.EndOffset,
			u.Text,
			domain.CountWords(u.Text),
			now,
			u.SegmentID,
			userID,
		)
		if err != nil {
			return fmt.Errorf("update segment %s: %w", u.SegmentID, err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET title = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		title, now, now, documentID, userID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// Reindex the touched segments after commit.
	for _, u := range updates {
		seg, tagIDs, err := s.getSegmentWithTags(ctx, userID, u.SegmentID)
		if err != nil {
			s.logger.Warn("failed to reload segment for indexing", "segment_id", u.SegmentID, "error", err)
			continue
		}
		s.indexSegment(ctx, seg, tagIDs)
	}

	return nil
}

// segmentIDsForDocument returns the ids of all segments in a document.
func (s *Store) segmentIDsForDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM segments WHERE document_id = ?`, documentID)
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
