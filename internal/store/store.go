// Package store provides SQLite-backed persistence for the DocMark server.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Errors returned by store operations. These alias the domain error
// sentinels so handlers can map them without knowing about the store.
var (
	ErrNotFound      = apperrors.ErrNotFound
	ErrAlreadyExists = apperrors.ErrAlreadyExists
)

// SearchIndexer maintains the full-text search index as segments change.
// The store calls it on every segment insert, update, and delete — the
// trigger-equivalent that keeps the search side in step with SQLite.
type SearchIndexer interface {
	IndexSegment(ctx context.Context, seg *domain.Segment, tagIDs []string) error
	DeleteSegments(ids []string) error
}

type noopIndexer struct{}

func (noopIndexer) IndexSegment(context.Context, *domain.Segment, []string) error { return nil }
func (noopIndexer) DeleteSegments([]string) error                                 { return nil }

// NewNoopIndexer returns an indexer that does nothing.
// Used until the real search service is wired, and in store tests.
func NewNoopIndexer() SearchIndexer { return noopIndexer{} }

// Store provides SQLite-backed persistence for the DocMark server.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	indexer SearchIndexer
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Small pool; SQLite allows one writer.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:      db,
		logger:  logger,
		indexer: NewNoopIndexer(),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer used for maintaining the search index.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.indexer = indexer
}

// indexSegment feeds a segment into the search index. Index failures are
// logged, not returned: the SQLite row is the source of truth and a full
// reindex can always repair the index.
func (s *Store) indexSegment(ctx context.Context, seg *domain.Segment, tagIDs []string) {
	if err := s.indexer.IndexSegment(ctx, seg, tagIDs); err != nil {
		s.logger.Warn("failed to index segment", "segment_id", seg.ID, "error", err)
	}
}

// deindexSegments removes segments from the search index, logging failures.
func (s *Store) deindexSegments(ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.indexer.DeleteSegments(ids); err != nil {
		s.logger.Warn("failed to deindex segments", "count", len(ids), "error", err)
	}
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// PageParams is limit/offset pagination with the API's bounds applied.
type PageParams struct {
	Limit  int
	Offset int
}

// Validate clamps pagination to limit 1-200 (default 50) and offset >= 0.
func (p *PageParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns a sql.NullString from a string, empty meaning NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// placeholders returns a "?, ?, ?" string for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// toAnySlice converts a string slice to []any for variadic query args.
func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
