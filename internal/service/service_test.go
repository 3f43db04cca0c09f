package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/id"
	"github.com/docmarkapp/docmark-server/internal/provider"
	"github.com/docmarkapp/docmark-server/internal/search"
	"github.com/docmarkapp/docmark-server/internal/store"
)

// fakeProvider is an in-memory document source. Tests mutate its
// snapshot map to simulate edits at the provider.
type fakeProvider struct {
	mu        sync.Mutex
	snapshots map[string]*provider.Snapshot // by file id
	folders   map[string][]provider.File    // by folder id
	fetchErr  map[string]error              // per-file fetch failure
	listErr   error

	createdMarkers []provider.Marker
	deletedMarkers []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		snapshots: make(map[string]*provider.Snapshot),
		folders:   make(map[string][]provider.File),
		fetchErr:  make(map[string]error),
	}
}

func (f *fakeProvider) FetchDocument(_ context.Context, _ provider.Credentials, fileID string) (*provider.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fetchErr[fileID]; ok {
		return nil, err
	}
	snap, ok := f.snapshots[fileID]
	if !ok {
		return nil, provider.ErrNotFound
	}
	copied := *snap
	copied.Markers = append([]provider.Marker(nil), snap.Markers...)
	return &copied, nil
}

func (f *fakeProvider) ListFolder(_ context.Context, _ provider.Credentials, folderID string) ([]provider.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]provider.File(nil), f.folders[folderID]...), nil
}

func (f *fakeProvider) CreateMarker(_ context.Context, _ provider.Credentials, fileID string, marker provider.Marker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[fileID]
	if !ok {
		return provider.ErrNotFound
	}
	kept := snap.Markers[:0]
	for _, m := range snap.Markers {
		if m.Name != marker.Name {
			kept = append(kept, m)
		}
	}
	snap.Markers = append(kept, marker)
	f.createdMarkers = append(f.createdMarkers, marker)
	return nil
}

func (f *fakeProvider) DeleteMarkers(_ context.Context, _ provider.Credentials, fileID string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[fileID]
	if !ok {
		return provider.ErrNotFound
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := snap.Markers[:0]
	for _, m := range snap.Markers {
		if !drop[m.Name] {
			kept = append(kept, m)
		}
	}
	snap.Markers = kept
	f.deletedMarkers = append(f.deletedMarkers, names...)
	return nil
}

// setSnapshot installs or replaces a document at the provider.
func (f *fakeProvider) setSnapshot(fileID, title, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := f.snapshots[fileID]
	snap := &provider.Snapshot{
		FileID:     fileID,
		Title:      title,
		Text:       text,
		ModifiedAt: time.Now().UTC(),
	}
	if existing != nil {
		snap.Markers = existing.Markers
	}
	f.snapshots[fileID] = snap
}

// moveMarker repositions a marker, simulating the provider tracking an
// edit that shifted the range.
func (f *fakeProvider) moveMarker(fileID, segmentID string, start, end int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.snapshots[fileID]
	for i, m := range snap.Markers {
		if m.SegmentID == segmentID {
			snap.Markers[i].StartOffset = start
			snap.Markers[i].EndOffset = end
			return
		}
	}
}

// dropMarker removes a marker, simulating the user deleting the whole
// range text at the provider.
func (f *fakeProvider) dropMarker(fileID, segmentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.snapshots[fileID]
	kept := snap.Markers[:0]
	for _, m := range snap.Markers {
		if m.SegmentID != segmentID {
			kept = append(kept, m)
		}
	}
	snap.Markers = kept
}

// env wires a real store and search index to a fake provider.
type env struct {
	store    *store.Store
	index    *search.Index
	provider *fakeProvider

	colors       *ColorService
	documents    *DocumentService
	segments     *SegmentService
	associations *AssociationService
	reconciler   *ReconcileService
	syncer       *SyncService
	searcher     *SearchService
	categories   *CategoryService
	tags         *TagService

	user *domain.User
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	st.SetSearchIndexer(idx)

	fp := newFakeProvider()

	e := &env{store: st, index: idx, provider: fp}
	e.colors = NewColorService(st, logger)
	e.documents = NewDocumentService(st, fp, logger)
	e.segments = NewSegmentService(st, fp, e.documents, e.colors, logger)
	e.associations = NewAssociationService(st, logger)
	e.reconciler = NewReconcileService(st, fp, logger)
	e.syncer = NewSyncService(st, fp, e.reconciler, e.documents, logger)
	e.searcher = NewSearchService(st, idx, logger)
	e.categories = NewCategoryService(st, logger)
	e.tags = NewTagService(st, logger)

	now := time.Now().UTC()
	e.user = &domain.User{
		ID:            id.MustGenerate("usr"),
		GoogleID:      id.MustGenerate("g"),
		Email:         "writer@example.com",
		Name:          "Test Writer",
		WatchFolderID: "folder-1",
		RefreshToken:  "refresh-token",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, st.CreateUser(context.Background(), e.user))
	return e
}

// registerDoc installs a snapshot at the provider and registers it.
func (e *env) registerDoc(t *testing.T, fileID, title, text string) *domain.Document {
	t.Helper()

	e.provider.setSnapshot(fileID, title, text)
	doc, err := e.documents.Register(context.Background(), e.user, fileID)
	require.NoError(t, err)
	return doc
}

// capture creates a segment over [start, end) of the document.
func (e *env) capture(t *testing.T, doc *domain.Document, categoryID string, start, end int) *domain.Segment {
	t.Helper()

	seg, err := e.segments.Capture(context.Background(), e.user, CaptureInput{
		DocumentID:  doc.ID,
		StartOffset: start,
		EndOffset:   end,
		CategoryID:  categoryID,
	})
	require.NoError(t, err)
	return seg
}

func (e *env) category(t *testing.T, name string) *domain.Category {
	t.Helper()

	cat, err := e.categories.Create(context.Background(), e.user.ID, name, "")
	require.NoError(t, err)
	return cat
}
