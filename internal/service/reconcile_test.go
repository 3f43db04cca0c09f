package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/provider"
)

func TestSyncDocumentNoChanges(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	e.capture(t, doc, cat.ID, 4, 19)

	result, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.SyncStatusSuccess, result.Status)
	assert.Zero(t, result.SegmentsUpdated)
	assert.Zero(t, result.SegmentsMoved)
	assert.Empty(t, result.OrphanedSegments)
}

func TestSyncDocumentIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 19)

	// Text inserted before the segment: the marker shifts right.
	e.provider.setSnapshot("file-1", "Working Notes", "Oh. "+noteText)
	e.provider.moveMarker("file-1", seg.ID, 8, 23)

	first, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SegmentsMoved)
	assert.Zero(t, first.SegmentsUpdated)

	moved, err := e.store.GetSegment(ctx, e.user.ID, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, moved.StartOffset)
	assert.Equal(t, "quick brown fox", moved.Text)

	second, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, second.SegmentsMoved)
	assert.Zero(t, second.SegmentsUpdated)
}

func TestSyncDocumentTextChangeWins(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 19)

	// The text under the marker changed in place.
	edited := strings.Replace(noteText, "quick brown fox", "sleek  grey  cat", 1)
	e.provider.setSnapshot("file-1", "Working Notes", edited)
	e.provider.moveMarker("file-1", seg.ID, 4, 20)

	result, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SegmentsUpdated)
	assert.Zero(t, result.SegmentsMoved)

	updated, err := e.store.GetSegment(ctx, e.user.ID, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, "sleek  grey  cat", updated.Text)
	assert.Equal(t, 3, updated.WordCount)
}

func TestSyncDocumentDetectsOrphans(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 19)

	e.provider.dropMarker("file-1", seg.ID)

	result, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusPartial, result.Status)
	assert.Equal(t, []string{seg.ID}, result.OrphanedSegments)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, ConflictOrphanedMarker, result.Conflicts[0].Type)

	// The orphan is reported, never mutated or deleted.
	kept, err := e.store.GetSegment(ctx, e.user.ID, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, "quick brown fox", kept.Text)
}

func TestSyncDocumentUpdatesTitle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	e.provider.setSnapshot("file-1", "Renamed Notes", noteText)

	_, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)

	reloaded, err := e.store.GetDocument(ctx, e.user.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Notes", reloaded.Title)
	assert.NotNil(t, reloaded.LastSyncedAt)
}

func TestSyncDocumentAccessLostDeactivates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	e.provider.fetchErr["file-1"] = provider.ErrAccessLost

	result, err := e.reconciler.SyncDocument(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusFailed, result.Status)

	reloaded, err := e.store.GetDocument(ctx, e.user.ID, doc.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestRepairMarkers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 19)

	e.provider.dropMarker("file-1", seg.ID)

	result, err := e.reconciler.RepairMarkers(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MarkersRepaired)
	assert.Empty(t, result.FailedSegments)

	snap, err := e.provider.FetchDocument(ctx, provider.Credentials{}, "file-1")
	require.NoError(t, err)
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, seg.ID, snap.Markers[0].SegmentID)
	assert.Equal(t, 4, snap.Markers[0].StartOffset)

	// A marker that already exists is left alone.
	again, err := e.reconciler.RepairMarkers(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, again.MarkersRepaired)
}

func TestRepairMarkersClampsToDocument(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 30, 43)

	e.provider.dropMarker("file-1", seg.ID)
	e.provider.setSnapshot("file-1", "Working Notes", noteText[:35])

	result, err := e.reconciler.RepairMarkers(ctx, e.user, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MarkersRepaired)

	snap, err := e.provider.FetchDocument(ctx, provider.Credentials{}, "file-1")
	require.NoError(t, err)
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, 35, snap.Markers[0].EndOffset)
}
