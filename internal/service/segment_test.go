package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/provider"
)

const noteText = "The quick brown fox jumps over the lazy dog"

func TestCaptureSegment(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")

	seg, err := e.segments.Capture(ctx, e.user, CaptureInput{
		DocumentID:  doc.ID,
		StartOffset: 4,
		EndOffset:   19,
		CategoryID:  cat.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "quick brown fox", seg.Text)
	assert.Equal(t, 3, seg.WordCount)
	assert.True(t, seg.IsPrimary)
	assert.Contains(t, domain.DefaultPalette, seg.Color)

	require.Len(t, e.provider.createdMarkers, 1)
	assert.Equal(t, provider.MarkerName(seg.ID), e.provider.createdMarkers[0].Name)
	assert.Equal(t, 4, e.provider.createdMarkers[0].StartOffset)
}

func TestCaptureByFileIDAutoRegisters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.provider.setSnapshot("file-new", "Fresh Doc", noteText)
	cat := e.category(t, "Idea")

	seg, err := e.segments.Capture(ctx, e.user, CaptureInput{
		FileID:      "file-new",
		StartOffset: 0,
		EndOffset:   9,
		CategoryID:  cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "The quick", seg.Text)

	doc, err := e.store.GetDocumentByFileID(ctx, e.user.ID, "file-new")
	require.NoError(t, err)
	assert.Equal(t, "Fresh Doc", doc.Title)
	assert.Equal(t, doc.ID, seg.DocumentID)
}

func TestCaptureRejectsBadInput(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")

	_, err := e.segments.Capture(ctx, e.user, CaptureInput{
		DocumentID: doc.ID, StartOffset: 10, EndOffset: 10, CategoryID: cat.ID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = e.segments.Capture(ctx, e.user, CaptureInput{
		DocumentID: doc.ID, StartOffset: 0, EndOffset: 5, CategoryID: "cat-unknown",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// Selection entirely past the end of the text.
	_, err = e.segments.Capture(ctx, e.user, CaptureInput{
		DocumentID: doc.ID, StartOffset: 500, EndOffset: 510, CategoryID: cat.ID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = e.segments.Capture(ctx, e.user, CaptureInput{
		DocumentID: doc.ID, StartOffset: 0, EndOffset: 5, CategoryID: cat.ID, Color: "red",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestCaptureAssignsDistinctColors(t *testing.T) {
	e := newTestEnv(t)

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")

	first := e.capture(t, doc, cat.ID, 0, 3)
	second := e.capture(t, doc, cat.ID, 4, 9)
	third := e.capture(t, doc, cat.ID, 10, 15)

	assert.NotEqual(t, first.Color, second.Color)
	assert.NotEqual(t, first.Color, third.Color)
	assert.NotEqual(t, second.Color, third.Color)
}

func TestUpdateSegmentOffsetsRefetchText(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 9)

	start, end := 4, 19
	updated, err := e.segments.Update(ctx, e.user, seg.ID, UpdateInput{
		StartOffset: &start, EndOffset: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "quick brown fox", updated.Text)
	assert.Equal(t, 3, updated.WordCount)

	// The marker moved with the offsets.
	last := e.provider.createdMarkers[len(e.provider.createdMarkers)-1]
	assert.Equal(t, provider.MarkerName(seg.ID), last.Name)
	assert.Equal(t, 19, last.EndOffset)
}

func TestUpdateColorPropagatesToChildren(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 0, 9)

	res, err := e.associations.Associate(ctx, e.user.ID, seg.ID, AssociateInput{
		Type: domain.AssociationCallback,
	})
	require.NoError(t, err)
	child := res.CreatedSegment
	require.NotNil(t, child)

	color := "#112233"
	_, err = e.segments.Update(ctx, e.user, seg.ID, UpdateInput{Color: &color})
	require.NoError(t, err)

	reloaded, err := e.store.GetSegment(ctx, e.user.ID, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "#112233", reloaded.Color)
}

func TestDeleteSegmentRemovesMarker(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 9)

	require.NoError(t, e.segments.Delete(ctx, e.user, seg.ID, false))

	assert.Contains(t, e.provider.deletedMarkers, provider.MarkerName(seg.ID))
	_, err := e.store.GetSegment(ctx, e.user.ID, seg.ID)
	assert.Error(t, err)
}

func TestDeleteSegmentAssociationSemantics(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")

	// Without cascade the callback copy survives and becomes primary.
	s1 := e.capture(t, doc, cat.ID, 0, 9)
	res, err := e.associations.Associate(ctx, e.user.ID, s1.ID, AssociateInput{Type: domain.AssociationCallback})
	require.NoError(t, err)
	require.NoError(t, e.segments.Delete(ctx, e.user, s1.ID, false))

	child, err := e.store.GetSegment(ctx, e.user.ID, res.CreatedSegment.ID)
	require.NoError(t, err)
	assert.True(t, child.IsPrimary)

	// With cascade the copy goes too.
	s2 := e.capture(t, doc, cat.ID, 10, 15)
	res2, err := e.associations.Associate(ctx, e.user.ID, s2.ID, AssociateInput{Type: domain.AssociationCallback})
	require.NoError(t, err)
	require.NoError(t, e.segments.Delete(ctx, e.user, s2.ID, true))

	_, err = e.store.GetSegment(ctx, e.user.ID, res2.CreatedSegment.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAssociateSpawnsCopy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 4, 19)

	res, err := e.associations.Associate(ctx, e.user.ID, seg.ID, AssociateInput{
		Type: domain.AssociationDerivative,
	})
	require.NoError(t, err)
	require.NotNil(t, res.CreatedSegment)

	copySeg := res.CreatedSegment
	assert.False(t, copySeg.IsPrimary)
	assert.Equal(t, seg.CategoryID, copySeg.CategoryID)
	assert.Equal(t, seg.Color, copySeg.Color)
	assert.Equal(t, seg.Text, copySeg.Text)
	assert.Equal(t, seg.ID, res.Association.SourceID)
	assert.Equal(t, copySeg.ID, res.Association.TargetID)
}

func TestAssociateValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	cat := e.category(t, "Bit")
	a := e.capture(t, doc, cat.ID, 0, 3)
	b := e.capture(t, doc, cat.ID, 4, 9)

	_, err := e.associations.Associate(ctx, e.user.ID, a.ID, AssociateInput{
		TargetSegmentID: a.ID, Type: domain.AssociationReference,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	// Reference needs an existing target, it never spawns a copy.
	_, err = e.associations.Associate(ctx, e.user.ID, a.ID, AssociateInput{
		Type: domain.AssociationReference,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = e.associations.Associate(ctx, e.user.ID, a.ID, AssociateInput{
		TargetSegmentID: b.ID, Type: domain.AssociationReference,
	})
	require.NoError(t, err)

	// Same ordered pair again conflicts.
	_, err = e.associations.Associate(ctx, e.user.ID, a.ID, AssociateInput{
		TargetSegmentID: b.ID, Type: domain.AssociationReference,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}
