package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
)

func TestCategoryCreateValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.categories.Create(ctx, e.user.ID, "  ", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = e.categories.Create(ctx, e.user.ID, "Bit", "🎤")
	require.NoError(t, err)

	_, err = e.categories.Create(ctx, e.user.ID, "Bit", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestCategoryDeleteRequiresMigration(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Working Notes", noteText)
	bit := e.category(t, "Bit")
	idea := e.category(t, "Idea")
	seg := e.capture(t, doc, bit.ID, 0, 9)

	err := e.categories.Delete(ctx, e.user.ID, bit.ID, "")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	err = e.categories.Delete(ctx, e.user.ID, bit.ID, bit.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	require.NoError(t, e.categories.Delete(ctx, e.user.ID, bit.ID, idea.ID))

	moved, err := e.store.GetSegment(ctx, e.user.ID, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, idea.ID, moved.CategoryID)
}

func TestCategoryDeleteEmpty(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	empty := e.category(t, "Scratch")
	require.NoError(t, e.categories.Delete(ctx, e.user.ID, empty.ID, ""))

	list, err := e.categories.List(ctx, e.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCategoryReorderValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	a := e.category(t, "A")
	b := e.category(t, "B")
	c := e.category(t, "C")

	err := e.categories.Reorder(ctx, e.user.ID, []string{c.ID, a.ID})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	err = e.categories.Reorder(ctx, e.user.ID, []string{c.ID, a.ID, a.ID})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	require.NoError(t, e.categories.Reorder(ctx, e.user.ID, []string{c.ID, a.ID, b.ID}))

	list, err := e.categories.List(ctx, e.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, c.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
	assert.Equal(t, b.ID, list[2].ID)
}
