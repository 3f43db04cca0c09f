package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

func TestListCategories_SeededOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.createCategory(t, "Imagery")
	ts.createCategory(t, "Dialogue")

	rec := ts.do(t, http.MethodGet, "/api/v1/categories/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []*domain.Category
	decodeData(t, rec, &cats)
	require.Len(t, cats, 2)
	assert.Equal(t, "Imagery", cats[0].Name)
	assert.Equal(t, "Dialogue", cats[1].Name)
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	ts := newTestServer(t)
	ts.createCategory(t, "Imagery")

	rec := ts.do(t, http.MethodPost, "/api/v1/categories/", map[string]any{"name": "Imagery"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestUpdateCategory(t *testing.T) {
	ts := newTestServer(t)
	cat := ts.createCategory(t, "Imagery")

	rec := ts.do(t, http.MethodPut, "/api/v1/categories/"+cat.ID, map[string]any{
		"name": "Visuals",
		"icon": "eye",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.Category
	decodeData(t, rec, &updated)
	assert.Equal(t, "Visuals", updated.Name)
	assert.Equal(t, "eye", updated.Icon)
}

func TestReorderCategories(t *testing.T) {
	ts := newTestServer(t)
	first := ts.createCategory(t, "Imagery")
	second := ts.createCategory(t, "Dialogue")

	rec := ts.do(t, http.MethodPut, "/api/v1/categories/reorder", map[string]any{
		"category_ids": []string{second.ID, first.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cats []*domain.Category
	decodeData(t, rec, &cats)
	require.Len(t, cats, 2)
	assert.Equal(t, second.ID, cats[0].ID)
	assert.Equal(t, first.ID, cats[1].ID)
}

func TestReorderCategories_MustNameAll(t *testing.T) {
	ts := newTestServer(t)
	first := ts.createCategory(t, "Imagery")
	ts.createCategory(t, "Dialogue")

	rec := ts.do(t, http.MethodPut, "/api/v1/categories/reorder", map[string]any{
		"category_ids": []string{first.ID},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCategory_RequiresMigration(t *testing.T) {
	ts := newTestServer(t)
	imagery := ts.createCategory(t, "Imagery")
	dialogue := ts.createCategory(t, "Dialogue")
	doc := ts.registerDocument(t, "file-1", "Draft One", draftText)
	seg := ts.captureSegment(t, doc.ID, imagery.ID, 4, 27)

	rec := ts.do(t, http.MethodDelete, "/api/v1/categories/"+imagery.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/v1/categories/"+imagery.ID+"?migrate_to="+dialogue.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/segments/"+seg.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Segment *domain.Segment `json:"segment"`
	}
	decodeData(t, rec, &detail)
	assert.Equal(t, dialogue.ID, detail.Segment.CategoryID)
}

func TestDeleteCategory_Empty(t *testing.T) {
	ts := newTestServer(t)
	cat := ts.createCategory(t, "Imagery")

	rec := ts.do(t, http.MethodDelete, "/api/v1/categories/"+cat.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
