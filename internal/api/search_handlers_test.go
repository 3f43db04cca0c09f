package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/service"
)

func TestSearchEndpoint(t *testing.T) {
	ts := newTestServer(t)
	cat := ts.createCategory(t, "Imagery")
	doc := ts.registerDocument(t, "file-1", "Draft One", draftText)
	ts.captureSegment(t, doc.ID, cat.ID, 4, 27)
	ts.captureSegment(t, doc.ID, cat.ID, 32, 42)

	rec := ts.do(t, http.MethodPost, "/api/v1/search", map[string]any{
		"query": "attendant",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.SearchResponse
	env := decodeData(t, rec, &result)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Draft One", result.Results[0].DocumentTitle)
	assert.Equal(t, "Imagery", result.Results[0].CategoryName)
	assert.NotNil(t, result.Facets)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)
}

func TestSearchEndpoint_EmptyQueryListsAll(t *testing.T) {
	ts := newTestServer(t)
	cat := ts.createCategory(t, "Imagery")
	doc := ts.registerDocument(t, "file-1", "Draft One", draftText)
	ts.captureSegment(t, doc.ID, cat.ID, 4, 27)
	ts.captureSegment(t, doc.ID, cat.ID, 32, 42)

	rec := ts.do(t, http.MethodPost, "/api/v1/search", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.SearchResponse
	decodeData(t, rec, &result)
	assert.Len(t, result.Results, 2)
}

func TestSearchEndpoint_CategoryFilter(t *testing.T) {
	ts := newTestServer(t)
	imagery := ts.createCategory(t, "Imagery")
	dialogue := ts.createCategory(t, "Dialogue")
	doc := ts.registerDocument(t, "file-1", "Draft One", draftText)
	ts.captureSegment(t, doc.ID, imagery.ID, 4, 27)
	ts.captureSegment(t, doc.ID, dialogue.ID, 32, 42)

	rec := ts.do(t, http.MethodPost, "/api/v1/search", map[string]any{
		"category_ids": []string{imagery.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.SearchResponse
	decodeData(t, rec, &result)
	require.Len(t, result.Results, 1)
	assert.Equal(t, imagery.ID, result.Results[0].Segment.CategoryID)

	// Category facets ignore the category filter itself, so the excluded
	// category still shows its count.
	require.NotNil(t, result.Facets)
	assert.Len(t, result.Facets.Categories, 2)
}

func TestSearchEndpoint_RejectsBadSort(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/search", map[string]any{
		"sort_by": "color",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
