package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/service"
)

func (ts *testServer) createTag(t *testing.T, name, tagType string) *domain.Tag {
	t.Helper()

	body := map[string]any{"name": name}
	if tagType != "" {
		body["type"] = tagType
	}
	rec := ts.do(t, http.MethodPost, "/api/v1/tags/", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tag domain.Tag
	decodeData(t, rec, &tag)
	return &tag
}

func TestCreateTag_NormalizesName(t *testing.T) {
	ts := newTestServer(t)

	tag := ts.createTag(t, "  Slow Burn  ", "technique")
	assert.Equal(t, "slow burn", tag.Name)
	assert.Equal(t, domain.TagTypeTechnique, tag.Type)
}

func TestCreateTag_DuplicateDifferentCase(t *testing.T) {
	ts := newTestServer(t)
	ts.createTag(t, "foreshadowing", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/tags/", map[string]any{"name": "Foreshadowing"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestListTags_TypeFilter(t *testing.T) {
	ts := newTestServer(t)
	ts.createTag(t, "rain", "subject")
	ts.createTag(t, "slow burn", "technique")

	rec := ts.do(t, http.MethodGet, "/api/v1/tags/?type=subject", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tags []*domain.Tag
	decodeData(t, rec, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, "rain", tags[0].Name)
}

func TestAutocompleteTags(t *testing.T) {
	ts := newTestServer(t)
	ts.createTag(t, "foreshadowing", "")
	ts.createTag(t, "found family", "")
	ts.createTag(t, "rain", "")

	rec := ts.do(t, http.MethodGet, "/api/v1/tags/autocomplete?q=fo", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tags []*domain.Tag
	decodeData(t, rec, &tags)
	assert.Len(t, tags, 2)
}

func TestBulkTagEndpoint(t *testing.T) {
	ts := newTestServer(t)
	cat := ts.createCategory(t, "Imagery")
	doc := ts.registerDocument(t, "file-1", "Draft One", draftText)
	seg1 := ts.captureSegment(t, doc.ID, cat.ID, 0, 10)
	seg2 := ts.captureSegment(t, doc.ID, cat.ID, 20, 30)

	rec := ts.do(t, http.MethodPost, "/api/v1/tags/bulk", map[string]any{
		"segment_ids": []string{seg1.ID, seg2.ID, "seg-missing"},
		"tag_names":   []string{"texture", "grit"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.BulkTagResult
	decodeData(t, rec, &result)
	assert.Len(t, result.TagIDs, 2)
	assert.Equal(t, 2, result.SegmentsTagged)
	assert.Equal(t, []string{"seg-missing"}, result.SegmentsSkipped)
}

func TestUpdateTag(t *testing.T) {
	ts := newTestServer(t)
	tag := ts.createTag(t, "rain", "")

	rec := ts.do(t, http.MethodPut, "/api/v1/tags/"+tag.ID, map[string]any{
		"name": "weather",
		"type": "subject",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.Tag
	decodeData(t, rec, &updated)
	assert.Equal(t, "weather", updated.Name)
	assert.Equal(t, domain.TagTypeSubject, updated.Type)
}

func TestDeleteTag(t *testing.T) {
	ts := newTestServer(t)
	tag := ts.createTag(t, "rain", "")

	rec := ts.do(t, http.MethodDelete, "/api/v1/tags/"+tag.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/tags/"+tag.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
