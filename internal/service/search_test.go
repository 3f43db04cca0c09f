package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/search"
)

func facetByValue(facets []LabeledFacet, value string) (LabeledFacet, bool) {
	for _, f := range facets {
		if f.Value == value {
			return f, true
		}
	}
	return LabeledFacet{}, false
}

func TestSearchHydratesResults(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Road Notes", "gas station hands are always cold")
	cat := e.category(t, "Bit")
	seg := e.capture(t, doc, cat.ID, 0, 17)

	tag, err := e.tags.Create(ctx, e.user.ID, "roadwork", domain.TagTypeSubject)
	require.NoError(t, err)
	require.NoError(t, e.segments.SetTags(ctx, e.user.ID, seg.ID, []string{tag.ID}))

	params := search.DefaultSearchParams()
	params.Query = "gas station"
	resp, err := e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	item := resp.Results[0]
	assert.Equal(t, seg.ID, item.Segment.ID)
	assert.Equal(t, "Road Notes", item.DocumentTitle)
	assert.Equal(t, "Bit", item.CategoryName)
	require.Len(t, item.Tags, 1)
	assert.Equal(t, "roadwork", item.Tags[0].Name)
	assert.Greater(t, item.Score, 0.0)
	assert.NotEmpty(t, item.Snippet)
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Road Notes", noteText)
	cat := e.category(t, "Bit")
	e.capture(t, doc, cat.ID, 0, 9)
	e.capture(t, doc, cat.ID, 10, 19)

	params := search.DefaultSearchParams()
	resp, err := e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)

	assert.EqualValues(t, 2, resp.Total)
	for _, item := range resp.Results {
		assert.Zero(t, item.Score)
	}
}

func TestSearchSnippetFallsBackToPrefix(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	long := strings.Repeat("every word here matters a great deal ", 20)
	doc := e.registerDoc(t, "file-1", "Long Notes", long)
	cat := e.category(t, "Bit")
	e.capture(t, doc, cat.ID, 0, 500)

	params := search.DefaultSearchParams()
	resp, err := e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	snippet := resp.Results[0].Snippet
	assert.True(t, strings.HasPrefix(snippet, "every word"))
	assert.LessOrEqual(t, len([]rune(snippet)), snippetLength+1)
}

func TestSearchFacetIndependence(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Road Notes", noteText)
	bit := e.category(t, "Bit")
	idea := e.category(t, "Idea")

	e.capture(t, doc, bit.ID, 0, 9)
	e.capture(t, doc, idea.ID, 10, 19)
	e.capture(t, doc, idea.ID, 20, 29)

	params := search.DefaultSearchParams()
	params.CategoryIDs = []string{bit.ID}
	resp, err := e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)

	// The listing honors the filter.
	require.Len(t, resp.Results, 1)
	assert.Equal(t, bit.ID, resp.Results[0].Segment.CategoryID)

	// Category facets ignore the category filter, showing what other
	// choices would yield, with display labels resolved.
	require.NotNil(t, resp.Facets)
	bitFacet, ok := facetByValue(resp.Facets.Categories, bit.ID)
	require.True(t, ok)
	assert.Equal(t, 1, bitFacet.Count)
	assert.Equal(t, "Bit", bitFacet.Label)

	ideaFacet, ok := facetByValue(resp.Facets.Categories, idea.ID)
	require.True(t, ok)
	assert.Equal(t, 2, ideaFacet.Count)
	assert.Equal(t, "Idea", ideaFacet.Label)
}

func TestSearchTagFilterAndLogic(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Road Notes", noteText)
	cat := e.category(t, "Bit")
	both := e.capture(t, doc, cat.ID, 0, 9)
	one := e.capture(t, doc, cat.ID, 10, 19)

	tagA, err := e.tags.Create(ctx, e.user.ID, "openers", domain.TagTypeTechnique)
	require.NoError(t, err)
	tagB, err := e.tags.Create(ctx, e.user.ID, "tested", domain.TagTypeStatus)
	require.NoError(t, err)

	require.NoError(t, e.segments.SetTags(ctx, e.user.ID, both.ID, []string{tagA.ID, tagB.ID}))
	require.NoError(t, e.segments.SetTags(ctx, e.user.ID, one.ID, []string{tagA.ID}))

	params := search.DefaultSearchParams()
	params.TagIDs = []string{tagA.ID, tagB.ID}
	params.TagMode = search.TagModeAll
	resp, err := e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, both.ID, resp.Results[0].Segment.ID)

	params.TagMode = search.TagModeAny
	resp, err = e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestReindexAll(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	doc := e.registerDoc(t, "file-1", "Road Notes", noteText)
	cat := e.category(t, "Bit")
	e.capture(t, doc, cat.ID, 0, 9)
	e.capture(t, doc, cat.ID, 10, 19)

	count, err := e.searcher.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	params := search.DefaultSearchParams()
	resp, err := e.searcher.Search(ctx, e.user.ID, params)
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)
}
