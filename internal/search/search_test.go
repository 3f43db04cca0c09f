package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := NewIndex(Options{
		DataPath: t.TempDir(),
		Logger:   nil,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func seedSegment(t *testing.T, index *Index, doc *SegmentDocument) {
	t.Helper()
	require.NoError(t, index.IndexDocuments([]*SegmentDocument{doc}))
}

func hitIDs(result *SearchResult) []string {
	ids := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func facetCount(counts []FacetCount, value string) int {
	for _, c := range counts {
		if c.Value == value {
			return c.Count
		}
	}
	return 0
}

func TestNewIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndexSegment(t *testing.T) {
	index := setupTestIndex(t)

	now := time.Now()
	seg := &domain.Segment{
		ID:         "seg-1",
		UserID:     "usr-1",
		DocumentID: "doc-1",
		CategoryID: "cat-1",
		Text:       "opener about airports",
		IsPrimary:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, index.IndexSegment(context.Background(), seg, []string{"tag-1"}))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchTextMatch(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Title: "Airport security bit", Text: "the line at airport security",
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-2", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Title: "Coffee", Text: "why does coffee cost so much",
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.Query = "airport"
	params.IncludeFacets = false

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, []string{"seg-1"}, hitIDs(result))
}

func TestSearchScopedToUser(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "shared topic",
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-2", UserID: "usr-2", DocumentID: "doc-2", CategoryID: "cat-2",
		Text: "shared topic",
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.Query = "shared"
	params.IncludeFacets = false

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-1"}, hitIDs(result))
}

func TestSearchRequiresUser(t *testing.T) {
	index := setupTestIndex(t)

	params := DefaultSearchParams()
	params.Query = "anything"

	_, err := index.Search(context.Background(), params)
	assert.Error(t, err)
}

func TestSearchTagModes(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-both", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "a", TagIDs: []string{"tag-a", "tag-b"},
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-one", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "b", TagIDs: []string{"tag-a"},
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.TagIDs = []string{"tag-a", "tag-b"}
	params.IncludeFacets = false

	// Default mode requires every tag.
	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-both"}, hitIDs(result))

	params.TagMode = TagModeAny
	result, err = index.Search(ctx, params)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"seg-both", "seg-one"}, hitIDs(result))
}

func TestSearchCategoryFilter(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-bit", Text: "x",
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-2", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-idea", Text: "y",
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.CategoryIDs = []string{"cat-bit"}
	params.IncludeFacets = false

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-1"}, hitIDs(result))
}

func TestFacetsExcludeOwnDimension(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-bit", Text: "x",
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-2", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-idea", Text: "y",
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-3", UserID: "usr-1", DocumentID: "doc-2", CategoryID: "cat-idea", Text: "z",
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.CategoryIDs = []string{"cat-bit"}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)

	// Hits honor the category filter.
	assert.Equal(t, []string{"seg-1"}, hitIDs(result))

	// Category counts ignore the category filter: both values stay
	// visible so the user can switch, not just narrow.
	assert.Equal(t, 1, facetCount(result.Facets.Categories, "cat-bit"))
	assert.Equal(t, 2, facetCount(result.Facets.Categories, "cat-idea"))

	// Document counts keep the category filter applied.
	assert.Equal(t, 1, facetCount(result.Facets.Documents, "doc-1"))
	assert.Equal(t, 0, facetCount(result.Facets.Documents, "doc-2"))
}

func TestFacetsTagDimension(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "x", TagIDs: []string{"tag-a"},
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-2", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "y", TagIDs: []string{"tag-b"},
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.TagIDs = []string{"tag-a"}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-1"}, hitIDs(result))

	// Tag counts ignore the tag filter itself.
	assert.Equal(t, 1, facetCount(result.Facets.Tags, "tag-a"))
	assert.Equal(t, 1, facetCount(result.Facets.Tags, "tag-b"))
}

func TestSearchEmptyQuerySortsByRecency(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-old", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "x", CreatedAt: base.UnixMilli(),
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-new", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "y", CreatedAt: base.Add(time.Hour).UnixMilli(),
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.IncludeFacets = false

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-new", "seg-old"}, hitIDs(result))
}

func TestSearchCreatedRange(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-old", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "x", CreatedAt: base.UnixMilli(),
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-new", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Text: "y", CreatedAt: base.Add(48 * time.Hour).UnixMilli(),
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.CreatedAfter = base.Add(24 * time.Hour)
	params.IncludeFacets = false

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"seg-new"}, hitIDs(result))
}

func TestSearchHighlighting(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1",
		Title: "Airports", Text: "the line at airport security never moves",
	})

	params := DefaultSearchParams()
	params.UserID = "usr-1"
	params.Query = "airport"
	params.IncludeFacets = false

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.NotEmpty(t, result.Hits[0].Highlights)
}

func TestDeleteSegments(t *testing.T) {
	index := setupTestIndex(t)

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1", Text: "x",
	})
	seedSegment(t, index, &SegmentDocument{
		ID: "seg-2", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1", Text: "y",
	})

	require.NoError(t, index.DeleteSegments([]string{"seg-1", "seg-2"}))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)

	seedSegment(t, index, &SegmentDocument{
		ID: "seg-1", UserID: "usr-1", DocumentID: "doc-1", CategoryID: "cat-1", Text: "x",
	})

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
