package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// TagMode selects how multiple tag filters combine.
type TagMode string

const (
	// TagModeAll requires every listed tag on a segment.
	TagModeAll TagMode = "all"
	// TagModeAny requires at least one listed tag.
	TagModeAny TagMode = "any"
)

// Facet dimensions. Each one maps to an index field and to the filter
// clause it excludes when its counts are computed.
const (
	dimDocument = "document_id"
	dimCategory = "category_id"
	dimTag      = "tag_ids"
)

var facetDimensions = []string{dimCategory, dimTag, dimDocument}

// SearchParams configures a segment search. UserID is mandatory; every
// query is scoped to one user's segments.
type SearchParams struct {
	UserID string
	Query  string

	// Filters
	DocumentIDs   []string
	CategoryIDs   []string
	TagIDs        []string
	TagMode       TagMode // defaults to TagModeAll
	PrimaryOnly   bool
	CreatedAfter  time.Time
	CreatedBefore time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "created", "updated", "word_count"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         50,
		Offset:        0,
		TagMode:       TagModeAll,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult holds ranked hits plus facet counts.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
	Facets Facets      `json:"facets,omitempty"`
}

// SearchHit is one ranked segment. Callers hydrate the full segment
// from the store; the hit carries only what the index knows.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	DocumentID string            `json:"document_id,omitempty"`
	CategoryID string            `json:"category_id,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Facets holds per-dimension counts. Counts for a dimension are computed
// with every active filter applied except that dimension's own, so the
// values a user could still add to the current result set always show
// their true effect.
type Facets struct {
	Categories []FacetCount `json:"categories,omitempty"`
	Tags       []FacetCount `json:"tags,omitempty"`
	Documents  []FacetCount `json:"documents,omitempty"`
}

// FacetCount is a facet value (an entity id) and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// filterClause is one named predicate of a search. The dimension ties a
// clause to the facet that must ignore it; clauses with an empty
// dimension apply to every facet computation.
type filterClause struct {
	dimension string
	q         query.Query
}

// Search executes a segment search with facet counts.
func (s *Index) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.UserID == "" {
		return nil, fmt.Errorf("search requires a user id")
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}

	clauses := buildClauses(params)

	searchRequest := bleve.NewSearchRequestOptions(
		conjunctionExcluding(clauses, ""), params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("text")
	}

	searchRequest.Fields = []string{"id", "document_id", "category_id"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if d, ok := hit.Fields["document_id"].(string); ok {
			searchHit.DocumentID = d
		}
		if c, ok := hit.Fields["category_id"].(string); ok {
			searchHit.CategoryID = c
		}
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, searchHit)
	}

	if params.IncludeFacets {
		facets, err := s.computeFacets(ctx, clauses)
		if err != nil {
			return nil, err
		}
		result.Facets = facets
	}

	return result, nil
}

// computeFacets runs one zero-hit query per dimension, each built from
// the full clause set minus that dimension's own filter.
func (s *Index) computeFacets(ctx context.Context, clauses []filterClause) (Facets, error) {
	facets := Facets{}

	for _, dim := range facetDimensions {
		req := bleve.NewSearchRequestOptions(conjunctionExcluding(clauses, dim), 0, 0, false)
		req.AddFacet(dim, bleve.NewFacetRequest(dim, 50))

		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return Facets{}, fmt.Errorf("facet %s: %w", dim, err)
		}

		facet, ok := res.Facets[dim]
		if !ok {
			continue
		}
		counts := make([]FacetCount, 0, len(facet.Terms.Terms()))
		for _, term := range facet.Terms.Terms() {
			counts = append(counts, FacetCount{Value: term.Term, Count: term.Count})
		}

		switch dim {
		case dimCategory:
			facets.Categories = counts
		case dimTag:
			facets.Tags = counts
		case dimDocument:
			facets.Documents = counts
		}
	}

	return facets, nil
}

// buildClauses turns params into the named clause set shared by the main
// query and every facet computation.
func buildClauses(params SearchParams) []filterClause {
	var clauses []filterClause

	userQuery := bleve.NewTermQuery(params.UserID)
	userQuery.SetField("user_id")
	clauses = append(clauses, filterClause{q: userQuery})

	if params.Query != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		textMatch := bleve.NewMatchQuery(params.Query)
		textMatch.SetField("text")
		textQueries = append(textQueries, textMatch)

		// Typo tolerance on the title
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		clauses = append(clauses, filterClause{q: bleve.NewDisjunctionQuery(textQueries...)})
	}

	if len(params.DocumentIDs) > 0 {
		docQueries := make([]query.Query, len(params.DocumentIDs))
		for i, id := range params.DocumentIDs {
			dq := bleve.NewTermQuery(id)
			dq.SetField("document_id")
			docQueries[i] = dq
		}
		clauses = append(clauses, filterClause{
			dimension: dimDocument,
			q:         bleve.NewDisjunctionQuery(docQueries...),
		})
	}

	if len(params.CategoryIDs) > 0 {
		catQueries := make([]query.Query, len(params.CategoryIDs))
		for i, id := range params.CategoryIDs {
			cq := bleve.NewTermQuery(id)
			cq.SetField("category_id")
			catQueries[i] = cq
		}
		clauses = append(clauses, filterClause{
			dimension: dimCategory,
			q:         bleve.NewDisjunctionQuery(catQueries...),
		})
	}

	if len(params.TagIDs) > 0 {
		tagQueries := make([]query.Query, len(params.TagIDs))
		for i, id := range params.TagIDs {
			tq := bleve.NewTermQuery(id)
			tq.SetField("tag_ids")
			tagQueries[i] = tq
		}
		var tagClause query.Query
		if params.TagMode == TagModeAny {
			tagClause = bleve.NewDisjunctionQuery(tagQueries...)
		} else {
			tagClause = bleve.NewConjunctionQuery(tagQueries...)
		}
		clauses = append(clauses, filterClause{dimension: dimTag, q: tagClause})
	}

	if params.PrimaryOnly {
		pq := bleve.NewTermQuery("true")
		pq.SetField("is_primary")
		clauses = append(clauses, filterClause{q: pq})
	}

	if !params.CreatedAfter.IsZero() || !params.CreatedBefore.IsZero() {
		var min, max *float64
		if !params.CreatedAfter.IsZero() {
			v := float64(params.CreatedAfter.UnixMilli())
			min = &v
		}
		if !params.CreatedBefore.IsZero() {
			v := float64(params.CreatedBefore.UnixMilli())
			max = &v
		}
		rangeQuery := bleve.NewNumericRangeQuery(min, max)
		rangeQuery.SetField("created_at")
		clauses = append(clauses, filterClause{q: rangeQuery})
	}

	return clauses
}

// conjunctionExcluding ANDs all clauses except those tagged with the
// given dimension. An empty skip keeps everything.
func conjunctionExcluding(clauses []filterClause, skip string) query.Query {
	var queries []query.Query
	for _, c := range clauses {
		if skip != "" && c.dimension == skip {
			continue
		}
		queries = append(queries, c.q)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order. A blank text query has no useful
// relevance signal, so it falls back to recency.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "created", "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	case "updated":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"updated_at"})
		} else {
			req.SortBy([]string{"-updated_at"})
		}
	case "word_count":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"word_count"})
		} else {
			req.SortBy([]string{"-word_count"})
		}
	default:
		if params.Query == "" {
			req.SortBy([]string{"-created_at"})
		} else {
			req.SortBy([]string{"-_score"})
		}
	}
}
