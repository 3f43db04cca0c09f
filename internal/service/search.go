package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
	"github.com/docmarkapp/docmark-server/internal/search"
	"github.com/docmarkapp/docmark-server/internal/store"
)

const snippetLength = 200

// SearchService runs segment searches against the full-text index and
// hydrates the hits into full API results: segment rows, category and
// document display fields, tags, association counts, and snippets.
type SearchService struct {
	store  *store.Store
	index  *search.Index
	logger *slog.Logger
}

// NewSearchService creates a search service.
func NewSearchService(st *store.Store, index *search.Index, logger *slog.Logger) *SearchService {
	return &SearchService{store: st, index: index, logger: logger}
}

// SearchResultItem is one hydrated hit.
type SearchResultItem struct {
	Segment          *domain.Segment `json:"segment"`
	DocumentTitle    string          `json:"document_title"`
	CategoryName     string          `json:"category_name"`
	CategoryIcon     string          `json:"category_icon,omitempty"`
	Tags             []*domain.Tag   `json:"tags"`
	AssociationCount int             `json:"association_count"`
	Snippet          string          `json:"snippet"`
	Score            float64         `json:"score"`
}

// LabeledFacet is a facet value with its display label resolved.
type LabeledFacet struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabeledFacets groups the resolved facets per dimension.
type LabeledFacets struct {
	Categories []LabeledFacet `json:"categories"`
	Tags       []LabeledFacet `json:"tags"`
	Documents  []LabeledFacet `json:"documents"`
}

// SearchResponse is the hydrated outcome of one search call.
type SearchResponse struct {
	Query   string              `json:"query"`
	Total   uint64              `json:"total"`
	TookMs  int64               `json:"took_ms"`
	Results []*SearchResultItem `json:"results"`
	Facets  *LabeledFacets      `json:"facets,omitempty"`
}

// Search runs the query and hydrates every hit from the store. Index
// entries whose segment row has disappeared are dropped from the page
// rather than failing the search.
func (s *SearchService) Search(ctx context.Context, userID string, params search.SearchParams) (*SearchResponse, error) {
	params.UserID = userID
	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "search index")
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}

	segments, err := s.store.GetSegmentsByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.GetTagsForSegments(ctx, ids)
	if err != nil {
		return nil, err
	}
	assocCounts, err := s.store.CountAssociationsForSegments(ctx, ids)
	if err != nil {
		return nil, err
	}

	categories, err := s.categoriesByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	docIDs := make(map[string]bool)
	for _, seg := range segments {
		docIDs[seg.DocumentID] = true
	}
	docTitles, err := s.store.DocumentTitles(ctx, userID, keys(docIDs))
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Query:   result.Query,
		Total:   result.Total,
		TookMs:  result.TookMs,
		Results: make([]*SearchResultItem, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		seg, ok := segments[hit.ID]
		if !ok {
			s.logger.Warn("search hit has no segment row, skipping", "segment_id", hit.ID)
			continue
		}

		item := &SearchResultItem{
			Segment:          seg,
			DocumentTitle:    docTitles[seg.DocumentID],
			Tags:             tags[seg.ID],
			AssociationCount: assocCounts[seg.ID],
			Snippet:          snippet(hit.Highlights, seg.Text),
			Score:            hit.Score,
		}
		if item.Tags == nil {
			item.Tags = []*domain.Tag{}
		}
		if cat, ok := categories[seg.CategoryID]; ok {
			item.CategoryName = cat.Name
			item.CategoryIcon = cat.Icon
		}
		if params.Query == "" {
			item.Score = 0
		}
		response.Results = append(response.Results, item)
	}

	if params.IncludeFacets {
		facets, err := s.labelFacets(ctx, userID, result.Facets, categories, docTitles)
		if err != nil {
			return nil, err
		}
		response.Facets = facets
	}
	return response, nil
}

// snippet prefers the highlighted text fragment, then the highlighted
// title, then a plain prefix of the stored text.
func snippet(highlights map[string]string, text string) string {
	if frag, ok := highlights["text"]; ok && frag != "" {
		return frag
	}
	if frag, ok := highlights["title"]; ok && frag != "" {
		return frag
	}
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "…"
}

func (s *SearchService) categoriesByID(ctx context.Context, userID string) (map[string]*domain.Category, error) {
	list, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Category, len(list))
	for _, cat := range list {
		byID[cat.ID] = cat
	}
	return byID, nil
}

// labelFacets resolves facet values (entity ids) into display labels.
// Facet values whose entity is gone keep the raw id as label.
func (s *SearchService) labelFacets(ctx context.Context, userID string, facets search.Facets, categories map[string]*domain.Category, docTitles map[string]string) (*LabeledFacets, error) {
	out := &LabeledFacets{
		Categories: make([]LabeledFacet, 0, len(facets.Categories)),
		Tags:       make([]LabeledFacet, 0, len(facets.Tags)),
		Documents:  make([]LabeledFacet, 0, len(facets.Documents)),
	}

	for _, fc := range facets.Categories {
		label := fc.Value
		if cat, ok := categories[fc.Value]; ok {
			label = cat.Name
		}
		out.Categories = append(out.Categories, LabeledFacet{Value: fc.Value, Label: label, Count: fc.Count})
	}

	tagIDs := make([]string, len(facets.Tags))
	for i, fc := range facets.Tags {
		tagIDs[i] = fc.Value
	}
	tagsByID, err := s.store.GetTagsByIDs(ctx, userID, tagIDs)
	if err != nil {
		return nil, err
	}
	for _, fc := range facets.Tags {
		label := fc.Value
		if tag, ok := tagsByID[fc.Value]; ok {
			label = tag.Name
		}
		out.Tags = append(out.Tags, LabeledFacet{Value: fc.Value, Label: label, Count: fc.Count})
	}

	missing := make([]string, 0)
	for _, fc := range facets.Documents {
		if _, ok := docTitles[fc.Value]; !ok {
			missing = append(missing, fc.Value)
		}
	}
	if len(missing) > 0 {
		extra, err := s.store.DocumentTitles(ctx, userID, missing)
		if err != nil {
			return nil, err
		}
		for id, title := range extra {
			docTitles[id] = title
		}
	}
	for _, fc := range facets.Documents {
		label := fc.Value
		if title, ok := docTitles[fc.Value]; ok {
			label = title
		}
		out.Documents = append(out.Documents, LabeledFacet{Value: fc.Value, Label: label, Count: fc.Count})
	}

	return out, nil
}

// ReindexAll rebuilds the search index from the segment store.
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	start := time.Now()
	segments, err := s.store.ListAllSegments(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.index.Rebuild(); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "rebuild index")
	}

	docs := make([]*search.SegmentDocument, 0, len(segments))
	for _, seg := range segments {
		tagIDs, err := s.store.GetSegmentTagIDs(ctx, seg.ID)
		if err != nil {
			return 0, err
		}
		docs = append(docs, search.SegmentToDocument(seg, tagIDs))
	}
	if err := s.index.IndexDocuments(docs); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "index segments")
	}

	s.logger.Info("search index rebuilt",
		"segments", len(docs), "duration", time.Since(start).Round(time.Millisecond))
	return len(docs), nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
