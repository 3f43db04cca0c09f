package api

import (
	"net/http"
	"time"

	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`

	DocumentIDs   []string   `json:"document_ids"`
	CategoryIDs   []string   `json:"category_ids"`
	TagIDs        []string   `json:"tag_ids"`
	TagMode       string     `json:"tag_mode" validate:"omitempty,oneof=all any"`
	PrimaryOnly   bool       `json:"primary_only"`
	CreatedAfter  *time.Time `json:"created_after"`
	CreatedBefore *time.Time `json:"created_before"`

	Limit     int    `json:"limit" validate:"omitempty,gte=1,lte=200"`
	Offset    int    `json:"offset" validate:"gte=0"`
	SortBy    string `json:"sort_by" validate:"omitempty,oneof=relevance created updated word_count"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`

	IncludeFacets *bool `json:"include_facets"`
	Highlight     *bool `json:"highlight"`
}

// handleSearch runs a ranked full-text search over the user's
// segments.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	params := search.DefaultSearchParams()
	params.Query = req.Query
	params.DocumentIDs = req.DocumentIDs
	params.CategoryIDs = req.CategoryIDs
	params.TagIDs = req.TagIDs
	params.PrimaryOnly = req.PrimaryOnly
	if req.TagMode != "" {
		params.TagMode = search.TagMode(req.TagMode)
	}
	if req.CreatedAfter != nil {
		params.CreatedAfter = *req.CreatedAfter
	}
	if req.CreatedBefore != nil {
		params.CreatedBefore = *req.CreatedBefore
	}
	if req.Limit > 0 {
		params.Limit = req.Limit
	}
	params.Offset = req.Offset
	if req.SortBy != "" {
		params.SortBy = req.SortBy
	}
	if req.SortOrder != "" {
		params.SortOrder = req.SortOrder
	}
	if req.IncludeFacets != nil {
		params.IncludeFacets = *req.IncludeFacets
	}
	if req.Highlight != nil {
		params.Highlight = *req.Highlight
	}

	user := currentUser(r.Context())
	result, err := s.searcher.Search(r.Context(), user.ID, params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Page(w, result, int(result.Total), params.Limit, params.Offset, s.logger)
}
