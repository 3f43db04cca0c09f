package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/service"
)

type createTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Type string `json:"type"`
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	tag, err := s.tags.Create(r.Context(), user.ID, req.Name, domain.TagType(req.Type))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, tag, s.logger)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	tagType := domain.TagType(r.URL.Query().Get("type"))

	tags, err := s.tags.List(r.Context(), user.ID, tagType)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tags, s.logger)
}

func (s *Server) handleAutocompleteTags(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tags, err := s.tags.Autocomplete(r.Context(), user.ID, r.URL.Query().Get("q"), limit)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tags, s.logger)
}

type updateTagRequest struct {
	Name *string `json:"name" validate:"omitempty,max=50"`
	Type *string `json:"type"`
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	var req updateTagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var tagType *domain.TagType
	if req.Type != nil {
		t := domain.TagType(*req.Type)
		tagType = &t
	}

	user := currentUser(r.Context())
	tag, err := s.tags.Update(r.Context(), user.ID, chi.URLParam(r, "id"), service.TagUpdate{
		Name: req.Name,
		Type: tagType,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, tag, s.logger)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if err := s.tags.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

type bulkTagRequest struct {
	SegmentIDs []string `json:"segment_ids" validate:"required,min=1"`
	TagNames   []string `json:"tag_names" validate:"required,min=1"`
	Type       string   `json:"type"`
}

// handleBulkTag applies a set of tags, created on demand, to many
// segments at once.
func (s *Server) handleBulkTag(w http.ResponseWriter, r *http.Request) {
	var req bulkTagRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	result, err := s.tags.BulkTag(r.Context(), user.ID, req.SegmentIDs, req.TagNames, domain.TagType(req.Type))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}
