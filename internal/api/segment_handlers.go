package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docmarkapp/docmark-server/internal/domain"
	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/service"
	"github.com/docmarkapp/docmark-server/internal/store"
)

type captureSegmentRequest struct {
	DocumentID  string   `json:"document_id"`
	FileID      string   `json:"file_id"`
	StartOffset int      `json:"start_offset" validate:"gte=0"`
	EndOffset   int      `json:"end_offset" validate:"gtfield=StartOffset"`
	CategoryID  string   `json:"category_id" validate:"required"`
	Title       string   `json:"title" validate:"omitempty,max=200"`
	Color       string   `json:"color" validate:"omitempty,hexcolor"`
	TagIDs      []string `json:"tag_ids"`
}

// handleCaptureSegment creates a segment over a document selection.
func (s *Server) handleCaptureSegment(w http.ResponseWriter, r *http.Request) {
	var req captureSegmentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	seg, err := s.segments.Capture(r.Context(), user, service.CaptureInput{
		DocumentID:  req.DocumentID,
		FileID:      req.FileID,
		StartOffset: req.StartOffset,
		EndOffset:   req.EndOffset,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Color:       req.Color,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, seg, s.logger)
}

// handleListSegments returns the user's segments, optionally filtered
// by document or category.
func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	page := parsePageParams(r)
	filter := store.SegmentListFilter{
		DocumentID: r.URL.Query().Get("document_id"),
		CategoryID: r.URL.Query().Get("category_id"),
	}

	items, total, err := s.segments.List(r.Context(), user.ID, filter, page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Page(w, items, total, page.Limit, page.Offset, s.logger)
}

// handleGetSegment returns one segment with tags and associations.
func (s *Server) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	segmentID := chi.URLParam(r, "id")

	detail, err := s.segments.Get(r.Context(), user.ID, segmentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, detail, s.logger)
}

type updateSegmentRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	CategoryID  *string `json:"category_id"`
	Color       *string `json:"color"`
	IsPrimary   *bool   `json:"is_primary"`
	StartOffset *int    `json:"start_offset" validate:"omitempty,gte=0"`
	EndOffset   *int    `json:"end_offset"`
}

// handleUpdateSegment edits a segment.
func (s *Server) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	var req updateSegmentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	seg, err := s.segments.Update(r.Context(), user, chi.URLParam(r, "id"), service.UpdateInput{
		Title:       req.Title,
		CategoryID:  req.CategoryID,
		Color:       req.Color,
		IsPrimary:   req.IsPrimary,
		StartOffset: req.StartOffset,
		EndOffset:   req.EndOffset,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, seg, s.logger)
}

// handleDeleteSegment removes a segment. ?cascade_associations=true
// also deletes segments spawned from it by copying associations.
func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	segmentID := chi.URLParam(r, "id")
	cascade := r.URL.Query().Get("cascade_associations") == "true"

	if err := s.segments.Delete(r.Context(), user, segmentID, cascade); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleRepairSegmentMarker re-creates missing markers in the
// segment's document from stored offsets.
func (s *Server) handleRepairSegmentMarker(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	segmentID := chi.URLParam(r, "id")

	detail, err := s.segments.Get(r.Context(), user.ID, segmentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	result, err := s.reconciler.RepairMarkers(r.Context(), user, detail.Segment.DocumentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

type setSegmentTagsRequest struct {
	TagIDs []string `json:"tag_ids" validate:"required"`
}

// handleSetSegmentTags replaces a segment's tag set.
func (s *Server) handleSetSegmentTags(w http.ResponseWriter, r *http.Request) {
	var req setSegmentTagsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	segmentID := chi.URLParam(r, "id")
	if err := s.segments.SetTags(r.Context(), user.ID, segmentID, req.TagIDs); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	detail, err := s.segments.Get(r.Context(), user.ID, segmentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, detail, s.logger)
}

type associateRequest struct {
	TargetSegmentID string `json:"target_segment_id"`
	Type            string `json:"type" validate:"required"`
}

// handleAssociateSegment creates a typed edge from this segment.
func (s *Server) handleAssociateSegment(w http.ResponseWriter, r *http.Request) {
	var req associateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	result, err := s.associations.Associate(r.Context(), user.ID, chi.URLParam(r, "id"), service.AssociateInput{
		TargetSegmentID: req.TargetSegmentID,
		Type:            domain.AssociationType(req.Type),
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, result, s.logger)
}

// handleListAssociations lists edges touching this segment, both
// directions.
func (s *Server) handleListAssociations(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	associations, err := s.associations.List(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, associations, s.logger)
}

// handleDeleteAssociation removes an edge. The segments on either end
// are left alone.
func (s *Server) handleDeleteAssociation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if err := s.associations.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
