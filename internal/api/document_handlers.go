package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/service"
)

type registerDocumentRequest struct {
	FileID string `json:"file_id" validate:"required"`
}

// handleRegisterDocument registers a Google Doc by file id.
func (s *Server) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	var req registerDocumentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	doc, err := s.documents.Register(r.Context(), user, req.FileID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, doc, s.logger)
}

type fromSelectionRequest struct {
	FileID      string   `json:"file_id" validate:"required"`
	StartOffset int      `json:"start_offset" validate:"gte=0"`
	EndOffset   int      `json:"end_offset" validate:"gtfield=StartOffset"`
	CategoryID  string   `json:"category_id" validate:"required"`
	Title       string   `json:"title" validate:"omitempty,max=200"`
	Color       string   `json:"color" validate:"omitempty,hexcolor"`
	TagIDs      []string `json:"tag_ids"`
}

// handleDocumentFromSelection registers a document and captures a
// first segment from the given selection in one call. The document is
// created on the fly when the file was not registered before.
func (s *Server) handleDocumentFromSelection(w http.ResponseWriter, r *http.Request) {
	var req fromSelectionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	seg, err := s.segments.Capture(r.Context(), user, service.CaptureInput{
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

	doc, err := s.documents.Get(r.Context(), user.ID, seg.DocumentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, map[string]any{
		"document": doc,
		"segment":  seg,
	}, s.logger)
}

// handleListDocuments returns the user's documents. ?active=false
// includes soft-deleted documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	page := parsePageParams(r)
	activeOnly := r.URL.Query().Get("active") != "false"

	docs, total, err := s.documents.List(r.Context(), user.ID, activeOnly, page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Page(w, docs, total, page.Limit, page.Offset, s.logger)
}

// handleGetDocument returns a single document with its segments.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	documentID := chi.URLParam(r, "id")

	doc, err := s.documents.Get(r.Context(), user.ID, documentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	segments, err := s.documents.Segments(r.Context(), user.ID, documentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{
		"document": doc,
		"segments": segments,
	}, s.logger)
}

// handleDeleteDocument removes a document. ?cascade=true deletes its
// segments too; without it a document that still has segments is kept.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	documentID := chi.URLParam(r, "id")
	cascade := r.URL.Query().Get("cascade") == "true"

	if err := s.documents.Delete(r.Context(), user.ID, documentID, cascade); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleSyncDocument reconciles one document against its live source.
func (s *Server) handleSyncDocument(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	documentID := chi.URLParam(r, "id")

	result, err := s.reconciler.SyncDocument(r.Context(), user, documentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}
