package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docmarkapp/docmark-server/internal/http/response"
)

// handleFullSync reconciles every watched document against the user's
// Drive folder. One sync per user at a time.
func (s *Server) handleFullSync(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	result, err := s.syncer.FullSync(r.Context(), user)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

// handleSyncStatus returns the sync audit log, newest first.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	page := parsePageParams(r)

	logs, total, err := s.syncer.Status(r.Context(), user.ID, page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Page(w, logs, total, page.Limit, page.Offset, s.logger)
}

// handleSyncDocumentByID reconciles a single document.
func (s *Server) handleSyncDocumentByID(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	result, err := s.reconciler.SyncDocument(r.Context(), user, chi.URLParam(r, "document_id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}
