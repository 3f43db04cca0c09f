package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/service"
)

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Icon string `json:"icon"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	category, err := s.categories.Create(r.Context(), user.ID, req.Name, req.Icon)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, category, s.logger)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	categories, err := s.categories.List(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, categories, s.logger)
}

type updateCategoryRequest struct {
	Name *string `json:"name" validate:"omitempty,max=50"`
	Icon *string `json:"icon"`
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req updateCategoryRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	category, err := s.categories.Update(r.Context(), user.ID, chi.URLParam(r, "id"), service.CategoryUpdate{
		Name: req.Name,
		Icon: req.Icon,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, category, s.logger)
}

type reorderCategoriesRequest struct {
	CategoryIDs []string `json:"category_ids" validate:"required,min=1"`
}

func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req reorderCategoriesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	if err := s.categories.Reorder(r.Context(), user.ID, req.CategoryIDs); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	categories, err := s.categories.List(r.Context(), user.ID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, categories, s.logger)
}

// handleDeleteCategory deletes a category. When it still holds
// segments the caller must name a ?migrate_to= category for them.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	categoryID := chi.URLParam(r, "id")
	migrateTo := r.URL.Query().Get("migrate_to")

	if err := s.categories.Delete(r.Context(), user.ID, categoryID, migrateTo); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
