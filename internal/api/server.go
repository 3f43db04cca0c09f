// Package api provides the HTTP API server and handlers for the DocMark application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/ratelimit"
	"github.com/docmarkapp/docmark-server/internal/service"
	"github.com/docmarkapp/docmark-server/internal/store"
	"github.com/docmarkapp/docmark-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        *store.Store
	auth         *service.AuthService
	documents    *service.DocumentService
	segments     *service.SegmentService
	associations *service.AssociationService
	reconciler   *service.ReconcileService
	syncer       *service.SyncService
	searcher     *service.SearchService
	categories   *service.CategoryService
	tags         *service.TagService

	validator   *validation.Validator
	syncLimiter *ratelimit.KeyedRateLimiter
	router      *chi.Mux
	logger      *slog.Logger
	production  bool
}

// Options bundles the server's dependencies.
type Options struct {
	Store        *store.Store
	Auth         *service.AuthService
	Documents    *service.DocumentService
	Segments     *service.SegmentService
	Associations *service.AssociationService
	Reconciler   *service.ReconcileService
	Syncer       *service.SyncService
	Searcher     *service.SearchService
	Categories   *service.CategoryService
	Tags         *service.TagService

	CORSOrigins []string
	Production  bool
	Logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		store:        opts.Store,
		auth:         opts.Auth,
		documents:    opts.Documents,
		segments:     opts.Segments,
		associations: opts.Associations,
		reconciler:   opts.Reconciler,
		syncer:       opts.Syncer,
		searcher:     opts.Searcher,
		categories:   opts.Categories,
		tags:         opts.Tags,
		validator:    validation.New(),
		syncLimiter:  ratelimit.New(1, 3),
		router:       chi.NewRouter(),
		logger:       opts.Logger,
		production:   opts.Production,
	}

	s.setupMiddleware(opts.CORSOrigins)
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(corsOrigins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google", s.handleGoogleLogin)
			r.Get("/google/callback", s.handleGoogleCallback)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/me", s.handleGetMe)
				r.Post("/logout", s.handleLogout)
				r.Put("/settings", s.handleUpdateSettings)
			})
		})

		// Documents.
		r.Route("/documents", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleRegisterDocument)
			r.Post("/from-selection", s.handleDocumentFromSelection)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
			r.Post("/{id}/sync", s.handleSyncDocument)
		})

		// Segments.
		r.Route("/segments", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListSegments)
			r.Post("/", s.handleCaptureSegment)
			r.Get("/{id}", s.handleGetSegment)
			r.Put("/{id}", s.handleUpdateSegment)
			r.Delete("/{id}", s.handleDeleteSegment)
			r.Put("/{id}/markers", s.handleRepairSegmentMarker)
			r.Put("/{id}/tags", s.handleSetSegmentTags)
			r.Post("/{id}/associate", s.handleAssociateSegment)
			r.Get("/{id}/associations", s.handleListAssociations)
		})

		// Associations.
		r.With(s.requireAuth).Delete("/associations/{id}", s.handleDeleteAssociation)

		// Categories.
		r.Route("/categories", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/reorder", s.handleReorderCategories)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		// Tags.
		r.Route("/tags", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListTags)
			r.Post("/", s.handleCreateTag)
			r.Get("/autocomplete", s.handleAutocompleteTags)
			r.Post("/bulk", s.handleBulkTag)
			r.Put("/{id}", s.handleUpdateTag)
			r.Delete("/{id}", s.handleDeleteTag)
		})

		// Search.
		r.With(s.requireAuth).Post("/search", s.handleSearch)

		// Sync.
		r.Route("/sync", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.syncRateLimit)
			r.Post("/full", s.handleFullSync)
			r.Get("/status", s.handleSyncStatus)
			r.Post("/document/{document_id}", s.handleSyncDocumentByID)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
