package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/docmarkapp/docmark-server/internal/api"
	"github.com/docmarkapp/docmark-server/internal/config"
	"github.com/docmarkapp/docmark-server/internal/logger"
	"github.com/docmarkapp/docmark-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	handler := api.NewServer(api.Options{
		Store:        storeHandle.Store,
		Auth:         do.MustInvoke[*service.AuthService](i),
		Documents:    do.MustInvoke[*service.DocumentService](i),
		Segments:     do.MustInvoke[*service.SegmentService](i),
		Associations: do.MustInvoke[*service.AssociationService](i),
		Reconciler:   do.MustInvoke[*service.ReconcileService](i),
		Syncer:       do.MustInvoke[*service.SyncService](i),
		Searcher:     do.MustInvoke[*service.SearchService](i),
		Categories:   do.MustInvoke[*service.CategoryService](i),
		Tags:         do.MustInvoke[*service.TagService](i),
		CORSOrigins:  cfg.Server.CORSOrigins,
		Production:   cfg.IsProduction(),
		Logger:       log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
