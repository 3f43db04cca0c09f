// Package di provides dependency injection configuration for the DocMark server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/docmarkapp/docmark-server/internal/auth"
	"github.com/docmarkapp/docmark-server/internal/config"
	"github.com/docmarkapp/docmark-server/internal/di/providers"
	"github.com/docmarkapp/docmark-server/internal/logger"
	"github.com/docmarkapp/docmark-server/internal/provider/gdocs"
	"github.com/docmarkapp/docmark-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideTokenKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Provider layer
	do.Provide(injector, providers.ProvideGoogleClient)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideColorService)
	do.Provide(injector, providers.ProvideDocumentService)
	do.Provide(injector, providers.ProvideSegmentService)
	do.Provide(injector, providers.ProvideAssociationService)
	do.Provide(injector, providers.ProvideReconcileService)
	do.Provide(injector, providers.ProvideSyncService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideCategoryService)
	do.Provide(injector, providers.ProvideTagService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is
// running. Invoking everything eagerly surfaces wiring errors at boot
// rather than on first request.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.TokenKey](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*gdocs.Client](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ColorService](injector)
	_ = do.MustInvoke[*service.DocumentService](injector)
	_ = do.MustInvoke[*service.SegmentService](injector)
	_ = do.MustInvoke[*service.AssociationService](injector)
	_ = do.MustInvoke[*service.ReconcileService](injector)
	_ = do.MustInvoke[*service.SyncService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*service.CategoryService](injector)
	_ = do.MustInvoke[*service.TagService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index if it was lost.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
