package providers

import (
	"github.com/samber/do/v2"

	"github.com/docmarkapp/docmark-server/internal/auth"
	"github.com/docmarkapp/docmark-server/internal/logger"
	"github.com/docmarkapp/docmark-server/internal/provider/gdocs"
	"github.com/docmarkapp/docmark-server/internal/service"
)

// ProvideAuthService provides the auth service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	google := do.MustInvoke[*gdocs.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, google, log.Logger), nil
}

// ProvideColorService provides the color assignment service.
func ProvideColorService(i do.Injector) (*service.ColorService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewColorService(storeHandle.Store, log.Logger), nil
}

// ProvideDocumentService provides the document service.
func ProvideDocumentService(i do.Injector) (*service.DocumentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	google := do.MustInvoke[*gdocs.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDocumentService(storeHandle.Store, google, log.Logger), nil
}

// ProvideSegmentService provides the segment service.
func ProvideSegmentService(i do.Injector) (*service.SegmentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	google := do.MustInvoke[*gdocs.Client](i)
	documents := do.MustInvoke[*service.DocumentService](i)
	colors := do.MustInvoke[*service.ColorService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSegmentService(storeHandle.Store, google, documents, colors, log.Logger), nil
}

// ProvideAssociationService provides the association service.
func ProvideAssociationService(i do.Injector) (*service.AssociationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAssociationService(storeHandle.Store, log.Logger), nil
}

// ProvideReconcileService provides the document reconciliation service.
func ProvideReconcileService(i do.Injector) (*service.ReconcileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	google := do.MustInvoke[*gdocs.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReconcileService(storeHandle.Store, google, log.Logger), nil
}

// ProvideSyncService provides the folder sync orchestrator.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	google := do.MustInvoke[*gdocs.Client](i)
	reconciler := do.MustInvoke[*service.ReconcileService](i)
	documents := do.MustInvoke[*service.DocumentService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSyncService(storeHandle.Store, google, reconciler, documents, log.Logger), nil
}

// ProvideCategoryService provides the category service.
func ProvideCategoryService(i do.Injector) (*service.CategoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCategoryService(storeHandle.Store, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}
