package providers

import (
	"github.com/samber/do/v2"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/logger"
	"github.com/seforimapp/seforim-server/internal/service"
)

// ProvideBuildService provides the build orchestrator.
func ProvideBuildService(i do.Injector) (*service.BuildService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)

	return service.NewBuildService(cfg, storeHandle.Store, indexHandle.SearchIndex, log.Logger), nil
}
