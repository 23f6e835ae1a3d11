package providers

import (
	"github.com/samber/do/v2"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/logger"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

// StoreHandle wraps the relational store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := sqlite.Open(cfg.Storage.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("relational store opened", "path", cfg.Storage.DatabasePath)
	return &StoreHandle{Store: store}, nil
}
