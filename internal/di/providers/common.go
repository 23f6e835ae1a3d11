// Package providers contains the dependency injection providers for the
// Seforim build and query tooling.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/logger"
)

// ProvideLogger provides the application logger from config.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}
