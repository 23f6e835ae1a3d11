// Package di assembles the dependency injection container for the build
// and query tooling.
package di

import (
	"github.com/samber/do/v2"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/di/providers"
)

// NewContainer builds the injector with every provider registered. The
// caller owns shutdown via injector.Shutdown().
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideDictionary)
	do.Provide(injector, providers.ProvideQueryEngine)
	do.Provide(injector, providers.ProvideBuildService)

	return injector
}
