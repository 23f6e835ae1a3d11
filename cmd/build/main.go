// Command build runs a full corpus build: it ingests the configured
// upstream exports into seforim.db and produces the precomputed catalog
// and the text index beside it.
//
// Usage:
//
//	build --db-path ~/seforim/seforim.db --sefaria-dir ~/exports/sefaria
//	build --db-path ./seforim.db --otzaria-dir ./otzaria --release-info true
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/di"
	"github.com/seforimapp/seforim-server/internal/logger"
	"github.com/seforimapp/seforim-server/internal/service"

	"github.com/samber/do/v2"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New(logger.Config{}).Fatal("invalid configuration", "error", err)
	}

	injector := di.NewContainer(cfg)
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := do.MustInvoke[*service.BuildService](injector)
	summary, err := builder.Run(ctx)
	if err != nil {
		log.Error("build failed",
			"error", err,
			"books", summary.BooksProcessed,
			"skipped", summary.BooksSkipped,
		)
		injector.Shutdown()
		os.Exit(1)
	}

	log.Info("build summary",
		"books_processed", summary.BooksProcessed,
		"books_skipped", summary.BooksSkipped,
		"links_resolved", summary.LinksResolved,
		"links_unresolved", summary.LinksUnresolved,
	)
	injector.Shutdown()
}
