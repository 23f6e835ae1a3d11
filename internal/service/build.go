package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/seforimapp/seforim-server/internal/catalog"
	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/ingest"
	"github.com/seforimapp/seforim-server/internal/search"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

// releaseInfoFile is written beside the database after a successful build.
const releaseInfoFile = "release_info.txt"

// BuildService runs a full corpus build: ingestion, link resolution, the
// derived-flag post-pass, the category closure, the precomputed catalog,
// and the text index.
type BuildService struct {
	cfg    *config.Config
	store  *sqlite.Store
	index  *search.SearchIndex
	logger *slog.Logger
}

// NewBuildService wires a build run over open artifacts.
func NewBuildService(cfg *config.Config, store *sqlite.Store, index *search.SearchIndex, logger *slog.Logger) *BuildService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BuildService{cfg: cfg, store: store, index: index, logger: logger}
}

// Run executes the whole build and returns the run summary. Per-record
// failures are counted in the summary; anything that breaks a store
// invariant aborts.
func (s *BuildService) Run(ctx context.Context) (domain.BuildSummary, error) {
	var summary domain.BuildSummary
	start := time.Now()

	priorities, err := ingest.LoadPriorities(s.cfg.Sources.PrioritiesPath)
	if err != nil {
		return summary, err
	}

	tasks, csvPaths, err := s.collectSources(priorities)
	if err != nil {
		return summary, err
	}
	if len(tasks) == 0 {
		return summary, fmt.Errorf("no sources configured: set a sefaria or otzaria export directory")
	}

	// Ingestion: parallel preparation, one serialized writer.
	pipeline := ingest.NewPipeline(s.store, s.logger, 0)
	corpus, ingestSummary, err := pipeline.Run(ctx, tasks)
	summary.Merge(ingestSummary)
	if err != nil {
		return summary, err
	}

	// Link resolution and the derived-flag post-pass.
	resolver := ingest.NewResolver(corpus, s.store, priorities, s.logger, s.cfg.Storage.BatchSize)
	resolved, unresolved, err := resolver.ResolveFiles(ctx, csvPaths)
	summary.LinksResolved = resolved
	summary.LinksUnresolved = unresolved
	if err != nil {
		return summary, err
	}
	if err := resolver.RefreshConnectionFlags(ctx); err != nil {
		return summary, err
	}

	// Navigation artifacts.
	if err := s.store.RebuildCategoryClosure(ctx); err != nil {
		return summary, err
	}
	cat, err := catalog.Build(ctx, s.store)
	if err != nil {
		return summary, err
	}
	if err := catalog.Write(cat, filepath.Dir(s.cfg.Storage.DatabasePath)); err != nil {
		return summary, err
	}

	// Text index, rebuilt from scratch; sessions on the old snapshot
	// keep working until they close.
	if err := s.rebuildTextIndex(ctx); err != nil {
		return summary, err
	}

	if s.cfg.Storage.WriteReleaseInfo {
		if err := s.writeReleaseInfo(); err != nil {
			return summary, err
		}
	}

	s.logger.Info("build finished",
		"books", summary.BooksProcessed,
		"skipped", summary.BooksSkipped,
		"links_resolved", summary.LinksResolved,
		"links_unresolved", summary.LinksUnresolved,
		"took", time.Since(start),
	)
	return summary, nil
}

// collectSources assembles preparation tasks and link CSVs from every
// configured upstream export.
func (s *BuildService) collectSources(priorities *ingest.Priorities) ([]ingest.PrepareFunc, []string, error) {
	var tasks []ingest.PrepareFunc
	var csvs []string

	if dir := s.cfg.Sources.SefariaDir; dir != "" {
		t, c, err := ingest.NewSefariaReader(dir, priorities, s.logger).Tasks()
		if err != nil {
			return nil, nil, fmt.Errorf("sefaria export: %w", err)
		}
		tasks = append(tasks, t...)
		csvs = append(csvs, c...)
	}
	if dir := s.cfg.Sources.OtzariaDir; dir != "" {
		t, c, err := ingest.NewOtzariaReader(dir, s.logger).Tasks()
		if err != nil {
			return nil, nil, fmt.Errorf("otzaria export: %w", err)
		}
		tasks = append(tasks, t...)
		csvs = append(csvs, c...)
	}
	return tasks, csvs, nil
}

// rebuildTextIndex reindexes every line and book title from the store
// into a fresh index snapshot.
func (s *BuildService) rebuildTextIndex(ctx context.Context) error {
	if err := s.index.Rebuild(); err != nil {
		return err
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return err
	}

	writer := s.index.NewWriter(s.cfg.Storage.BatchSize)
	for _, book := range books {
		ancestors, err := s.store.AncestorCategoryIDs(ctx, book.CategoryID)
		if err != nil {
			return err
		}
		ancestors = append([]int64{book.CategoryID}, ancestors...)

		lines, err := s.store.GetLinesForBook(ctx, book.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := writer.AddLine(&search.LineDocument{
				LineID:              line.ID,
				BookID:              book.ID,
				CategoryID:          book.CategoryID,
				BookTitle:           book.Title,
				LineIndex:           line.LineIndex,
				OrderIndex:          book.Order,
				IsBaseBook:          book.IsBaseBook,
				Text:                line.Content,
				AncestorCategoryIDs: ancestors,
			}); err != nil {
				return err
			}
		}

		if err := writer.AddBookTitleTerm(&search.BookTitleDocument{
			BookID:     book.ID,
			CategoryID: book.CategoryID,
			Title:      book.Title,
		}); err != nil {
			return err
		}
	}

	if err := writer.Commit(); err != nil {
		return err
	}
	s.logger.Info("text index rebuilt", "documents", writer.Count())
	return nil
}

// writeReleaseInfo emits a single UTC timestamp line beside the database.
func (s *BuildService) writeReleaseInfo() error {
	path := filepath.Join(filepath.Dir(s.cfg.Storage.DatabasePath), releaseInfoFile)
	stamp := time.Now().UTC().Format("20060102150405")
	if err := os.WriteFile(path, []byte(stamp+"\n"), 0o644); err != nil {
		return fmt.Errorf("write release info: %w", err)
	}
	return nil
}
