package providers

import (
	"github.com/samber/do/v2"

	"github.com/seforimapp/seforim-server/internal/config"
	"github.com/seforimapp/seforim-server/internal/dictionary"
	"github.com/seforimapp/seforim-server/internal/logger"
	"github.com/seforimapp/seforim-server/internal/search"
	"github.com/seforimapp/seforim-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Storage.TextIndexPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("search index initialized", "documents", docCount)
	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ProvideDictionary provides the lexical dictionary; absence degrades the
// engine to no expansions.
func ProvideDictionary(i do.Injector) (dictionary.Index, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return dictionary.OpenOrNoop(cfg.Storage.DictionaryPath, log.Logger), nil
}

// ProvideQueryEngine provides the query engine with its store-backed
// snippet provider and the highlight blacklist.
func ProvideQueryEngine(i do.Injector) (*search.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	dict := do.MustInvoke[dictionary.Index](i)

	blacklist, err := dictionary.LoadBlacklist(cfg.Sources.BlacklistPath)
	if err != nil {
		return nil, err
	}

	return search.NewEngine(search.EngineOptions{
		Index:     indexHandle.SearchIndex,
		Dict:      dict,
		Blacklist: blacklist,
		Snippets:  service.NewStoreSnippetProvider(storeHandle.Store),
		Logger:    log.Logger,
	}), nil
}
