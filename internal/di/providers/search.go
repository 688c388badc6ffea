package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/config"
	"github.com/playforge/playforge-server/internal/logger"
	"github.com/playforge/playforge-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index and wires it to
// the store for automatic indexing on game writes.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// TriggerSearchRebuildIfNeeded reindexes the public catalog when the
// index is empty but public games exist. Should be called after all
// services are wired.
func TriggerSearchRebuildIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	games, err := storeHandle.ListPublicGames(ctx)
	if err != nil || len(games) == 0 {
		return
	}

	log.Info("Search index is empty but public games exist, triggering rebuild",
		"game_count", len(games),
	)

	go func() {
		if err := indexHandle.IndexGames(context.Background(), games); err != nil {
			log.Error("Search index rebuild failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Search index rebuild completed", "documents", count)
	}()
}
