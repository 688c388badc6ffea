package providers

import (
	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/logger"
	"github.com/playforge/playforge-server/internal/service"
	"github.com/playforge/playforge-server/internal/validation"
)

// ProvideGameService provides the game business service.
func ProvideGameService(i do.Injector) (*service.GameService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	historyHandle := do.MustInvoke[*HistoryHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGameService(storeHandle.Store, historyHandle.Store, indexHandle.SearchIndex, v, log.Logger), nil
}

// ProvidePlaylistService provides the playlist business service.
func ProvidePlaylistService(i do.Injector) (*service.PlaylistService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlaylistService(storeHandle.Store, v, log.Logger), nil
}
