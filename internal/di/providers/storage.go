package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/config"
	"github.com/playforge/playforge-server/internal/history"
	"github.com/playforge/playforge-server/internal/logger"
	"github.com/playforge/playforge-server/internal/settings"
	"github.com/playforge/playforge-server/internal/store"
)

// StoreHandle wraps the game store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the Badger-backed game and playlist store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Game store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// HistoryHandle wraps the play-history store with shutdown capability.
type HistoryHandle struct {
	*history.Store
}

// Shutdown implements do.Shutdownable.
func (h *HistoryHandle) Shutdown() error {
	return h.Close()
}

// ProvideHistory provides the SQLite play-history store.
func ProvideHistory(i do.Injector) (*HistoryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "history.db")
	db, err := history.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Play history initialized", "path", dbPath)

	return &HistoryHandle{Store: db}, nil
}

// SettingsHandle wraps the settings service with its watcher lifecycle.
type SettingsHandle struct {
	*settings.Service
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SettingsHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideSettings provides the file-backed generation settings, watched
// for operator edits.
func ProvideSettings(i do.Injector) (*SettingsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc, err := settings.New(cfg.Settings.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := svc.Watch(ctx); err != nil {
			log.Warn("Settings watcher stopped", "error", err)
		}
	}()

	log.Info("Generation settings loaded", "path", cfg.Settings.Path)

	return &SettingsHandle{Service: svc, cancel: cancel}, nil
}
