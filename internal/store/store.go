// Package store persists games and playlists in a Badger key-value
// database, using JSON documents under prefixed keys plus "idx:" keys
// for secondary lookups.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/playforge/playforge-server/internal/domain"
)

// SearchIndexer is the interface for keeping the full-text search index
// in sync with store changes. Index updates never fail store operations.
type SearchIndexer interface {
	IndexGame(ctx context.Context, game *domain.Game) error
	DeleteGame(ctx context.Context, gameID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexGame is a no-op.
func (NoopSearchIndexer) IndexGame(context.Context, *domain.Game) error { return nil }

// DeleteGame is a no-op.
func (NoopSearchIndexer) DeleteGame(context.Context, string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Search indexer for keeping search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular
	// dependencies.
	searchIndexer SearchIndexer
}

// New creates a new Store instance at the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// Set after store creation (store needs to exist before the search
// service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// Helper methods for database operations.

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// delete removes a key from the database.
func (s *Store) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// indexGame pushes a game into the search index when one is attached.
// Failures are logged, never surfaced: search lags rather than blocking
// writes.
func (s *Store) indexGame(ctx context.Context, game *domain.Game) {
	if s.searchIndexer == nil {
		return
	}
	if err := s.searchIndexer.IndexGame(ctx, game); err != nil && s.logger != nil {
		s.logger.Warn("failed to index game", "game_id", game.ID, "error", err)
	}
}

// unindexGame removes a game from the search index when one is attached.
func (s *Store) unindexGame(ctx context.Context, gameID string) {
	if s.searchIndexer == nil {
		return
	}
	if err := s.searchIndexer.DeleteGame(ctx, gameID); err != nil && s.logger != nil {
		s.logger.Warn("failed to remove game from index", "game_id", gameID, "error", err)
	}
}
