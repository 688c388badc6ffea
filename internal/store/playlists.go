package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/playforge/playforge-server/internal/domain"
)

const (
	playlistPrefix        = "playlist:"
	playlistByOwnerPrefix = "idx:playlists:owner:"
)

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrPlaylistExists   = errors.New("playlist already exists")
)

func playlistOwnerKey(ownerID, playlistID string) []byte {
	return []byte(playlistByOwnerPrefix + ownerID + ":" + playlistID)
}

// Playlist Operations

// CreatePlaylist creates a new playlist together with its owner key.
func (s *Store) CreatePlaylist(ctx context.Context, playlist *domain.Playlist) error {
	key := []byte(playlistPrefix + playlist.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check playlist exists: %w", err)
	}
	if exists {
		return ErrPlaylistExists
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(playlist)
		if err != nil {
			return fmt.Errorf("marshal playlist: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(playlistOwnerKey(playlist.UserID, playlist.ID), []byte(playlist.ID))
	})
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("playlist created", "id", playlist.ID, "title", playlist.Title, "owner", playlist.UserID)
	}
	return nil
}

// GetPlaylist retrieves a playlist by ID.
func (s *Store) GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error) {
	var playlist domain.Playlist
	err := s.get([]byte(playlistPrefix+id), &playlist)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return &playlist, nil
}

// UpdatePlaylist replaces an existing playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, playlist *domain.Playlist) error {
	key := []byte(playlistPrefix + playlist.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check playlist exists: %w", err)
	}
	if !exists {
		return ErrPlaylistNotFound
	}

	if err := s.set(key, playlist); err != nil {
		return fmt.Errorf("update playlist: %w", err)
	}
	return nil
}

// DeletePlaylist deletes a playlist and its owner key.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	playlist, err := s.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(playlistPrefix + id)); err != nil {
			return err
		}
		return txn.Delete(playlistOwnerKey(playlist.UserID, id))
	})
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("playlist deleted", "id", id, "title", playlist.Title)
	}
	return nil
}

// ListPlaylistsByOwner returns every playlist owned by a user.
func (s *Store) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]*domain.Playlist, error) {
	prefix := []byte(playlistByOwnerPrefix + ownerID + ":")

	var playlists []*domain.Playlist
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var playlistID string
			if err := it.Item().Value(func(val []byte) error {
				playlistID = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get([]byte(playlistPrefix + playlistID))
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("dangling playlist index entry", "playlist_id", playlistID, "error", err)
				}
				continue
			}

			var playlist domain.Playlist
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &playlist)
			}); err != nil {
				return err
			}
			playlists = append(playlists, &playlist)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list playlists by owner: %w", err)
	}
	return playlists, nil
}

// RemoveGameFromAllPlaylists drops a game id from every playlist that
// holds it. Called when the game itself is deleted.
func (s *Store) RemoveGameFromAllPlaylists(ctx context.Context, gameID string) error {
	prefix := []byte(playlistPrefix)

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var playlist domain.Playlist
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &playlist)
			}); err != nil {
				return err
			}

			if !playlist.RemoveGame(gameID) {
				continue
			}

			data, err := json.Marshal(&playlist)
			if err != nil {
				return fmt.Errorf("marshal playlist: %w", err)
			}
			if err := txn.Set([]byte(playlistPrefix+playlist.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}
