// Package history records game plays in a SQLite log. Recording is best
// effort; callers treat failures as non-fatal and a play always counts
// even when its history row is lost.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/playforge-server/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for play history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a new play-history store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool to 1 writer (SQLite limitation).
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a play event for the user.
func (s *Store) Record(ctx context.Context, userID, gameID string, playedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO play_events (id, user_id, game_id, played_at)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(),
		userID,
		gameID,
		formatTime(playedAt),
	)
	if err != nil {
		return fmt.Errorf("record play event: %w", err)
	}
	return nil
}

// Recent returns the user's most recently played game ids, newest play
// first, deduplicated so each game appears once.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id
		FROM play_events
		WHERE user_id = ?
		GROUP BY game_id
		ORDER BY MAX(played_at) DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent plays: %w", err)
	}
	defer rows.Close()

	var gameIDs []string
	for rows.Next() {
		var gameID string
		if err := rows.Scan(&gameID); err != nil {
			return nil, err
		}
		gameIDs = append(gameIDs, gameID)
	}
	return gameIDs, rows.Err()
}

// Events returns the user's raw play events, newest first.
func (s *Store) Events(ctx context.Context, userID string, limit int) ([]*domain.PlayEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, game_id, played_at
		FROM play_events
		WHERE user_id = ?
		ORDER BY played_at DESC
		LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query play events: %w", err)
	}
	defer rows.Close()

	var events []*domain.PlayEvent
	for rows.Next() {
		var (
			event    domain.PlayEvent
			playedAt string
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.GameID, &playedAt); err != nil {
			return nil, err
		}
		event.PlayedAt, err = parseTime(playedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// PurgeGame removes all history rows for a deleted game.
func (s *Store) PurgeGame(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM play_events WHERE game_id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("purge game history: %w", err)
	}
	return nil
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
