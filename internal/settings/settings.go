// Package settings stores small runtime toggles in the app_settings table.
package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KeyResultsRevealed gates the final leaderboard: rankings stay hidden from
// participants until the organizers flip it at the closing ceremony.
const KeyResultsRevealed = "results_revealed"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func parseBool(value string) bool {
	return value == "true"
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// Bool reads a boolean setting; a missing key reads as false.
func (s *Store) Bool(ctx context.Context, key string) (bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return parseBool(value), nil
}

func (s *Store) SetBool(ctx context.Context, key string, v bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, formatBool(v))
	return err
}

// ToggleBool flips a boolean setting in a single statement and returns the
// new value. Concurrent toggles serialize on the row lock, so each one lands
// on the opposite of what the previous committed. A missing key counts as
// false and toggles to true.
func (s *Store) ToggleBool(ctx context.Context, key string) (bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ($1, 'true')
		ON CONFLICT (key) DO UPDATE
		SET value = CASE app_settings.value WHEN 'true' THEN 'false' ELSE 'true' END
		RETURNING value
	`, key).Scan(&value)
	if err != nil {
		return false, err
	}
	return parseBool(value), nil
}
