package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrConfigNotFound indicates no app_config row exists for the key.
var ErrConfigNotFound = errors.New("config value not found")

// GetConfig decodes the JSON value stored under key into dest.
func (s *Store) GetConfig(ctx context.Context, key string, dest any) error {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConfigNotFound
	}
	if err != nil {
		return fmt.Errorf("get config %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode config %s: %w", key, err)
	}
	return nil
}

// PutConfig stores value as JSON under key, replacing any previous value.
func (s *Store) PutConfig(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", key, err)
	}
	const q = `
INSERT INTO app_config (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := s.db.Exec(ctx, q, key, raw); err != nil {
		return fmt.Errorf("put config %s: %w", key, err)
	}
	return nil
}
