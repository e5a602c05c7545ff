package database

import (
	"context"
	"fmt"

	"github.com/grocerycompare/price-service/internal/i18n"
)

// ListTranslations returns every translation ordered by key.
func (s *Store) ListTranslations(ctx context.Context) ([]i18n.Translation, error) {
	rows, err := s.db.Query(ctx, `SELECT key, sv, da FROM translations ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	var out []i18n.Translation
	for rows.Next() {
		var t i18n.Translation
		if err := rows.Scan(&t.Key, &t.SV, &t.DA); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertTranslation inserts or replaces the translation for t.Key.
func (s *Store) UpsertTranslation(ctx context.Context, t i18n.Translation) error {
	const q = `
INSERT INTO translations (key, sv, da, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE SET sv = EXCLUDED.sv, da = EXCLUDED.da, updated_at = now()`
	if _, err := s.db.Exec(ctx, q, t.Key, t.SV, t.DA); err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return nil
}

// DeleteTranslation removes the translation for key.
func (s *Store) DeleteTranslation(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM translations WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return i18n.ErrNotFound
	}
	return nil
}
