package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/pricing"
)

const entryColumns = `id, item, brand, price, currency, quantity, amount, unit, store, country,
to_char(entry_date, 'YYYY-MM-DD'), user_id, user_email, created_at`

func scanEntry(row pgx.Row) (*pricing.Entry, error) {
	var (
		e                       pricing.Entry
		currency, unit, country string
	)
	err := row.Scan(&e.ID, &e.Item, &e.Brand, &e.Price, &currency, &e.Quantity, &e.Amount,
		&unit, &e.Store, &country, &e.Date, &e.UserID, &e.UserEmail, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Currency = pricing.Currency(currency)
	e.Unit = pricing.Unit(unit)
	e.Country = pricing.Country(country)
	return &e, nil
}

// InsertEntry inserts a price entry.
func (s *Store) InsertEntry(ctx context.Context, e *pricing.Entry) error {
	const q = `
INSERT INTO price_entries (id, item, brand, price, currency, quantity, amount, unit, store, country, entry_date, user_id, user_email, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::date, $12, $13, $14)`
	_, err := s.db.Exec(ctx, q, e.ID, e.Item, e.Brand, e.Price, string(e.Currency), e.Quantity, e.Amount,
		string(e.Unit), e.Store, string(e.Country), e.Date, e.UserID, e.UserEmail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry selects an entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (*pricing.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM price_entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entries.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func entryWhere(f entries.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Item != "" {
		add("lower(item) = lower($%d)", strings.TrimSpace(f.Item))
	}
	if f.Country != "" {
		add("country = $%d", f.Country)
	}
	if f.Store != "" {
		add("store = $%d", f.Store)
	}
	if f.From != "" {
		add("entry_date >= $%d::date", f.From)
	}
	if f.To != "" {
		add("entry_date <= $%d::date", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListEntries returns entries matching f, newest observation first.
func (s *Store) ListEntries(ctx context.Context, f entries.Filter) ([]pricing.Entry, error) {
	where, args := entryWhere(f)
	q := `SELECT ` + entryColumns + ` FROM price_entries` + where + ` ORDER BY entry_date DESC, created_at DESC`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []pricing.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateEntry rewrites the observation fields of e. Owner and creation
// time are immutable.
func (s *Store) UpdateEntry(ctx context.Context, e *pricing.Entry) error {
	const q = `
UPDATE price_entries
SET item = $2, brand = $3, price = $4, currency = $5, quantity = $6, amount = $7,
    unit = $8, store = $9, country = $10, entry_date = $11::date
WHERE id = $1`
	tag, err := s.db.Exec(ctx, q, e.ID, e.Item, e.Brand, e.Price, string(e.Currency), e.Quantity, e.Amount,
		string(e.Unit), e.Store, string(e.Country), e.Date)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entries.ErrNotFound
	}
	return nil
}

// DeleteEntry removes an entry by ID.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM price_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entries.ErrNotFound
	}
	return nil
}

var suggestColumns = map[entries.Field]string{
	entries.FieldItem:  "item",
	entries.FieldBrand: "brand",
	entries.FieldStore: "store",
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// DistinctValues returns up to limit distinct values of field containing
// contains, case-insensitively, in alphabetical order.
func (s *Store) DistinctValues(ctx context.Context, field entries.Field, contains string, limit int) ([]string, error) {
	col, ok := suggestColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown suggestion field %q", field)
	}
	q := fmt.Sprintf(`
SELECT DISTINCT %[1]s FROM price_entries
WHERE %[1]s IS NOT NULL AND %[1]s <> '' AND %[1]s ILIKE $1
ORDER BY %[1]s
LIMIT $2`, col)

	rows, err := s.db.Query(ctx, q, "%"+escapeLike(strings.TrimSpace(contains))+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
