// Package remote maintains a read-only Postgres mirror of the expense
// collection, fed by the sync worker. The mirror backs external reporting
// tools without exposing the primary SQLite file.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"finboard/internal/core"
)

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS expenses_mirror (
    id BIGINT PRIMARY KEY,
    category TEXT NOT NULL,
    amount BIGINT NOT NULL,
    description TEXT NOT NULL,
    raw_input TEXT NOT NULL DEFAULT '',
    date DATE NOT NULL,
    version BIGINT NOT NULL,
    mirrored_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Mirror struct {
	db *sql.DB
}

// New connects to the mirror database and ensures the schema exists.
func New(ctx context.Context, postgresURL string) (*Mirror, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, mirrorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure mirror schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// UpsertExpense writes one expense row at the given version. Stale
// messages lose: a row already at a newer version is left alone.
func (m *Mirror) UpsertExpense(ctx context.Context, e core.Expense, version int64) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO expenses_mirror (id, category, amount, description, raw_input, date, version, mirrored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			raw_input = EXCLUDED.raw_input,
			date = EXCLUDED.date,
			version = EXCLUDED.version,
			mirrored_at = now()
		WHERE expenses_mirror.version <= EXCLUDED.version`,
		e.ID, e.Category, e.Amount, e.Description, e.RawInput,
		e.Date.Format("2006-01-02"), version)
	if err != nil {
		return fmt.Errorf("upsert expense %d: %w", e.ID, err)
	}
	return nil
}

// DeleteExpense removes a mirrored row. Deleting a row that was never
// mirrored is not an error.
func (m *Mirror) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM expenses_mirror WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete mirrored expense %d: %w", id, err)
	}
	return nil
}

// Ping verifies the mirror connection, with a short deadline so health
// checks cannot hang on a dead database.
func (m *Mirror) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return m.db.PingContext(ctx)
}

func (m *Mirror) Close() error {
	return m.db.Close()
}
