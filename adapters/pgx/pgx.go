// Package pgx keeps the session in a PostgreSQL row.
package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/lumore/core"
)

const DefaultName = "default"

// Adapter stores one session per name in lumore_sessions.
// Token and user share a row, so every write replaces both.
type Adapter struct {
	pool *pgxpool.Pool
	name string
}

var _ core.SessionStore = (*Adapter)(nil)

func New(pool *pgxpool.Pool, name string) *Adapter {
	if name == "" {
		name = DefaultName
	}
	return &Adapter{
		pool: pool,
		name: name,
	}
}

// Migrate creates the sessions table if it doesn't exist
func (a *Adapter) Migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS lumore_sessions (
			name       TEXT PRIMARY KEY,
			token      TEXT        NOT NULL,
			user_doc   JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate sessions table: %w", err)
	}
	return nil
}
