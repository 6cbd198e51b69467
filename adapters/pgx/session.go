package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/lumore/core"
)

func (a *Adapter) Get(ctx context.Context) (*core.Session, error) {
	q := `SELECT token, user_doc FROM lumore_sessions WHERE name = $1`

	session := &core.Session{}
	err := a.pool.QueryRow(ctx, q, a.name).Scan(&session.Token, &session.User)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return session, nil
}

func (a *Adapter) Set(ctx context.Context, session *core.Session) error {
	if session == nil {
		return a.Clear(ctx)
	}

	q := `INSERT INTO lumore_sessions (name, token, user_doc, updated_at)
	      VALUES ($1, $2, $3, now())
	      ON CONFLICT (name) DO UPDATE
	      SET token = EXCLUDED.token, user_doc = EXCLUDED.user_doc, updated_at = now()`

	if _, err := a.pool.Exec(ctx, q, a.name, session.Token, session.User); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (a *Adapter) Clear(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, `DELETE FROM lumore_sessions WHERE name = $1`, a.name); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
