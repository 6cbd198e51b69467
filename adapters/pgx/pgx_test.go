package pgx

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/lumore/adapters/storetest"
	"github.com/lborres/lumore/core"
)

var nameSeq atomic.Int64

// testPool connects to LUMORE_TEST_POSTGRES_DSN or skips
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("LUMORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LUMORE_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, New(pool, "").Migrate(ctx))
	return pool
}

func newTestAdapter(t *testing.T, pool *pgxpool.Pool) *Adapter {
	t.Helper()
	a := New(pool, fmt.Sprintf("test-%d-%d", time.Now().UnixNano(), nameSeq.Add(1)))
	t.Cleanup(func() { _ = a.Clear(context.Background()) })
	return a
}

func TestAdapter_Contract(t *testing.T) {
	pool := testPool(t)
	storetest.Run(t, func(t *testing.T) core.SessionStore {
		return newTestAdapter(t, pool)
	})
}

func TestAdapter_MigrateIsIdempotent(t *testing.T) {
	pool := testPool(t)
	assert.NoError(t, New(pool, "").Migrate(context.Background()))
}

// Requirement: sessions stored under different names do not interfere.
func TestAdapter_NamesAreIsolated(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	work := newTestAdapter(t, pool)
	home := newTestAdapter(t, pool)

	require.NoError(t, work.Set(ctx, &core.Session{Token: "tok-work", User: core.User{ID: "u1"}}))

	_, err := home.Get(ctx)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	got, err := work.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-work", got.Token)
}

func TestNew_DefaultName(t *testing.T) {
	assert.Equal(t, DefaultName, New(nil, "").name)
	assert.Equal(t, "work", New(nil, "work").name)
}
