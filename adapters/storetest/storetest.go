// Package storetest checks that a core.SessionStore keeps token and user together.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/lumore/core"
)

// Run exercises store against the SessionStore contract.
// newStore must return an empty store each time it is called.
func Run(t *testing.T, newStore func(t *testing.T) core.SessionStore) {
	t.Helper()

	alice := &core.Session{
		Token: "tok-alice",
		User:  core.User{ID: "u1", Username: "alice", Email: "alice@example.com"},
	}
	bob := &core.Session{
		Token: "tok-bob",
		User:  core.User{ID: "u2", Username: "bob", Email: "bob@example.com"},
	}

	t.Run("get on empty store reports not found", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(context.Background())
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	})

	t.Run("set then get returns token and user", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Set(context.Background(), alice))

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, alice.Token, got.Token)
		assert.Equal(t, alice.User, got.User)
	})

	t.Run("set replaces both fields", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Set(context.Background(), alice))
		require.NoError(t, store.Set(context.Background(), bob))

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, bob.Token, got.Token)
		assert.Equal(t, bob.User, got.User)
	})

	t.Run("clear removes token and user", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Set(context.Background(), alice))
		require.NoError(t, store.Clear(context.Background()))

		_, err := store.Get(context.Background())
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	})

	t.Run("clear on empty store succeeds", func(t *testing.T) {
		store := newStore(t)

		assert.NoError(t, store.Clear(context.Background()))
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Set(context.Background(), alice))

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		got.Token = "mutated"

		again, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, alice.Token, again.Token)
	})
}
