package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/pkg/cache"
)

func signJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newSessionCache() *cache.InMemoryCache[core.Session] {
	return cache.NewInMemoryCache[core.Session](cache.Config{TTL: time.Minute, MaxSize: 4})
}

// Requirement: Current distinguishes a missing session from an expired one.
func TestSessionManager_Current(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		session *core.Session
		wantErr error
	}{
		{
			name:    "no session",
			session: nil,
			wantErr: core.ErrSessionMissing,
		},
		{
			name:    "token without user id",
			session: &core.Session{Token: "opaque"},
			wantErr: core.ErrSessionMissing,
		},
		{
			name:    "opaque token never expires client-side",
			session: &core.Session{Token: "opaque", User: core.User{ID: "u1"}},
		},
		{
			name:    "jwt in the future",
			session: &core.Session{Token: signJWT(t, now.Add(time.Hour)), User: core.User{ID: "u1"}},
		},
		{
			name:    "jwt in the past",
			session: &core.Session{Token: signJWT(t, now.Add(-time.Hour)), User: core.User{ID: "u1"}},
			wantErr: core.ErrSessionExpired,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			sm := NewSessionManager(NewFakeSessionStore(test.session), newSessionCache())

			// Act
			session, err := sm.Current(context.Background())

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.session.Token, session.Token)
		})
	}
}

// Requirement: reads are served from the cache after the first store read.
func TestSessionManager_CachesReads(t *testing.T) {
	store := NewFakeSessionStore(&core.Session{Token: "t", User: core.User{ID: "u1"}})
	sm := NewSessionManager(store, newSessionCache())

	for i := 0; i < 3; i++ {
		_, err := sm.Get(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.Gets())
}

func TestSessionManager_WithoutCache(t *testing.T) {
	store := NewFakeSessionStore(&core.Session{Token: "t", User: core.User{ID: "u1"}})
	sm := NewSessionManager(store, nil)

	for i := 0; i < 3; i++ {
		_, err := sm.Get(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, store.Gets())
}

func TestSessionManager_SetRefreshesCacheAndExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	store := NewFakeSessionStore(&core.Session{Token: "old", User: core.User{ID: "u1"}})
	sm := NewSessionManager(store, newSessionCache())
	_, err := sm.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, sm.Set(context.Background(), &core.Session{Token: signJWT(t, exp), User: core.User{ID: "u1"}}))

	got, err := sm.Get(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "old", got.Token)
	assert.True(t, exp.Equal(got.ExpiresAt))
}

func TestSessionManager_FailedSetDropsCachedCopy(t *testing.T) {
	store := NewFakeSessionStore(&core.Session{Token: "old", User: core.User{ID: "u1"}})
	sm := NewSessionManager(store, newSessionCache())
	_, err := sm.Get(context.Background())
	require.NoError(t, err)

	store.setErr = errors.New("write failed")
	err = sm.Set(context.Background(), &core.Session{Token: "new", User: core.User{ID: "u1"}})
	require.Error(t, err)

	got, err := sm.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old", got.Token, "store still holds the old session")
	assert.Equal(t, 2, store.Gets())
}

// Requirement: clearing drops the cached session even when the store fails.
func TestSessionManager_ClearAlwaysDropsCache(t *testing.T) {
	store := NewFakeSessionStore(&core.Session{Token: "t", User: core.User{ID: "u1"}})
	sm := NewSessionManager(store, newSessionCache())
	_, err := sm.Get(context.Background())
	require.NoError(t, err)

	store.clearErr = errors.New("partial removal")
	err = sm.Clear(context.Background())
	assert.Error(t, err)

	_, err = sm.Current(context.Background())
	assert.ErrorIs(t, err, core.ErrSessionMissing)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	got, ok := TokenExpiry(signJWT(t, exp))
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	for _, token := range []string{"", "opaque-token", "a.b.c"} {
		_, ok := TokenExpiry(token)
		assert.False(t, ok, token)
	}
}
