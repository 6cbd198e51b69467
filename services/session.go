package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/pkg/cache"
)

const currentSessionKey = "current"

// SessionManager fronts a SessionStore with a read cache and expiry checks.
// It is itself a SessionStore, so it can be handed to the API client.
type SessionManager struct {
	store core.SessionStore
	cache *cache.InMemoryCache[core.Session] // optional, can be nil if caching is disabled
	now   func() time.Time
}

var _ core.SessionStore = (*SessionManager)(nil)

func NewSessionManager(store core.SessionStore, c *cache.InMemoryCache[core.Session]) *SessionManager {
	return &SessionManager{store: store, cache: c, now: time.Now}
}

func (sm *SessionManager) Get(ctx context.Context) (*core.Session, error) {
	// Try cache first if caching is enabled
	if sm.cache != nil {
		if session, err := sm.cache.Get(currentSessionKey); err == nil {
			return &session, nil
		}
	}

	session, err := sm.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt, _ = TokenExpiry(session.Token)

	if sm.cache != nil {
		// We don't fail the read if caching fails
		_ = sm.cache.Set(currentSessionKey, *session)
	}
	return session, nil
}

func (sm *SessionManager) Set(ctx context.Context, session *core.Session) error {
	if session == nil {
		return sm.Clear(ctx)
	}

	// drop the cached copy first so a failed write never leaves it stale
	if sm.cache != nil {
		_ = sm.cache.Delete(currentSessionKey)
	}
	if err := sm.store.Set(ctx, session); err != nil {
		return err
	}

	copied := *session
	copied.ExpiresAt, _ = TokenExpiry(copied.Token)
	if sm.cache != nil {
		_ = sm.cache.Set(currentSessionKey, copied)
	}
	return nil
}

// Clear removes the session from the cache and the store.
// The cache is emptied even when the store fails.
func (sm *SessionManager) Clear(ctx context.Context) error {
	if sm.cache != nil {
		_ = sm.cache.Delete(currentSessionKey)
	}
	return sm.store.Clear(ctx)
}

// Current returns a session that can authenticate a request.
// It fails with ErrSessionMissing or ErrSessionExpired otherwise.
func (sm *SessionManager) Current(ctx context.Context) (*core.Session, error) {
	session, err := sm.Get(ctx)
	if errors.Is(err, core.ErrSessionNotFound) {
		return nil, core.ErrSessionMissing
	}
	if err != nil {
		return nil, err
	}
	if !session.Usable() {
		return nil, core.ErrSessionMissing
	}
	if session.Expired(sm.now()) {
		return nil, core.ErrSessionExpired
	}
	return session, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
