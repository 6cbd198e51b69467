// Package redis keeps the session under two Redis keys written in one transaction.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/lumore/core"
)

const DefaultPrefix = "lumore:session"

type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration // 0 keeps keys until cleared
}

var _ core.SessionStore = (*Store)(nil)

type Option func(*Store)

// WithPrefix namespaces the keys, e.g. one prefix per profile
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires both keys together after ttl
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func New(rdb redis.UniversalClient, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) tokenKey() string { return s.prefix + ":token" }
func (s *Store) userKey() string  { return s.prefix + ":user" }

// Get reads both keys in one round trip. A half-present pair counts as no session.
func (s *Store) Get(ctx context.Context) (*core.Session, error) {
	vals, err := s.rdb.MGet(ctx, s.tokenKey(), s.userKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	token, ok := vals[0].(string)
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	rawUser, ok := vals[1].(string)
	if !ok {
		return nil, core.ErrSessionNotFound
	}

	var user core.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}

	return &core.Session{Token: token, User: user}, nil
}

// Set writes token and user inside MULTI/EXEC
func (s *Store) Set(ctx context.Context, session *core.Session) error {
	if session == nil {
		return s.Clear(ctx)
	}

	user, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(), session.Token, s.ttl)
		pipe.Set(ctx, s.userKey(), user, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.tokenKey(), s.userKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
