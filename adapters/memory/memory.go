// Package memory keeps the session in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/lborres/lumore/core"
)

type Store struct {
	mu      sync.RWMutex
	session *core.Session
}

var _ core.SessionStore = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Get(ctx context.Context) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return nil, core.ErrSessionNotFound
	}
	copied := *s.session
	return &copied, nil
}

func (s *Store) Set(ctx context.Context, session *core.Session) error {
	if session == nil {
		return s.Clear(ctx)
	}
	copied := *session

	s.mu.Lock()
	s.session = &copied
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	return nil
}
