// Package file keeps the session in a JSON document on disk,
// optionally sealed with a passphrase.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/pkg/crypto"
)

var ErrPassphraseNeeded = errors.New("session file is encrypted: a passphrase is required")

const DefaultFileName = "session.json"

// document is the on-disk shape. Token and user live in one file so a
// single rename replaces both.
type document struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

type Store struct {
	mu     sync.Mutex
	path   string
	sealer *crypto.Sealer // nil stores plaintext JSON
}

var _ core.SessionStore = (*Store)(nil)

type Option func(*Store)

// WithSealer encrypts the file at rest
func WithSealer(sealer *crypto.Sealer) Option {
	return func(s *Store) {
		s.sealer = sealer
	}
}

func New(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath is session.json under the user's config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "lumore", DefaultFileName), nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if crypto.IsSealed(data) {
		if s.sealer == nil {
			return nil, ErrPassphraseNeeded
		}
		data, err = s.sealer.Open(data)
		if err != nil {
			return nil, fmt.Errorf("failed to open session file: %w", err)
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}

	return &core.Session{Token: doc.Token, User: doc.User}, nil
}

func (s *Store) Set(ctx context.Context, session *core.Session) error {
	if session == nil {
		return s.Clear(ctx)
	}

	data, err := json.Marshal(document{Token: session.Token, User: session.User})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if s.sealer != nil {
		data, err = s.sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to seal session: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// writeAtomic writes data next to path and renames it into place
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
