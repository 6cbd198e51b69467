package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lborres/lumore/core"
)

// AuthService validates credentials locally, calls the auth endpoints and
// persists the session the backend hands back.
type AuthService struct {
	api      core.AuthAPI
	sessions core.SessionStore
	logger   *slog.Logger
}

func NewAuthService(api core.AuthAPI, sessions core.SessionStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		api:      api,
		sessions: sessions,
		logger:   logger,
	}
}

// SignUp registers a new user and signs them in
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput) (*core.Session, error) {
	if err := core.ValidateSignUp(input); err != nil {
		return nil, err
	}
	if err := core.ValidateLocation(input.Location); err != nil {
		return nil, err
	}

	result, err := s.api.SignUp(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result)
}

// Login authenticates with a username or email
func (s *AuthService) Login(ctx context.Context, input core.LoginInput) (*core.Session, error) {
	if err := core.ValidateLogin(input); err != nil {
		return nil, err
	}

	result, err := s.api.Login(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, result)
}

// SetPassword changes the signed-in user's password.
// The backend answers with a fresh token, which replaces the stored one.
func (s *AuthService) SetPassword(ctx context.Context, input core.SetPasswordInput) (*core.Session, error) {
	if err := core.ValidateSetPassword(input); err != nil {
		return nil, err
	}

	result, err := s.api.SetPassword(ctx, input)
	if err != nil {
		return nil, err
	}
	if result.Token == "" {
		return s.sessions.Get(ctx)
	}
	return s.persist(ctx, result)
}

// CheckUsername asks the backend whether a well-formed username is free
func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if err := core.ValidateUsername(username); err != nil {
		return false, err
	}
	return s.api.CheckUsername(ctx, username)
}

// Logout clears the local session; done always runs
func (s *AuthService) Logout(ctx context.Context, done func()) error {
	return s.api.Logout(ctx, done)
}

func (s *AuthService) GoogleAuthURL() string {
	return s.api.GoogleAuthURL()
}

func (s *AuthService) persist(ctx context.Context, result *core.AuthResult) (*core.Session, error) {
	session := result.Session()
	if err := s.sessions.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.DebugContext(ctx, "session stored",
		slog.String("user_id", session.User.ID),
		slog.String("username", session.User.Username))
	return session, nil
}
