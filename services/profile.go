package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lborres/lumore/core"
)

// ProfileService validates typed profile updates before sending them.
// Every call needs a current, unexpired session.
type ProfileService struct {
	api      core.ProfileAPI
	sessions *SessionManager
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfileService(api core.ProfileAPI, sessions *SessionManager, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProfileService{
		api:      api,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Get loads a profile. An empty userID means the signed-in user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*core.Profile, error) {
	if _, err := s.sessions.Current(ctx); err != nil {
		return nil, err
	}
	return s.api.GetProfile(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, update core.ProfileUpdate) (*core.Profile, error) {
	if err := core.ValidateProfileUpdate(update, s.now()); err != nil {
		return nil, err
	}
	if _, err := s.sessions.Current(ctx); err != nil {
		return nil, err
	}
	return s.api.UpdateProfile(ctx, update)
}

func (s *ProfileService) UpdateVisibility(ctx context.Context, userID, field string, visibility core.Visibility) (*core.Profile, error) {
	if err := core.ValidateVisibility(field, visibility); err != nil {
		return nil, err
	}
	if _, err := s.sessions.Current(ctx); err != nil {
		return nil, err
	}
	return s.api.UpdateVisibility(ctx, userID, field, visibility)
}

func (s *ProfileService) UpdatePreferences(ctx context.Context, update core.PreferencesUpdate) (*core.Profile, error) {
	if err := core.ValidatePreferences(update); err != nil {
		return nil, err
	}
	if _, err := s.sessions.Current(ctx); err != nil {
		return nil, err
	}
	return s.api.UpdatePreferences(ctx, update)
}

// DeleteAccount deletes the account on the server, then forgets the local session
func (s *ProfileService) DeleteAccount(ctx context.Context) error {
	session, err := s.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.api.DeleteAccount(ctx); err != nil {
		return err
	}

	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "account deleted but session not cleared",
			slog.String("user_id", session.User.ID),
			slog.Any("error", err))
		return fmt.Errorf("account deleted but failed to clear session: %w", err)
	}
	return nil
}
