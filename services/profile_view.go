package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lborres/lumore/core"
)

const MessageProfileLoadFailed = "error loading user data"

var ErrProfileNotReturned = errors.New("no profile returned")

type ProfileViewState int

const (
	ProfileIdle ProfileViewState = iota
	ProfileLoading
	ProfileReady
	ProfileFailed
)

func (s ProfileViewState) String() string {
	switch s {
	case ProfileLoading:
		return "loading"
	case ProfileReady:
		return "ready"
	case ProfileFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ProfileLoader is the part of ProfileService the view needs
type ProfileLoader interface {
	Get(ctx context.Context, userID string) (*core.Profile, error)
}

// ProfileView loads one user's profile for display
type ProfileView struct {
	loader ProfileLoader
	logger *slog.Logger

	mu      sync.Mutex
	state   ProfileViewState
	profile *core.Profile
	err     error
	loads   uint64
}

func NewProfileView(loader ProfileLoader, logger *slog.Logger) *ProfileView {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProfileView{loader: loader, logger: logger}
}

// Load fetches the profile of userID and moves to ready or failed.
// When loads overlap, only the latest one updates the view.
func (v *ProfileView) Load(ctx context.Context, userID string) (*core.Profile, error) {
	v.mu.Lock()
	v.loads++
	load := v.loads
	v.state = ProfileLoading
	v.err = nil
	v.mu.Unlock()

	profile, err := v.loader.Get(ctx, userID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if load != v.loads {
		return profile, err
	}

	if err == nil && profile == nil {
		err = ErrProfileNotReturned
	}
	if err != nil {
		v.logger.WarnContext(ctx, "profile load failed", slog.String("user_id", userID), slog.Any("error", err))
		v.state = ProfileFailed
		v.profile = nil
		v.err = err
		return nil, err
	}

	v.state = ProfileReady
	v.profile = profile
	return profile, nil
}

func (v *ProfileView) State() ProfileViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ProfileView) Profile() *core.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.profile
}

// Message is what the view shows instead of the profile, or "" when ready
func (v *ProfileView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case ProfileLoading:
		return "loading..."
	case ProfileFailed:
		return MessageProfileLoadFailed
	default:
		return ""
	}
}

// Err is the cause of the last failed load
func (v *ProfileView) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
