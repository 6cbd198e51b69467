package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/lumore/core"
)

func newProfileService(t *testing.T, session *core.Session) (*ProfileService, *FakeAPI, *FakeSessionStore) {
	t.Helper()
	api := NewFakeAPI()
	store := NewFakeSessionStore(session)
	service := NewProfileService(api, NewSessionManager(store, nil), nil)
	service.now = func() time.Time { return time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC) }
	return service, api, store
}

var signedInSession = &core.Session{Token: "tok-1", User: core.User{ID: "u1", Username: "valid.user"}}

// Requirement: profile calls fail fast without a usable session.
func TestProfileService_RequiresSession(t *testing.T) {
	bio := "hi"
	calls := map[string]func(s *ProfileService) error{
		"get": func(s *ProfileService) error {
			_, err := s.Get(context.Background(), "")
			return err
		},
		"update": func(s *ProfileService) error {
			_, err := s.Update(context.Background(), core.ProfileUpdate{Bio: &bio})
			return err
		},
		"visibility": func(s *ProfileService) error {
			_, err := s.UpdateVisibility(context.Background(), "", "bio", core.VisibilityPublic)
			return err
		},
		"preferences": func(s *ProfileService) error {
			showMe := true
			_, err := s.UpdatePreferences(context.Background(), core.PreferencesUpdate{ShowMe: &showMe})
			return err
		},
		"delete": func(s *ProfileService) error {
			return s.DeleteAccount(context.Background())
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			service, api, _ := newProfileService(t, nil)

			err := call(service)

			assert.ErrorIs(t, err, core.ErrSessionMissing)
			assert.Empty(t, api.Calls())
		})
	}
}

func TestProfileService_Update(t *testing.T) {
	underAge := "2010-01-01"
	adult := "1995-06-15"

	t.Run("rejects an under-age birth date locally", func(t *testing.T) {
		service, api, _ := newProfileService(t, signedInSession)

		_, err := service.Update(context.Background(), core.ProfileUpdate{DateOfBirth: &underAge})

		assert.ErrorIs(t, err, core.ErrUnderMinimumAge)
		assert.Empty(t, api.Calls())
	})

	t.Run("rejects an empty update", func(t *testing.T) {
		service, api, _ := newProfileService(t, signedInSession)

		_, err := service.Update(context.Background(), core.ProfileUpdate{})

		assert.ErrorIs(t, err, core.ErrEmptyUpdate)
		assert.Empty(t, api.Calls())
	})

	t.Run("sends a valid update", func(t *testing.T) {
		service, api, _ := newProfileService(t, signedInSession)

		profile, err := service.Update(context.Background(), core.ProfileUpdate{DateOfBirth: &adult})

		require.NoError(t, err)
		assert.Equal(t, "u1", profile.ID)
		require.Len(t, api.updates, 1)
		assert.Equal(t, adult, *api.updates[0].DateOfBirth)
	})
}

func TestProfileService_UpdateVisibilityAndPreferences(t *testing.T) {
	service, api, _ := newProfileService(t, signedInSession)

	_, err := service.UpdateVisibility(context.Background(), "u1", "bio", core.Visibility("everyone"))
	assert.ErrorIs(t, err, core.ErrInvalidVisibility)

	_, err = service.UpdatePreferences(context.Background(), core.PreferencesUpdate{AgeRange: &core.AgeRange{Min: 30, Max: 20}})
	assert.ErrorIs(t, err, core.ErrInvalidAgeRange)
	assert.Empty(t, api.Calls())

	_, err = service.UpdateVisibility(context.Background(), "u1", "bio", core.VisibilityMatches)
	require.NoError(t, err)
	_, err = service.UpdatePreferences(context.Background(), core.PreferencesUpdate{AgeRange: &core.AgeRange{Min: 20, Max: 30}})
	require.NoError(t, err)
	assert.Equal(t, []string{"UpdateVisibility", "UpdatePreferences"}, api.Calls())
}

// Requirement: deleting the account also forgets the local session.
func TestProfileService_DeleteAccount(t *testing.T) {
	t.Run("clears session on success", func(t *testing.T) {
		service, api, store := newProfileService(t, signedInSession)

		require.NoError(t, service.DeleteAccount(context.Background()))

		assert.Equal(t, 1, api.CallCount("DeleteAccount"))
		_, err := store.Get(context.Background())
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	})

	t.Run("keeps session when the server refuses", func(t *testing.T) {
		service, api, store := newProfileService(t, signedInSession)
		api.err = &core.RequestError{Kind: core.RequestErrorResponse, StatusCode: 403, Message: "forbidden"}

		err := service.DeleteAccount(context.Background())

		var reqErr *core.RequestError
		require.ErrorAs(t, err, &reqErr)
		_, err = store.Get(context.Background())
		assert.NoError(t, err)
	})

	t.Run("reports a failed local clear", func(t *testing.T) {
		service, _, store := newProfileService(t, signedInSession)
		store.clearErr = errors.New("locked")

		err := service.DeleteAccount(context.Background())

		assert.ErrorIs(t, err, store.clearErr)
	})
}
