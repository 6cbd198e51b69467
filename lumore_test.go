package lumore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/lumore/adapters/memory"
	"github.com/lborres/lumore/services"
)

// backend fakes the REST API: auth routes issue a token, profile routes
// require it.
type backend struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{bodies: make(map[string]string)}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.bodies[r.URL.Path] = string(body)
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/auth/login", r.URL.Path == "/auth/signup":
			_, _ = io.WriteString(w, `{"_id":"u1","username":"alice","email":"alice@example.com","token":"tok-1"}`)
		case strings.HasPrefix(r.URL.Path, "/auth/check-username/"):
			_, _ = io.WriteString(w, `{"isUnique":true}`)
		case strings.HasPrefix(r.URL.Path, "/profile/"):
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"message":"not authorized"}`)
				return
			}
			_, _ = io.WriteString(w, `{"_id":"u1","username":"alice","email":"alice@example.com","bio":"hi"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) body(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

func newTestLumore(t *testing.T, baseURL string) *Lumore {
	t.Helper()
	l, err := New(Config{BaseURL: baseURL, Store: memory.New()})
	require.NoError(t, err)
	return l
}

// Requirement: New rejects a config without a store or with an unusable base URL.
func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "missing store",
			config:  Config{BaseURL: "http://localhost:3000"},
			wantErr: ErrSessionStoreRequired,
		},
		{
			name:    "missing base URL",
			config:  Config{Store: memory.New()},
			wantErr: ErrBaseURLRequired,
		},
		{
			name:    "relative base URL",
			config:  Config{BaseURL: "/api", Store: memory.New()},
			wantErr: ErrInvalidBaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, l)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	l := newTestLumore(t, "http://localhost:3000/")

	assert.Equal(t, "http://localhost:3000", l.Client.BaseURL())
	assert.Equal(t, "http://localhost:3000/auth/google", l.Auth.GoogleAuthURL())
	assert.Equal(t, services.DefaultAvailabilityDelay, l.config.DebounceDelay)
	assert.NotNil(t, l.config.Logger)
}

// Requirement: a login persists the session and later profile calls carry its token.
func TestLumore_LoginThenProfile(t *testing.T) {
	// Arrange
	srv := newBackend(t)
	l := newTestLumore(t, srv.URL)
	ctx := context.Background()

	// Act
	session, err := l.Auth.Login(ctx, LoginInput{Identifier: "alice", Password: "secret1"})
	require.NoError(t, err)

	profile, err := l.Profiles.Get(ctx, "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "hi", profile.Attributes["bio"])

	stored, err := l.Sessions.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.User.Username)
}

func TestLumore_ProfileWithoutSession(t *testing.T) {
	srv := newBackend(t)
	l := newTestLumore(t, srv.URL)

	_, err := l.Profiles.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestLumore_ProfileView(t *testing.T) {
	srv := newBackend(t)
	l := newTestLumore(t, srv.URL)
	ctx := context.Background()
	_, err := l.Auth.Login(ctx, LoginInput{Identifier: "alice", Password: "secret1"})
	require.NoError(t, err)

	view := l.NewProfileView()
	_, err = view.Load(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, services.ProfileReady, view.State())
	assert.Equal(t, "alice", view.Profile().Username)
}

type deniedLocator struct{}

func (deniedLocator) Locate(ctx context.Context) (Coordinates, error) {
	return Coordinates{}, &PermissionError{Permission: "geolocation"}
}

// Requirement: a signup form built from the facade submits, persists and navigates to the app.
func TestLumore_SignupForm(t *testing.T) {
	// Arrange
	srv := newBackend(t)
	l := newTestLumore(t, srv.URL)
	nav := &services.FakeNavigator{}
	notifier := &services.FakeNotifier{}

	availability := make(chan services.Availability, 8)
	form := l.NewSignupForm(SignupOptions{
		Locator:   deniedLocator{},
		Notifier:  notifier,
		Navigator: nav,
		OnAvailability: func(a services.Availability) {
			availability <- a
		},
	})
	t.Cleanup(form.Close)

	// Act
	require.NoError(t, form.SetField(services.FieldUsername, "alice"))
	require.NoError(t, form.SetField(services.FieldEmail, "alice@example.com"))
	require.NoError(t, form.SetField(services.FieldPassword, "secret1"))
	session, err := form.Submit(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	assert.Equal(t, services.SignupSuccess, form.State())
	assert.Equal(t, []string{services.AppPath}, nav.Paths())
	assert.JSONEq(t,
		`{"username":"alice","email":"alice@example.com","password":"secret1",
		  "location":{"type":"Point","coordinates":[0,0],"formattedAddress":""}}`,
		srv.body("/auth/signup"))

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, services.MessageLocationDenied, sent[0].Message)

	select {
	case a := <-availability:
		assert.Equal(t, "alice", a.Username)
	case <-time.After(time.Second):
		t.Fatal("expected an availability update")
	}
}

func TestLumore_GoogleLoginURL(t *testing.T) {
	l := newTestLumore(t, "http://api.example.com")

	receiver, err := l.NewCallbackReceiver()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = receiver.Shutdown(ctx)
	})

	raw, err := l.GoogleLoginURL(receiver)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.example.com", u.Host)
	assert.Equal(t, "/auth/google", u.Path)
	assert.NotEmpty(t, u.Query().Get("state"))

	callback, err := receiver.CallbackURL()
	require.NoError(t, err)
	assert.Equal(t, callback, u.Query().Get("redirect_uri"))
	assert.True(t, strings.HasPrefix(callback, "http://127.0.0.1:"))
}

func TestLumore_DateField(t *testing.T) {
	l := newTestLumore(t, "http://api.example.com")

	var got string
	field := l.NewDateField("Date of birth", func(v string) { got = v })
	require.NoError(t, field.Select(field.MaxDate()))

	assert.Equal(t, FormatBirthDate(field.MaxDate()), got)
	assert.ErrorIs(t, field.Select(field.MaxDate().AddDate(0, 0, 1)), ErrUnderMinimumAge)
}
