package services

import (
	"context"
	"sync"
	"time"

	"github.com/lborres/lumore/core"
)

// FakeSessionStore is a test-only fake implementing core.SessionStore.
// It exposes error fields for behavior injection.
type FakeSessionStore struct {
	mu       sync.Mutex
	session  *core.Session
	getErr   error
	setErr   error
	clearErr error
	gets     int
	cleared  int
}

func NewFakeSessionStore(session *core.Session) *FakeSessionStore {
	f := &FakeSessionStore{}
	if session != nil {
		copied := *session
		f.session = &copied
	}
	return f
}

func (f *FakeSessionStore) Get(ctx context.Context) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.session == nil {
		return nil, core.ErrSessionNotFound
	}
	copied := *f.session
	return &copied, nil
}

func (f *FakeSessionStore) Set(ctx context.Context, session *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}
	copied := *session
	f.session = &copied
	return nil
}

// Clear drops the session even when clearErr is set, like a partial removal
func (f *FakeSessionStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cleared++
	f.session = nil
	return f.clearErr
}

func (f *FakeSessionStore) Gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// FakeAPI is a test-only fake implementing core.API.
// Calls are recorded by operation name.
type FakeAPI struct {
	mu    sync.Mutex
	calls []string

	authResult *core.AuthResult
	profile    *core.Profile
	err        error

	signUpInputs []core.SignUpInput
	updates      []core.ProfileUpdate

	// taken usernames answer isUnique=false; checkDelay slows specific usernames down
	taken      map[string]bool
	checkDelay map[string]time.Duration
	checkErr   error

	store core.SessionStore // cleared by Logout when set
}

var _ core.API = (*FakeAPI)(nil)

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		authResult: &core.AuthResult{ID: "u1", Username: "valid.user", Email: "x@y.com", Token: "tok-1"},
		profile:    &core.Profile{ID: "u1", Username: "valid.user", Email: "x@y.com"},
		taken:      make(map[string]bool),
		checkDelay: make(map[string]time.Duration),
	}
}

func (f *FakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeAPI) CallCount(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *FakeAPI) SignUpInputs() []core.SignUpInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.SignUpInput(nil), f.signUpInputs...)
}

func (f *FakeAPI) SignUp(ctx context.Context, input core.SignUpInput) (*core.AuthResult, error) {
	f.record("SignUp")
	f.mu.Lock()
	f.signUpInputs = append(f.signUpInputs, input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.authResult, nil
}

func (f *FakeAPI) Login(ctx context.Context, input core.LoginInput) (*core.AuthResult, error) {
	f.record("Login")
	if f.err != nil {
		return nil, f.err
	}
	return f.authResult, nil
}

func (f *FakeAPI) SetPassword(ctx context.Context, input core.SetPasswordInput) (*core.AuthResult, error) {
	f.record("SetPassword")
	if f.err != nil {
		return nil, f.err
	}
	return f.authResult, nil
}

func (f *FakeAPI) CheckUsername(ctx context.Context, username string) (bool, error) {
	f.record("CheckUsername:" + username)

	f.mu.Lock()
	delay := f.checkDelay[username]
	taken := f.taken[username]
	err := f.checkErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (f *FakeAPI) Logout(ctx context.Context, done func()) error {
	f.record("Logout")
	if done != nil {
		defer done()
	}
	if f.store != nil {
		return f.store.Clear(ctx)
	}
	return nil
}

func (f *FakeAPI) GoogleAuthURL() string {
	return "https://api.example.com/auth/google"
}

func (f *FakeAPI) GetProfile(ctx context.Context, userID string) (*core.Profile, error) {
	f.record("GetProfile:" + userID)
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *FakeAPI) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (*core.Profile, error) {
	f.record("UpdateProfile")
	f.mu.Lock()
	f.updates = append(f.updates, update)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *FakeAPI) UpdateVisibility(ctx context.Context, userID, field string, visibility core.Visibility) (*core.Profile, error) {
	f.record("UpdateVisibility")
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *FakeAPI) UpdatePreferences(ctx context.Context, update core.PreferencesUpdate) (*core.Profile, error) {
	f.record("UpdatePreferences")
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *FakeAPI) DeleteAccount(ctx context.Context) error {
	f.record("DeleteAccount")
	return f.err
}

// FakeLocator returns fixed coordinates or an error
type FakeLocator struct {
	coords core.Coordinates
	err    error
}

func (f *FakeLocator) Locate(ctx context.Context) (core.Coordinates, error) {
	return f.coords, f.err
}

type Notification struct {
	Level   core.NotifyLevel
	Message string
}

// FakeNotifier records notifications
type FakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (f *FakeNotifier) Notify(level core.NotifyLevel, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, Notification{Level: level, Message: message})
}

func (f *FakeNotifier) Sent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

// FakeNavigator records navigation targets
type FakeNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (f *FakeNavigator) Navigate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *FakeNavigator) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}
