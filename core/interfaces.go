package core

import "context"

// Ports define interfaces for external dependencies

// ============================================
// SESSION PORT (client-side persistence)
// ============================================

// SessionStore persists the session. Set and Clear are atomic across
// token and user: readers never observe one without the other.
type SessionStore interface {
	// Get returns ErrSessionNotFound when nothing is stored
	Get(ctx context.Context) (*Session, error)
	Set(ctx context.Context, session *Session) error
	Clear(ctx context.Context) error
}

// ============================================
// API PORT (remote backend)
// ============================================

// AuthAPI covers the /auth endpoints
type AuthAPI interface {
	SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	SetPassword(ctx context.Context, input SetPasswordInput) (*AuthResult, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	Logout(ctx context.Context, done func()) error
	GoogleAuthURL() string
}

// ProfileAPI covers the /profile endpoints. Every call is authenticated.
type ProfileAPI interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error)
	UpdateVisibility(ctx context.Context, userID, field string, visibility Visibility) (*Profile, error)
	UpdatePreferences(ctx context.Context, update PreferencesUpdate) (*Profile, error)
	DeleteAccount(ctx context.Context) error
}

type API interface {
	AuthAPI
	ProfileAPI
}

// ============================================
// DEVICE / UI PORTS
// ============================================

// Locator resolves the device position.
// A denied permission is reported as *PermissionError.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifyWarning
	NotifyError
)

// Notifier shows transient, non-blocking messages to the user
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

// Navigator moves the user to another area of the application
type Navigator interface {
	Navigate(path string)
}
