package lumore

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/lborres/lumore/adapters/fiber"
	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/pkg/cache"
	"github.com/lborres/lumore/services"
)

// interfaces
type (
	SessionStore = core.SessionStore
	AuthAPI      = core.AuthAPI
	ProfileAPI   = core.ProfileAPI
	API          = core.API

	Locator   = core.Locator
	Notifier  = core.Notifier
	Navigator = core.Navigator
)

type (
	User              = core.User
	Session           = core.Session
	AuthResult        = core.AuthResult
	Location          = core.Location
	Coordinates       = core.Coordinates
	SignUpInput       = core.SignUpInput
	LoginInput        = core.LoginInput
	SetPasswordInput  = core.SetPasswordInput
	Profile           = core.Profile
	ProfileUpdate     = core.ProfileUpdate
	Visibility        = core.Visibility
	AgeRange          = core.AgeRange
	PreferencesUpdate = core.PreferencesUpdate
	CacheStats        = cache.Stats
)

type (
	ValidationError = core.ValidationError
	RequestError    = core.RequestError
	PermissionError = core.PermissionError
)

const (
	VisibilityPublic  = core.VisibilityPublic
	VisibilityMatches = core.VisibilityMatches
	VisibilityPrivate = core.VisibilityPrivate
)

const (
	defaultSessionCacheTTL = 5 * time.Minute
	defaultSessionCacheMax = 1
)

// Constructors & helpers (convenience re-exports)
var (
	NewPoint              = core.NewPoint
	MinAgeCutoff          = core.MinAgeCutoff
	IsSelectableBirthDate = core.IsSelectableBirthDate
	FormatBirthDate       = core.FormatBirthDate
	ParseBirthDate        = core.ParseBirthDate
)

var (
	ErrSessionNotFound = core.ErrSessionNotFound
	ErrSessionMissing  = core.ErrSessionMissing
	ErrSessionExpired  = core.ErrSessionExpired
)

var (
	ErrUsernameRequired = core.ErrUsernameRequired
	ErrInvalidUsername  = core.ErrInvalidUsername
	ErrEmailRequired    = core.ErrEmailRequired
	ErrInvalidEmail     = core.ErrInvalidEmail
	ErrPasswordRequired = core.ErrPasswordRequired
	ErrPasswordTooShort = core.ErrPasswordTooShort
	ErrUnderMinimumAge  = core.ErrUnderMinimumAge
	ErrPermissionDenied = core.ErrPermissionDenied
)

var (
	ErrBaseURLRequired      = core.ErrBaseURLRequired
	ErrInvalidBaseURL       = core.ErrInvalidBaseURL
	ErrSessionStoreRequired = core.ErrSessionStoreRequired
	ErrUnknownSessionStore  = core.ErrUnknownSessionStore
)

// Config wires a Lumore client. Zero values fall back to defaults.
type Config struct {
	BaseURL string
	Store   SessionStore
	Logger  *slog.Logger

	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables pacing
	RateBurst int

	DebounceDelay        time.Duration
	AvailabilityCacheTTL time.Duration

	SessionCacheTTL     time.Duration
	DisableSessionCache bool

	CallbackAddr string
}

// Lumore bundles the API client with the services built on it
type Lumore struct {
	Client   *fiber.Client
	Sessions *services.SessionManager
	Auth     *services.AuthService
	Profiles *services.ProfileService

	config Config
}

func New(config Config) (*Lumore, error) {
	if config.Store == nil {
		return nil, ErrSessionStoreRequired
	}

	// Set Defaults

	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Timeout <= 0 {
		config.Timeout = fiber.DefaultTimeout
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = services.DefaultAvailabilityDelay
	}
	if config.AvailabilityCacheTTL <= 0 {
		config.AvailabilityCacheTTL = services.DefaultAvailabilityCacheTTL
	}
	if config.SessionCacheTTL <= 0 {
		config.SessionCacheTTL = defaultSessionCacheTTL
	}
	if config.CallbackAddr == "" {
		config.CallbackAddr = fiber.DefaultCallbackAddr
	}

	var sessionCache *cache.InMemoryCache[core.Session]
	if !config.DisableSessionCache {
		sessionCache = cache.NewInMemoryCache[core.Session](cache.Config{
			TTL:     config.SessionCacheTTL,
			MaxSize: defaultSessionCacheMax,
		})
	}
	sessions := services.NewSessionManager(config.Store, sessionCache)

	client, err := fiber.NewClient(config.BaseURL, sessions,
		fiber.WithTimeout(config.Timeout),
		fiber.WithRateLimit(rate.Limit(config.RateLimit), config.RateBurst),
		fiber.WithLogger(config.Logger),
	)
	if err != nil {
		return nil, err
	}

	return &Lumore{
		Client:   client,
		Sessions: sessions,
		Auth:     services.NewAuthService(client, sessions, config.Logger),
		Profiles: services.NewProfileService(client, sessions, config.Logger),
		config:   config,
	}, nil
}

// NewAvailabilityChecker returns a debounced username checker.
// onChange may be nil.
func (l *Lumore) NewAvailabilityChecker(onChange func(services.Availability)) *services.AvailabilityChecker {
	return services.NewAvailabilityChecker(l.Auth, services.AvailabilityConfig{
		Delay:          l.config.DebounceDelay,
		CacheTTL:       l.config.AvailabilityCacheTTL,
		RequestTimeout: l.config.Timeout,
		OnChange:       onChange,
		Logger:         l.config.Logger,
	})
}

// SignupOptions are the device and UI hooks a signup form reports to
type SignupOptions struct {
	Locator   Locator
	Notifier  Notifier
	Navigator Navigator

	// OnAvailability enables live username checks when set
	OnAvailability func(services.Availability)
}

// NewSignupForm builds a signup form. With OnAvailability set it owns a
// running availability checker, so the caller must Close it.
func (l *Lumore) NewSignupForm(opts SignupOptions) *services.SignupForm {
	deps := services.SignupDeps{
		Auth:      l.Auth,
		Locator:   opts.Locator,
		Notifier:  opts.Notifier,
		Navigator: opts.Navigator,
		Logger:    l.config.Logger,
	}
	if opts.OnAvailability != nil {
		deps.Availability = l.NewAvailabilityChecker(opts.OnAvailability)
	}
	return services.NewSignupForm(deps)
}

func (l *Lumore) NewProfileView() *services.ProfileView {
	return services.NewProfileView(l.Profiles, l.config.Logger)
}

func (l *Lumore) NewDateField(label string, onChange func(string)) *services.DateField {
	return services.NewDateField(label, onChange)
}

// NewCallbackReceiver starts a loopback receiver for Google sign-in.
// The caller must Shutdown it.
func (l *Lumore) NewCallbackReceiver() (*fiber.CallbackReceiver, error) {
	receiver, err := fiber.NewCallbackReceiver(l.Sessions, l.config.Logger)
	if err != nil {
		return nil, err
	}
	if err := receiver.Start(l.config.CallbackAddr); err != nil {
		return nil, err
	}
	return receiver, nil
}

// GoogleLoginURL returns the sign-in URL routed back to receiver
func (l *Lumore) GoogleLoginURL(receiver *fiber.CallbackReceiver) (string, error) {
	return receiver.AuthURL(l.Auth.GoogleAuthURL())
}
