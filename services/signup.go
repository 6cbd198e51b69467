package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lborres/lumore/core"
)

const (
	AppPath = "/app"

	MessageSignupFailed    = "signup failed, please try again"
	MessageLocationDenied  = "please allow location access to continue"
	MessageLocationUnknown = "could not determine your location"
)

var (
	ErrUnknownField     = errors.New("unknown signup field")
	ErrSubmitInProgress = errors.New("signup is already being submitted")
)

type SignupState int

const (
	SignupEditing SignupState = iota
	SignupValidating
	SignupSubmitting
	SignupSuccess
	SignupError
)

func (s SignupState) String() string {
	switch s {
	case SignupValidating:
		return "validating"
	case SignupSubmitting:
		return "submitting"
	case SignupSuccess:
		return "success"
	case SignupError:
		return "error"
	default:
		return "editing"
	}
}

type SignupField string

const (
	FieldUsername SignupField = "username"
	FieldEmail    SignupField = "email"
	FieldPassword SignupField = "password"
)

// Signer creates accounts. *AuthService satisfies it.
type Signer interface {
	SignUp(ctx context.Context, input core.SignUpInput) (*core.Session, error)
	GoogleAuthURL() string
}

type SignupDeps struct {
	Auth         Signer
	Locator      core.Locator         // optional, coordinates default to 0,0
	Notifier     core.Notifier        // optional
	Navigator    core.Navigator       // optional
	Availability *AvailabilityChecker // optional, fed every username change
	Logger       *slog.Logger
}

// SignupForm holds the signup fields and walks
// editing -> validating -> submitting -> success | error.
type SignupForm struct {
	deps SignupDeps

	mu      sync.Mutex
	state   SignupState
	values  map[SignupField]string
	errs    *core.ValidationError
	message string
}

func NewSignupForm(deps SignupDeps) *SignupForm {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &SignupForm{
		deps:   deps,
		state:  SignupEditing,
		values: make(map[SignupField]string, 3),
	}
}

// SetField edits one field. Editing after a failed submit returns the form to editing.
func (f *SignupForm) SetField(field SignupField, value string) error {
	switch field {
	case FieldUsername, FieldEmail, FieldPassword:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	f.mu.Lock()
	if f.state == SignupValidating || f.state == SignupSubmitting {
		f.mu.Unlock()
		return ErrSubmitInProgress
	}
	f.values[field] = value
	f.state = SignupEditing
	f.message = ""
	f.mu.Unlock()

	if field == FieldUsername && f.deps.Availability != nil {
		f.deps.Availability.Input(value)
	}
	return nil
}

func (f *SignupForm) Value(field SignupField) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

func (f *SignupForm) State() SignupState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// FieldError is the validation message for field from the last submit, or ""
func (f *SignupForm) FieldError(field SignupField) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		return ""
	}
	return f.errs.Field(string(field))
}

// Message is the form-level error shown after a failed submit
func (f *SignupForm) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Close stops the availability checker, if any. Later username changes no longer reach it.
func (f *SignupForm) Close() {
	if f.deps.Availability != nil {
		f.deps.Availability.Stop()
	}
}

// GoogleLoginURL is where the browser goes to sign up with Google instead
func (f *SignupForm) GoogleLoginURL() string {
	return f.deps.Auth.GoogleAuthURL()
}

// Submit validates the fields and, when they pass, creates the account.
// Invalid input never reaches the network.
func (f *SignupForm) Submit(ctx context.Context) (*core.Session, error) {
	f.mu.Lock()
	if f.state == SignupValidating || f.state == SignupSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	f.state = SignupValidating
	f.errs = nil
	f.message = ""
	input := core.SignUpInput{
		Username: f.values[FieldUsername],
		Email:    f.values[FieldEmail],
		Password: f.values[FieldPassword],
	}
	f.mu.Unlock()

	if err := core.ValidateSignUp(input); err != nil {
		var verr *core.ValidationError
		errors.As(err, &verr)

		f.mu.Lock()
		f.state = SignupEditing
		f.errs = verr
		f.mu.Unlock()
		return nil, err
	}

	f.setState(SignupSubmitting)

	input.Location = core.NewPoint(f.locate(ctx), "")

	session, err := f.deps.Auth.SignUp(ctx, input)
	if err != nil {
		f.deps.Logger.WarnContext(ctx, "signup failed",
			slog.String("username", input.Username),
			slog.Any("error", err))

		f.mu.Lock()
		f.state = SignupError
		f.message = MessageSignupFailed
		f.mu.Unlock()
		return nil, err
	}

	f.setState(SignupSuccess)
	if f.deps.Navigator != nil {
		f.deps.Navigator.Navigate(AppPath)
	}
	return session, nil
}

func (f *SignupForm) setState(state SignupState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

// locate returns the device position, or 0,0 when it is unavailable.
// A denied permission is reported to the user and never blocks signup.
func (f *SignupForm) locate(ctx context.Context) core.Coordinates {
	if f.deps.Locator == nil {
		return core.Coordinates{}
	}

	coords, err := f.deps.Locator.Locate(ctx)
	if err == nil {
		if core.ValidateLocation(core.NewPoint(coords, "")) == nil {
			return coords
		}
		err = core.ErrInvalidCoordinates
	}

	message := MessageLocationUnknown
	if errors.Is(err, core.ErrPermissionDenied) {
		message = MessageLocationDenied
	}
	f.deps.Logger.WarnContext(ctx, "location unavailable, using 0,0", slog.Any("error", err))
	if f.deps.Notifier != nil {
		f.deps.Notifier.Notify(core.NotifyWarning, message)
	}
	return core.Coordinates{}
}
