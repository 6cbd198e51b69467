package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionMissing  = errors.New("not signed in: no usable session")
	ErrSessionExpired  = errors.New("session expired, please sign in again")
)

// Validation errors (client input)
var (
	ErrUsernameRequired   = errors.New("username is required")
	ErrInvalidUsername    = errors.New("invalid format: only letters, numbers, underscores, and single dots allowed")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrIdentifierRequired = errors.New("username or email is required")
	ErrInvalidBirthDate   = errors.New("date of birth must be formatted as yyyy-MM-dd")
	ErrUnderMinimumAge    = errors.New("you must be at least 18 years old")
	ErrInvalidCoordinates = errors.New("coordinates are out of range")
	ErrInvalidVisibility  = errors.New("visibility must be one of public, matches, private")
	ErrFieldRequired      = errors.New("field name is required")
	ErrEmptyUpdate        = errors.New("update does not change anything")
	ErrInvalidAgeRange    = errors.New("age range must start at 18 or above and min must not exceed max")
	ErrInvalidDistance    = errors.New("maximum distance must be greater than zero")
	ErrEmptyValue         = errors.New("values must not be empty")
)

// Permission errors
var (
	ErrPermissionDenied = errors.New("permission denied")
)

// Config errors
var (
	ErrBaseURLRequired      = errors.New("API base URL is required")
	ErrInvalidBaseURL       = errors.New("API base URL must be an absolute http(s) URL")
	ErrSessionStoreRequired = errors.New("session store is required")
	ErrUnknownSessionStore  = errors.New("unknown session store")
)

// Google callback errors
var (
	ErrStateMismatch      = errors.New("callback state does not match")
	ErrCallbackIncomplete = errors.New("callback is missing token or user")
)

// ValidationError collects field-scoped validation failures.
// It never reaches the network.
type ValidationError struct {
	Fields map[string]error
}

// Add records err for field, keeping the first error per field
func (e *ValidationError) Add(field string, err error) {
	if e.Fields == nil {
		e.Fields = make(map[string]error)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = err
	}
}

// Field returns the message for field, or "" when the field is valid
func (e *ValidationError) Field(field string) string {
	if err, ok := e.Fields[field]; ok {
		return err.Error()
	}
	return ""
}

// OrNil returns nil when no field failed
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, err := range e.Fields {
		errs = append(errs, err)
	}
	return errs
}

// RequestErrorKind tells how far a failed request got
type RequestErrorKind int

const (
	// RequestErrorResponse means the server answered with a non-2xx status
	RequestErrorResponse RequestErrorKind = iota
	// RequestErrorNoResponse means the request was sent but nothing came back
	RequestErrorNoResponse
	// RequestErrorSetup means the request could not be built
	RequestErrorSetup
)

const (
	MessageNoResponse = "no response from server, please check your connection"
	MessageSetupError = "error setting up the request"
)

// RequestError is a transport failure or a non-2xx response
type RequestError struct {
	Kind       RequestErrorKind
	StatusCode int // 0 unless Kind is RequestErrorResponse
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// PermissionError reports a denied device permission such as geolocation.
// It is non-fatal: callers notify the user and continue.
type PermissionError struct {
	Permission string
	Err        error
}

func (e *PermissionError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrPermissionDenied) {
		return fmt.Sprintf("%s permission denied: %v", e.Permission, e.Err)
	}
	return e.Permission + " permission denied"
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}
