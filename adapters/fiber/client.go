package fiber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lborres/lumore/core"
)

const (
	DefaultTimeout = 10 * time.Second

	HeaderRequestID = "X-Request-ID"
)

// Fallback messages used when the backend does not explain a failure
const (
	msgSignUpFailed      = "signup failed"
	msgLoginFailed       = "login failed"
	msgSetPasswordFailed = "set password failed"
	msgCheckFailed       = "username check failed"
	msgProfileFailed     = "error loading user data"
	msgUpdateFailed      = "profile update failed"
	msgVisibilityFailed  = "visibility update failed"
	msgPreferencesFailed = "preferences update failed"
	msgDeleteFailed      = "account deletion failed"
)

// Client talks to the Lumore REST API over the fiber HTTP client
type Client struct {
	http    *client.Client
	baseURL string
	store   core.SessionStore
	limiter *rate.Limiter
	logger  *slog.Logger
	timeout time.Duration
}

var _ core.API = (*Client)(nil)

type Option func(*Client)

// WithTimeout bounds every request. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit paces outbound requests with a token bucket.
// A non-positive limit disables pacing.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API at baseURL.
// Authenticated calls read the session from store.
func NewClient(baseURL string, store core.SessionStore, opts ...Option) (*Client, error) {
	base, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, core.ErrSessionStoreRequired
	}

	c := &Client{
		baseURL: base,
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = client.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout)

	return c, nil
}

// NormalizeBaseURL checks that raw is an absolute http(s) URL and strips trailing slashes
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", core.ErrBaseURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidBaseURL, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GoogleAuthURL is the full-page redirect target that starts Google sign-in
func (c *Client) GoogleAuthURL() string {
	return c.baseURL + "/auth/google"
}

// ============================================
// AUTH
// ============================================

func (c *Client) SignUp(ctx context.Context, input core.SignUpInput) (*core.AuthResult, error) {
	var result core.AuthResult
	err := c.send(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/signup",
		body:     input,
		fallback: msgSignUpFailed,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Login(ctx context.Context, input core.LoginInput) (*core.AuthResult, error) {
	var result core.AuthResult
	err := c.send(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     input,
		fallback: msgLoginFailed,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SetPassword(ctx context.Context, input core.SetPasswordInput) (*core.AuthResult, error) {
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	var result core.AuthResult
	err = c.send(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/set-password",
		body:     input,
		token:    session.Token,
		fallback: msgSetPasswordFailed,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckUsername reports whether username is still free
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	var result struct {
		IsUnique bool `json:"isUnique"`
	}
	err := c.send(ctx, request{
		method:   http.MethodGet,
		path:     "/auth/check-username/" + url.PathEscape(username),
		fallback: msgCheckFailed,
	}, &result)
	if err != nil {
		return false, err
	}
	return result.IsUnique, nil
}

// Logout removes the local session. done runs even when removal fails.
func (c *Client) Logout(ctx context.Context, done func()) error {
	if done != nil {
		defer done()
	}

	if err := c.store.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "error logging out", slog.Any("error", err))
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ============================================
// PROFILE
// ============================================

func (c *Client) GetProfile(ctx context.Context, userID string) (*core.Profile, error) {
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = session.User.ID
	}

	var profile core.Profile
	err = c.send(ctx, request{
		method:   http.MethodGet,
		path:     profilePath(userID),
		token:    session.Token,
		fallback: msgProfileFailed,
	}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile patches the signed-in user's profile
func (c *Client) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (*core.Profile, error) {
	return c.patchProfile(ctx, "", "", update, msgUpdateFailed)
}

// UpdateVisibility sets who can see one profile field. An empty userID means the signed-in user.
func (c *Client) UpdateVisibility(ctx context.Context, userID, field string, visibility core.Visibility) (*core.Profile, error) {
	body := core.VisibilityUpdate{Fields: map[string]core.Visibility{field: visibility}}
	return c.patchProfile(ctx, userID, "/visibility", body, msgVisibilityFailed)
}

func (c *Client) UpdatePreferences(ctx context.Context, update core.PreferencesUpdate) (*core.Profile, error) {
	return c.patchProfile(ctx, "", "/preferences", update, msgPreferencesFailed)
}

// DeleteAccount deletes the signed-in user's account on the server.
// The local session is left alone.
func (c *Client) DeleteAccount(ctx context.Context) error {
	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	// the body is a confirmation message with no contract
	err = c.send(ctx, request{
		method:   http.MethodDelete,
		path:     profilePath(session.User.ID),
		token:    session.Token,
		fallback: msgDeleteFailed,
	}, nil)
	if err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "account deleted", slog.String("user_id", session.User.ID))
	return nil
}

func (c *Client) patchProfile(ctx context.Context, userID, suffix string, body any, fallback string) (*core.Profile, error) {
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		userID = session.User.ID
	}

	var profile core.Profile
	err = c.send(ctx, request{
		method:   http.MethodPatch,
		path:     profilePath(userID) + suffix,
		body:     body,
		token:    session.Token,
		fallback: fallback,
	}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func profilePath(userID string) string {
	return "/profile/" + url.PathEscape(userID)
}

// ============================================
// TRANSPORT
// ============================================

type request struct {
	method   string
	path     string
	body     any
	token    string // empty for public endpoints
	fallback string
}

// session returns a usable session or ErrSessionMissing, before anything is built or sent
func (c *Client) session(ctx context.Context) (*core.Session, error) {
	session, err := c.store.Get(ctx)
	if errors.Is(err, core.ErrSessionNotFound) {
		return nil, core.ErrSessionMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !session.Usable() {
		return nil, core.ErrSessionMissing
	}
	return session, nil
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return setupError(fmt.Errorf("failed to encode request body: %w", err))
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return setupError(fmt.Errorf("failed to wait for rate limiter: %w", err))
		}
	}

	requestID := uuid.NewString()
	req := c.http.R().
		SetMethod(r.method).
		SetURL(r.path).
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader(HeaderRequestID, requestID)
	if r.token != "" {
		req.SetHeader("Authorization", "Bearer "+r.token)
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetRawBody(payload)
	}

	start := time.Now()
	resp, err := req.Send()
	if err != nil {
		c.logger.DebugContext(ctx, "request failed",
			slog.String("method", r.method),
			slog.String("path", r.path),
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return noResponseError(err)
	}
	defer resp.Close()

	status := resp.StatusCode()
	// the response buffer is reused after Close
	body := append([]byte(nil), resp.Body()...)

	c.logger.DebugContext(ctx, "request completed",
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("request_id", requestID))

	if status < 200 || status > 299 {
		return responseError(status, body, r.fallback)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &core.RequestError{
			Kind:       core.RequestErrorResponse,
			StatusCode: status,
			Message:    r.fallback,
			Err:        fmt.Errorf("failed to decode response body: %w", err),
		}
	}
	return nil
}
