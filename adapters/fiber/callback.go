package fiber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/pkg/crypto"
)

const (
	CallbackPath = "/auth/callback"

	DefaultCallbackAddr = "127.0.0.1:0"

	callbackStoreTimeout = 5 * time.Second
)

var ErrReceiverNotStarted = errors.New("callback receiver is not listening")

// CallbackReceiver finishes a Google sign-in started in the browser.
//
// It serves GET /auth/callback on a loopback address, checks the state it
// handed out, stores the session it receives and hands it to Wait.
// The state is spent by the first callback that stores a session; a failed
// store leaves it usable so the browser can retry.
type CallbackReceiver struct {
	app    *fiber.App
	store  core.SessionStore
	state  *crypto.State
	logger *slog.Logger

	mu   sync.Mutex
	ln   net.Listener
	used bool // state consumed, guarded by mu
	done chan *core.Session
	once sync.Once
}

func NewCallbackReceiver(store core.SessionStore, logger *slog.Logger) (*CallbackReceiver, error) {
	if store == nil {
		return nil, core.ErrSessionStoreRequired
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	state, err := crypto.NewState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate callback state: %w", err)
	}

	r := &CallbackReceiver{
		app:    fiber.New(),
		store:  store,
		state:  state,
		logger: logger,
		done:   make(chan *core.Session, 1),
	}
	r.app.Get(CallbackPath, r.handleCallback)

	return r, nil
}

// Start listens on addr and serves in the background.
// Use "127.0.0.1:0" to pick a free port.
func (r *CallbackReceiver) Start(addr string) error {
	if addr == "" {
		addr = DefaultCallbackAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	r.mu.Lock()
	r.ln = ln
	r.mu.Unlock()

	go func() {
		err := r.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil {
			r.logger.Error("callback receiver stopped", slog.Any("error", err))
		}
	}()

	r.logger.Debug("callback receiver listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// CallbackURL is where the backend should send the browser after sign-in
func (r *CallbackReceiver) CallbackURL() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ln == nil {
		return "", ErrReceiverNotStarted
	}
	return "http://" + r.ln.Addr().String() + CallbackPath, nil
}

// AuthURL decorates the Google sign-in URL with this receiver's state and callback URL
func (r *CallbackReceiver) AuthURL(googleURL string) (string, error) {
	callback, err := r.CallbackURL()
	if err != nil {
		return "", err
	}

	u, err := url.Parse(googleURL)
	if err != nil {
		return "", fmt.Errorf("invalid google auth URL: %w", err)
	}
	q := u.Query()
	q.Set("state", r.state.Value)
	q.Set("redirect_uri", callback)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Wait blocks until a callback has stored a session or ctx is done
func (r *CallbackReceiver) Wait(ctx context.Context) (*core.Session, error) {
	select {
	case session := <-r.done:
		return session, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *CallbackReceiver) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	ln := r.ln
	r.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := r.app.ShutdownWithContext(ctx)
	// Listener may not have been picked up by the server yet
	_ = ln.Close()
	return err
}

func (r *CallbackReceiver) finish(session *core.Session) {
	r.once.Do(func() {
		r.done <- session
	})
}

// claimState marks the state as spent. It reports false if it already was.
func (r *CallbackReceiver) claimState() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.used {
		return false
	}
	r.used = true
	return true
}

func (r *CallbackReceiver) releaseState() {
	r.mu.Lock()
	r.used = false
	r.mu.Unlock()
}

func (r *CallbackReceiver) handleCallback(c fiber.Ctx) error {
	if !r.state.Verify(c.Query("state")) {
		r.logger.Warn("callback rejected", slog.String("reason", "state mismatch"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": core.ErrStateMismatch.Error(),
		})
	}

	token := c.Query("token")
	user, err := callbackUser(c)
	if err != nil || token == "" || user.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": core.ErrCallbackIncomplete.Error(),
		})
	}

	if !r.claimState() {
		r.logger.Warn("callback rejected", slog.String("reason", "state already used"))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": core.ErrStateMismatch.Error(),
		})
	}

	session := &core.Session{Token: token, User: user}

	ctx, cancel := context.WithTimeout(context.Background(), callbackStoreTimeout)
	defer cancel()

	if err := r.store.Set(ctx, session); err != nil {
		r.releaseState()
		r.logger.Error("failed to store session", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store session",
		})
	}

	r.finish(session)
	return c.Status(fiber.StatusOK).SendString("Signed in to Lumore. You can close this window.")
}

// callbackUser reads the user either from a JSON "user" parameter
// or from separate _id, username and email parameters
func callbackUser(c fiber.Ctx) (core.User, error) {
	if raw := c.Query("user"); raw != "" {
		var user core.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return core.User{}, fmt.Errorf("invalid user parameter: %w", err)
		}
		return user, nil
	}

	return core.User{
		ID:       c.Query("_id"),
		Username: c.Query("username"),
		Email:    c.Query("email"),
	}, nil
}
