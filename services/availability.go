package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lborres/lumore/core"
	"github.com/lborres/lumore/pkg/cache"
	"github.com/lborres/lumore/pkg/debounce"
)

const (
	DefaultAvailabilityDelay    = 1000 * time.Millisecond
	DefaultAvailabilityCacheTTL = time.Minute
	DefaultAvailabilityTimeout  = 10 * time.Second
)

// UsernameChecker is the part of the API the availability checker needs
type UsernameChecker interface {
	CheckUsername(ctx context.Context, username string) (bool, error)
}

type AvailabilityState int

const (
	AvailabilityUnknown AvailabilityState = iota
	AvailabilityChecking
	AvailabilityAvailable
	AvailabilityTaken
	AvailabilityFailed
)

func (s AvailabilityState) String() string {
	switch s {
	case AvailabilityChecking:
		return "checking"
	case AvailabilityAvailable:
		return "available"
	case AvailabilityTaken:
		return "taken"
	case AvailabilityFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Availability is the checker's view of one username.
// Err holds the validation or request failure, if any.
type Availability struct {
	Username string
	State    AvailabilityState
	Err      error
}

type AvailabilityConfig struct {
	Delay          time.Duration // quiet period before a check, default 1s
	CacheTTL       time.Duration // how long answers are reused, default 1m
	RequestTimeout time.Duration
	OnChange       func(Availability) // must not call Input
	Logger         *slog.Logger
}

type availabilityQuery struct {
	username   string
	generation uint64
}

// AvailabilityChecker asks whether a username is free once typing pauses.
//
// Each input bumps a generation counter. Answers for an older generation
// are dropped, so a slow response never overwrites newer state.
type AvailabilityChecker struct {
	api      UsernameChecker
	answers  *cache.InMemoryCache[bool]
	debounce *debounce.Debouncer[availabilityQuery]
	onChange func(Availability)
	logger   *slog.Logger
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	// notifyMu keeps OnChange calls in generation order
	notifyMu   sync.Mutex
	mu         sync.Mutex
	generation uint64
	current    Availability
	stopped    bool
}

func NewAvailabilityChecker(api UsernameChecker, cfg AvailabilityConfig) *AvailabilityChecker {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultAvailabilityDelay
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultAvailabilityCacheTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultAvailabilityTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &AvailabilityChecker{
		api:      api,
		answers:  cache.NewInMemoryCache[bool](cache.Config{TTL: cfg.CacheTTL}),
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
		timeout:  cfg.RequestTimeout,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.debounce = debounce.New(cfg.Delay, c.run)
	return c
}

// Input records what the user typed. A check runs once input has been
// stable for the configured delay.
func (c *AvailabilityChecker) Input(username string) {
	c.notifyMu.Lock()
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return
	}
	c.generation++
	q := availabilityQuery{username: username, generation: c.generation}
	c.current = Availability{Username: username, State: AvailabilityUnknown}
	if err := core.ValidateUsername(username); err != nil {
		c.current.Err = err
	}
	snapshot := c.current
	c.mu.Unlock()

	c.notify(snapshot)
	c.notifyMu.Unlock()

	c.debounce.Push(q)
}

// Current returns the latest state
func (c *AvailabilityChecker) Current() Availability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Check asks right away, bypassing the debounce. Cached answers are reused.
func (c *AvailabilityChecker) Check(ctx context.Context, username string) (bool, error) {
	if err := core.ValidateUsername(username); err != nil {
		return false, err
	}
	if free, err := c.answers.Get(username); err == nil {
		return free, nil
	}

	free, err := c.api.CheckUsername(ctx, username)
	if err != nil {
		return false, err
	}
	_ = c.answers.Set(username, free)
	return free, nil
}

// Flush runs a pending check now instead of waiting out the delay
func (c *AvailabilityChecker) Flush() {
	c.debounce.Flush()
}

// Stop cancels pending and in-flight checks. Later input is ignored and
// answers still in flight are discarded.
func (c *AvailabilityChecker) Stop() {
	c.notifyMu.Lock()
	c.mu.Lock()
	c.stopped = true
	c.generation++
	c.mu.Unlock()
	c.notifyMu.Unlock()

	c.debounce.Stop()
	c.cancel()
}

func (c *AvailabilityChecker) run(q availabilityQuery) {
	// Empty or malformed usernames are never sent
	if core.ValidateUsername(q.username) != nil {
		return
	}

	if free, err := c.answers.Get(q.username); err == nil {
		c.settle(q, free, nil)
		return
	}

	if !c.transition(q, Availability{Username: q.username, State: AvailabilityChecking}) {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	free, err := c.api.CheckUsername(ctx, q.username)
	if err == nil {
		_ = c.answers.Set(q.username, free)
	}
	c.settle(q, free, err)
}

func (c *AvailabilityChecker) settle(q availabilityQuery, free bool, err error) {
	next := Availability{Username: q.username}
	switch {
	case err != nil:
		next.State = AvailabilityFailed
		next.Err = err
	case free:
		next.State = AvailabilityAvailable
	default:
		next.State = AvailabilityTaken
	}

	if !c.transition(q, next) {
		c.logger.Debug("discarding stale availability answer",
			slog.String("username", q.username),
			slog.String("state", next.State.String()))
	}
}

// transition applies next only if q is still the latest input
func (c *AvailabilityChecker) transition(q availabilityQuery, next Availability) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if q.generation != c.generation {
		c.mu.Unlock()
		return false
	}
	c.current = next
	c.mu.Unlock()

	c.notify(next)
	return true
}

func (c *AvailabilityChecker) notify(a Availability) {
	if c.onChange != nil {
		c.onChange(a)
	}
}
