package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/lumore/core"
)

type stateLog struct {
	mu     sync.Mutex
	states []Availability
}

func (l *stateLog) record(a Availability) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, a)
}

func (l *stateLog) all() []Availability {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Availability(nil), l.states...)
}

func newChecker(t *testing.T, api *FakeAPI, delay time.Duration, log *stateLog) *AvailabilityChecker {
	t.Helper()
	cfg := AvailabilityConfig{Delay: delay}
	if log != nil {
		cfg.OnChange = log.record
	}
	c := NewAvailabilityChecker(api, cfg)
	t.Cleanup(c.Stop)
	return c
}

// Requirement: a burst of keystrokes triggers a single check for the final value.
func TestAvailabilityChecker_DebouncesBurst(t *testing.T) {
	// Arrange
	api := NewFakeAPI()
	c := newChecker(t, api, 100*time.Millisecond, nil)

	// Act
	c.Input("v")
	time.Sleep(10 * time.Millisecond)
	c.Input("va")
	time.Sleep(10 * time.Millisecond)
	c.Input("val")

	// Assert
	require.Eventually(t, func() bool {
		return c.Current().State == AvailabilityAvailable
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, []string{"CheckUsername:val"}, api.Calls())
	assert.Equal(t, "val", c.Current().Username)
}

func TestAvailabilityChecker_ReportsTaken(t *testing.T) {
	api := NewFakeAPI()
	api.taken["alice"] = true
	c := newChecker(t, api, 10*time.Millisecond, nil)

	c.Input("alice")

	require.Eventually(t, func() bool {
		return c.Current().State == AvailabilityTaken
	}, time.Second, 5*time.Millisecond)
}

// Requirement: empty or malformed usernames are never sent.
func TestAvailabilityChecker_SkipsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{name: "empty", username: "", wantErr: core.ErrUsernameRequired},
		{name: "consecutive dots", username: "a..b", wantErr: core.ErrInvalidUsername},
		{name: "trailing dot", username: "alice.", wantErr: core.ErrInvalidUsername},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			api := NewFakeAPI()
			c := newChecker(t, api, 10*time.Millisecond, nil)

			c.Input(test.username)
			time.Sleep(60 * time.Millisecond)

			got := c.Current()
			assert.Equal(t, AvailabilityUnknown, got.State)
			assert.ErrorIs(t, got.Err, test.wantErr)
			assert.Empty(t, api.Calls())
		})
	}
}

// Requirement: a slow answer for superseded input never overwrites the newer state.
func TestAvailabilityChecker_DiscardsStaleAnswer(t *testing.T) {
	// Arrange
	api := NewFakeAPI()
	api.taken["slow.one"] = true
	api.checkDelay["slow.one"] = 200 * time.Millisecond
	log := &stateLog{}
	c := newChecker(t, api, 10*time.Millisecond, log)

	// Act
	c.Input("slow.one")
	require.Eventually(t, func() bool {
		return c.Current().State == AvailabilityChecking
	}, time.Second, 2*time.Millisecond)

	c.Input("fast.one")
	require.Eventually(t, func() bool {
		return c.Current().State == AvailabilityAvailable
	}, time.Second, 2*time.Millisecond)

	// let the slow answer arrive
	time.Sleep(300 * time.Millisecond)

	// Assert
	got := c.Current()
	assert.Equal(t, "fast.one", got.Username)
	assert.Equal(t, AvailabilityAvailable, got.State)
	assert.Equal(t, 1, api.CallCount("CheckUsername:slow.one"), "the slow request did go out")

	for _, s := range log.all() {
		assert.False(t, s.Username == "slow.one" && s.State == AvailabilityTaken,
			"stale answer must not be published")
	}
	states := log.all()
	assert.Equal(t, Availability{Username: "fast.one", State: AvailabilityAvailable}, states[len(states)-1])
}

func TestAvailabilityChecker_ReportsFailure(t *testing.T) {
	api := NewFakeAPI()
	api.checkErr = &core.RequestError{Kind: core.RequestErrorNoResponse, Message: core.MessageNoResponse}
	c := newChecker(t, api, 10*time.Millisecond, nil)

	c.Input("alice")

	require.Eventually(t, func() bool {
		return c.Current().State == AvailabilityFailed
	}, time.Second, 5*time.Millisecond)

	var reqErr *core.RequestError
	assert.True(t, errors.As(c.Current().Err, &reqErr))
}

// Requirement: answers are cached per username.
func TestAvailabilityChecker_CachesAnswers(t *testing.T) {
	api := NewFakeAPI()
	c := newChecker(t, api, 10*time.Millisecond, nil)

	free, err := c.Check(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, free)

	c.Input("alice")
	require.Eventually(t, func() bool {
		return c.Current().State == AvailabilityAvailable
	}, time.Second, 5*time.Millisecond)

	free, err = c.Check(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, free)

	assert.Equal(t, 1, api.CallCount("CheckUsername:alice"))
}

func TestAvailabilityChecker_FlushSkipsDelay(t *testing.T) {
	api := NewFakeAPI()
	c := newChecker(t, api, time.Hour, nil)

	c.Input("alice")
	c.Flush()

	assert.Equal(t, AvailabilityAvailable, c.Current().State)
}

// Requirement: after Stop, input changes nothing and reaches neither OnChange nor the API.
func TestAvailabilityChecker_StopIgnoresLaterInput(t *testing.T) {
	// Arrange
	api := NewFakeAPI()
	log := &stateLog{}
	c := newChecker(t, api, time.Hour, log)
	c.Input("alice")
	c.Flush()
	require.Equal(t, AvailabilityAvailable, c.Current().State)
	before := len(log.all())

	// Act
	c.Stop()
	c.Input("bob")
	c.Input("a..b")
	c.Flush()

	// Assert
	assert.Len(t, log.all(), before)
	assert.Equal(t, Availability{Username: "alice", State: AvailabilityAvailable}, c.Current())
	assert.Equal(t, []string{"CheckUsername:alice"}, api.Calls())
}

func TestAvailabilityState_String(t *testing.T) {
	assert.Equal(t, "unknown", AvailabilityUnknown.String())
	assert.Equal(t, "checking", AvailabilityChecking.String())
	assert.Equal(t, "available", AvailabilityAvailable.String())
	assert.Equal(t, "taken", AvailabilityTaken.String())
	assert.Equal(t, "failed", AvailabilityFailed.String())
}
