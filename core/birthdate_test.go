package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requirement: a date exactly 18 years before today is selectable, one day later is not.
func TestIsSelectableBirthDate_Boundary(t *testing.T) {
	now := time.Date(2026, time.October, 15, 18, 30, 0, 0, time.UTC)
	boundary := time.Date(2008, time.October, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsSelectableBirthDate(boundary, now))
	assert.True(t, IsSelectableBirthDate(boundary.AddDate(0, 0, -1), now))
	assert.False(t, IsSelectableBirthDate(boundary.AddDate(0, 0, 1), now))
}

// Requirement: the time of day on either side never moves the boundary.
func TestIsSelectableBirthDate_IgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2026, time.October, 15, 0, 0, 1, 0, time.UTC)
	lateOnBoundary := time.Date(2008, time.October, 15, 23, 59, 59, 0, time.UTC)

	assert.True(t, IsSelectableBirthDate(lateOnBoundary, now))
}

func TestMinAgeCutoff_LeapDay(t *testing.T) {
	now := time.Date(2026, time.February, 28, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2008, time.February, 28, 0, 0, 0, 0, time.UTC), MinAgeCutoff(now))

	// born on Feb 29, selectable from Mar 1 in a non-leap year
	leap := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	assert.False(t, IsSelectableBirthDate(leap, time.Date(2042, time.February, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, IsSelectableBirthDate(leap, time.Date(2042, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseAndFormatBirthDate(t *testing.T) {
	d, err := ParseBirthDate("1999-12-31")
	require.NoError(t, err)
	assert.Equal(t, "1999-12-31", FormatBirthDate(d))

	_, err = ParseBirthDate("31-12-1999")
	assert.ErrorIs(t, err, ErrInvalidBirthDate)
}
