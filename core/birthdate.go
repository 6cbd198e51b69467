package core

import (
	"fmt"
	"time"
)

const (
	MinimumAge = 18

	// BirthDateLayout is yyyy-MM-dd
	BirthDateLayout = "2006-01-02"
)

// MinAgeCutoff returns the latest birth date allowed on now's calendar day.
// A Feb 29 cutoff in a non-leap year normalizes to Mar 1.
func MinAgeCutoff(now time.Time) time.Time {
	y, m, d := now.AddDate(-MinimumAge, 0, 0).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// IsSelectableBirthDate reports whether d is on or before the minimum-age cutoff.
// Only the calendar date of d counts.
func IsSelectableBirthDate(d, now time.Time) bool {
	y, m, day := d.Date()
	date := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	return !date.After(MinAgeCutoff(now))
}

func FormatBirthDate(d time.Time) string {
	return d.Format(BirthDateLayout)
}

func ParseBirthDate(value string) (time.Time, error) {
	d, err := time.Parse(BirthDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBirthDate, value)
	}
	return d, nil
}
