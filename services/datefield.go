package services

import (
	"sync"
	"time"

	"github.com/lborres/lumore/core"
)

// DateField is a birth date picker bounded by the minimum age.
// OnChange receives the selection formatted as yyyy-MM-dd.
type DateField struct {
	Label       string
	Placeholder string
	OnChange    func(value string)

	now func() time.Time

	mu       sync.Mutex
	selected time.Time
	hasValue bool
}

func NewDateField(label string, onChange func(string)) *DateField {
	return &DateField{
		Label:       label,
		Placeholder: "Pick a date",
		OnChange:    onChange,
		now:         time.Now,
	}
}

// MaxDate is the latest selectable day
func (f *DateField) MaxDate() time.Time {
	return core.MinAgeCutoff(f.now())
}

// Disabled reports whether d cannot be picked
func (f *DateField) Disabled(d time.Time) bool {
	return !core.IsSelectableBirthDate(d, f.now())
}

// Select picks d and reports it to OnChange. Disabled days are rejected.
func (f *DateField) Select(d time.Time) error {
	if f.Disabled(d) {
		return core.ErrUnderMinimumAge
	}

	f.mu.Lock()
	f.selected = d
	f.hasValue = true
	f.mu.Unlock()

	if f.OnChange != nil {
		f.OnChange(core.FormatBirthDate(d))
	}
	return nil
}

// Sync follows a value set by the parent. An empty value keeps the current selection.
func (f *DateField) Sync(value string) error {
	if value == "" {
		return nil
	}

	d, err := core.ParseBirthDate(value)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.selected = d
	f.hasValue = true
	f.mu.Unlock()
	return nil
}

// Value returns the selection as yyyy-MM-dd, or "" when nothing is selected
func (f *DateField) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasValue {
		return ""
	}
	return core.FormatBirthDate(f.selected)
}

// Display is the selection in long form, or the placeholder
func (f *DateField) Display() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasValue {
		return f.Placeholder
	}
	return f.selected.Format("January 2, 2006")
}
