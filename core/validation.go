package core

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const MinPasswordLength = 6

var (
	// consecutive and trailing dots are checked separately; RE2 has no lookahead
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateUsername checks the username format
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if !usernamePattern.MatchString(username) ||
		strings.Contains(username, "..") ||
		strings.HasSuffix(username, ".") {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks for a local@domain.tld shape
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateSignUp validates every signup field and reports all failures at once
func ValidateSignUp(input SignUpInput) error {
	verr := &ValidationError{}
	if err := ValidateUsername(input.Username); err != nil {
		verr.Add("username", err)
	}
	if err := ValidateEmail(input.Email); err != nil {
		verr.Add("email", err)
	}
	if err := ValidatePassword(input.Password); err != nil {
		verr.Add("password", err)
	}
	return verr.OrNil()
}

func ValidateLogin(input LoginInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(input.Identifier) == "" {
		verr.Add("identifier", ErrIdentifierRequired)
	}
	if input.Password == "" {
		verr.Add("password", ErrPasswordRequired)
	}
	return verr.OrNil()
}

func ValidateSetPassword(input SetPasswordInput) error {
	verr := &ValidationError{}
	if err := ValidatePassword(input.NewPassword); err != nil {
		verr.Add("newPassword", err)
	}
	return verr.OrNil()
}

// ValidateLocation checks longitude and latitude ranges
func ValidateLocation(loc Location) error {
	lon, lat := loc.Coordinates[0], loc.Coordinates[1]
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return ErrInvalidCoordinates
	}
	return nil
}

// ValidateProfileUpdate checks a partial profile update against now
func ValidateProfileUpdate(u ProfileUpdate, now time.Time) error {
	verr := &ValidationError{}
	if u.Empty() {
		verr.Add("update", ErrEmptyUpdate)
		return verr
	}

	if u.DateOfBirth != nil {
		dob, err := ParseBirthDate(*u.DateOfBirth)
		switch {
		case err != nil:
			verr.Add("dateOfBirth", err)
		case !IsSelectableBirthDate(dob, now):
			verr.Add("dateOfBirth", ErrUnderMinimumAge)
		}
	}
	if u.Location != nil {
		if err := ValidateLocation(*u.Location); err != nil {
			verr.Add("location", err)
		}
	}
	for _, interest := range u.Interests {
		if strings.TrimSpace(interest) == "" {
			verr.Add("interests", ErrEmptyValue)
			break
		}
	}

	return verr.OrNil()
}

func ValidateVisibility(field string, visibility Visibility) error {
	verr := &ValidationError{}
	if strings.TrimSpace(field) == "" {
		verr.Add("field", ErrFieldRequired)
	}
	if !visibility.Valid() {
		verr.Add("visibility", ErrInvalidVisibility)
	}
	return verr.OrNil()
}

func ValidatePreferences(p PreferencesUpdate) error {
	verr := &ValidationError{}
	if p.Empty() {
		verr.Add("update", ErrEmptyUpdate)
		return verr
	}

	if p.AgeRange != nil && (p.AgeRange.Min < MinimumAge || p.AgeRange.Min > p.AgeRange.Max) {
		verr.Add("ageRange", ErrInvalidAgeRange)
	}
	if p.MaxDistanceKm != nil && *p.MaxDistanceKm <= 0 {
		verr.Add("maxDistanceKm", ErrInvalidDistance)
	}
	for _, v := range p.InterestedIn {
		if strings.TrimSpace(v) == "" {
			verr.Add("interestedIn", ErrEmptyValue)
			break
		}
	}

	return verr.OrNil()
}
