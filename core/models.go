package core

import (
	"encoding/json"
	"time"
)

// User is the cached profile summary returned by the auth endpoints
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is the authenticated user's token and cached profile summary
//
// Token and User are always written and removed together by a SessionStore.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`

	// ExpiresAt is read from the token's exp claim when the token is a JWT.
	// Zero means the client has no expiry information.
	ExpiresAt time.Time `json:"-"`
}

// Usable reports whether the session can authenticate a request
func (s *Session) Usable() bool {
	return s != nil && s.Token != "" && s.User.ID != ""
}

// Expired reports whether the session has a known expiry in the past
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Location is a GeoJSON point as the backend stores it
type Location struct {
	Type             string     `json:"type"`
	Coordinates      [2]float64 `json:"coordinates"` // [longitude, latitude]
	FormattedAddress string     `json:"formattedAddress"`
}

// Coordinates is a longitude/latitude pair
type Coordinates struct {
	Longitude float64
	Latitude  float64
}

// NewPoint builds a GeoJSON point for the given coordinates
func NewPoint(c Coordinates, formattedAddress string) Location {
	return Location{
		Type:             "Point",
		Coordinates:      [2]float64{c.Longitude, c.Latitude},
		FormattedAddress: formattedAddress,
	}
}

// SignUpInput contains the data needed to register a new user
type SignUpInput struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Location Location `json:"location"`
}

// LoginInput contains the credentials for authentication
//
// Identifier is either the username or the email address.
type LoginInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SetPasswordInput replaces the password of the signed-in user
type SetPasswordInput struct {
	NewPassword string `json:"newPassword"`
}

// AuthResult is the body returned by signup, login and set-password
type AuthResult struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// Session converts the result into the session persisted by the caller
func (r *AuthResult) Session() *Session {
	return &Session{
		Token: r.Token,
		User: User{
			ID:       r.ID,
			Username: r.Username,
			Email:    r.Email,
		},
	}
}

// Profile is the profile document returned by the profile endpoints.
// Fields the client does not model are kept in Attributes.
type Profile struct {
	ID         string         `json:"_id"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	Attributes map[string]any `json:"-"`
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	type known Profile
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}

	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	delete(attrs, "_id")
	delete(attrs, "username")
	delete(attrs, "email")

	*p = Profile(k)
	p.Attributes = attrs
	return nil
}

func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+3)
	for k, v := range p.Attributes {
		out[k] = v
	}
	out["_id"] = p.ID
	out["username"] = p.Username
	out["email"] = p.Email
	return json.Marshal(out)
}

// ProfileUpdate is a partial profile update. Nil fields are not sent.
type ProfileUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	DateOfBirth *string   `json:"dateOfBirth,omitempty"` // yyyy-MM-dd
	Gender      *string   `json:"gender,omitempty"`
	Occupation  *string   `json:"occupation,omitempty"`
	Interests   []string  `json:"interests,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// Empty reports whether the update sets no field
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Bio == nil && u.DateOfBirth == nil && u.Gender == nil &&
		u.Occupation == nil && len(u.Interests) == 0 && u.Location == nil
}

// Visibility controls who can see a profile field
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityMatches Visibility = "matches"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility level
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityMatches, VisibilityPrivate:
		return true
	}
	return false
}

// VisibilityUpdate is the body of the visibility endpoint
type VisibilityUpdate struct {
	Fields map[string]Visibility `json:"fields"`
}

// AgeRange bounds the ages a user wants to be matched with
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// PreferencesUpdate is a partial matching-preferences update. Nil fields are not sent.
type PreferencesUpdate struct {
	AgeRange      *AgeRange `json:"ageRange,omitempty"`
	MaxDistanceKm *float64  `json:"maxDistanceKm,omitempty"`
	InterestedIn  []string  `json:"interestedIn,omitempty"`
	ShowMe        *bool     `json:"showMe,omitempty"`
}

// Empty reports whether the update sets no field
func (p PreferencesUpdate) Empty() bool {
	return p.AgeRange == nil && p.MaxDistanceKm == nil && len(p.InterestedIn) == 0 && p.ShowMe == nil
}
