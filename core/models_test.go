package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Usable(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		want    bool
	}{
		{name: "nil", session: nil, want: false},
		{name: "no token", session: &Session{User: User{ID: "u1"}}, want: false},
		{name: "no user id", session: &Session{Token: "t"}, want: false},
		{name: "complete", session: &Session{Token: "t", User: User{ID: "u1"}}, want: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, test.session.Usable())
		})
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&Session{}).Expired(now), "no expiry information never expires")
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
}

func TestAuthResult_Session(t *testing.T) {
	var result AuthResult
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","username":"alice","email":"a@x.com","token":"tok"}`), &result))

	s := result.Session()
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, User{ID: "u1", Username: "alice", Email: "a@x.com"}, s.User)
}

// Requirement: profile fields the client does not model survive a decode/encode cycle.
func TestProfile_KeepsUnknownFields(t *testing.T) {
	raw := `{"_id":"u1","username":"alice","email":"a@x.com","bio":"hi","interests":["chess"]}`

	var p Profile
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "hi", p.Attributes["bio"])
	assert.NotContains(t, p.Attributes, "_id")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

// Requirement: only the fields set on a partial update are sent.
func TestProfileUpdate_OmitsUnsetFields(t *testing.T) {
	bio := "new bio"
	out, err := json.Marshal(ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bio":"new bio"}`, string(out))

	assert.True(t, ProfileUpdate{}.Empty())
	assert.False(t, ProfileUpdate{Bio: &bio}.Empty())
}

func TestNewPoint(t *testing.T) {
	loc := NewPoint(Coordinates{Longitude: 121.0, Latitude: 14.5}, "Manila")

	out, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[121,14.5],"formattedAddress":"Manila"}`, string(out))
}
