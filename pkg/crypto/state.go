package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrTooManyArgs = errors.New("too many arguments. expected only 1")
)

const (
	DefaultStateLength = 32 // 256 bits
)

// State is an anti-forgery value for a browser round trip such as OAuth.
// Value is sent out; only its hash is used for comparison.
type State struct {
	Value string
	hash  string
}

// RandomString returns byteLength random bytes encoded as unpadded base64url
func RandomString(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultStateLength
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewState generates a fresh state of the optional byte length
func NewState(byteLength ...int) (*State, error) {
	if len(byteLength) > 1 {
		return nil, ErrTooManyArgs
	}

	length := DefaultStateLength
	if len(byteLength) > 0 && byteLength[0] > 0 {
		length = byteLength[0]
	}

	value, err := RandomString(length)
	if err != nil {
		return nil, err
	}
	return &State{Value: value, hash: Hash(value)}, nil
}

// Verify reports whether candidate is the value this state was created with.
// The comparison runs in constant time.
func (s *State) Verify(candidate string) bool {
	if s == nil || candidate == "" || s.hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(candidate)), []byte(s.hash)) == 1
}

// Hash returns the hex SHA-256 of value
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
