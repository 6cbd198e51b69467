package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrInvalidSealed      = errors.New("invalid sealed data format")
	ErrUnsupportedSealed  = errors.New("unsupported key derivation algorithm")
	ErrDecryptFailed      = errors.New("decryption failed: wrong passphrase or corrupted data")
)

const (
	keyLength   = 32
	nonceLength = 24

	// maxMemory caps the cost a sealed header may ask Open to pay, in KiB
	maxMemory = 1 << 20
)

// Sealer encrypts small documents with a key derived from a passphrase.
//
// Output is self-describing:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<nonce||box>
//
// so Open recovers the derivation parameters from the data itself.
type Sealer struct {
	passphrase  []byte
	Memory      uint32 // Memory cost in KiB
	Iterations  uint32 // Number of iterations (time cost)
	Parallelism uint8  // Number of parallel threads
	SaltLength  uint32 // Length of random salt. Ignored during Open()
}

// NewSealer uses the OWASP argon2id baseline
//
// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	return &Sealer{
		passphrase:  []byte(passphrase),
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
	}, nil
}

func (s *Sealer) deriveKey(salt []byte, memory, iterations uint32, parallelism uint8) *[keyLength]byte {
	var key [keyLength]byte
	copy(key[:], argon2.IDKey(s.passphrase, salt, iterations, memory, parallelism, keyLength))
	return &key
}

// Seal encrypts plaintext
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, s.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := s.deriveKey(salt, s.Memory, s.Iterations, s.Parallelism)
	box := secretbox.Seal(nonce[:], plaintext, &nonce, key)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.Memory,
		s.Iterations,
		s.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(box))

	return []byte(encoded), nil
}

// Open decrypts data produced by Seal
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	params, salt, box, err := decodeSealed(string(sealed))
	if err != nil {
		return nil, err
	}
	if len(box) < nonceLength+secretbox.Overhead {
		return nil, ErrInvalidSealed
	}

	var nonce [nonceLength]byte
	copy(nonce[:], box[:nonceLength])

	key := s.deriveKey(salt, params.Memory, params.Iterations, params.Parallelism)
	plaintext, ok := secretbox.Open(nil, box[nonceLength:], &nonce, key)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data looks like Seal output
func IsSealed(data []byte) bool {
	return strings.HasPrefix(string(data), "$argon2id$")
}

func decodeSealed(encoded string) (*Sealer, []byte, []byte, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 {
		return nil, nil, nil, ErrInvalidSealed
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, ErrUnsupportedSealed
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	params := &Sealer{}
	paramParts := strings.Split(parts[3], ",")
	if len(paramParts) != 3 {
		return nil, nil, nil, ErrInvalidSealed
	}

	if _, err := fmt.Sscanf(paramParts[0], "m=%d", &params.Memory); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid memory parameter: %w", err)
	}

	if _, err := fmt.Sscanf(paramParts[1], "t=%d", &params.Iterations); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid iterations parameter: %w", err)
	}

	var p int
	if _, err := fmt.Sscanf(paramParts[2], "p=%d", &p); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parallelism parameter: %w", err)
	}
	if p < 1 || p > 255 {
		return nil, nil, nil, ErrInvalidSealed
	}
	params.Parallelism = uint8(p)

	// argon2.IDKey panics when t or p is zero; RFC 9106 requires m >= 8*p KiB
	if params.Iterations < 1 || params.Memory < 8*uint32(p) || params.Memory > maxMemory {
		return nil, nil, nil, ErrInvalidSealed
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}
	if len(salt) == 0 {
		return nil, nil, nil, ErrInvalidSealed
	}

	box, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid box encoding: %w", err)
	}

	return params, salt, box, nil
}
