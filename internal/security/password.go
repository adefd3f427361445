package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

// credentialSeparator joins the hex salt and hex key. Hex never produces it.
const credentialSeparator = ":"

// Argon2Params controls the cost of password derivation.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the production cost settings for Argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordHasher derives stored credentials from plaintext passwords.
//
// A credential has the form hex(salt) + ":" + hex(key). The salt is fresh
// for every call to Hash, so hashing the same password twice yields two
// different credentials that both verify.
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher creates a hasher with the given cost parameters.
func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	if params.SaltLength < 16 {
		params.SaltLength = 16
	}
	if params.KeyLength == 0 {
		params.KeyLength = 32
	}
	if params.Parallelism == 0 {
		params.Parallelism = 1
	}
	if params.Iterations == 0 {
		params.Iterations = 1
	}
	return &PasswordHasher{params: params}
}

// Hash returns a salted credential for password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := h.derive(password, salt, h.params.KeyLength)

	return hex.EncodeToString(salt) + credentialSeparator + hex.EncodeToString(key), nil
}

// Verify reports whether candidate matches the stored credential.
// Malformed credentials are treated as a mismatch.
func (h *PasswordHasher) Verify(stored, candidate string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, credentialSeparator)
	if !ok || saltHex == "" || keyHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) == 0 {
		return false
	}

	actual := h.derive(candidate, salt, uint32(len(expected)))
	if len(actual) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func (h *PasswordHasher) derive(password string, salt []byte, keyLen uint32) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		keyLen,
	)
}
