package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrSecretTooLong is returned by Hash for secrets the verifier cannot store.
var ErrSecretTooLong = errors.New("password too long")

// Verifier turns a secret into its stored form and checks supplied secrets
// against it.
type Verifier interface {
	Hash(secret string) (string, error)
	Verify(stored, supplied string) bool
}

// PlainVerifier stores secrets as-is and compares them exactly. Use it for
// tests and for importing existing plain-text directories.
type PlainVerifier struct{}

// Hash returns the secret unchanged.
func (PlainVerifier) Hash(secret string) (string, error) {
	return secret, nil
}

// Verify reports whether supplied equals stored, case-sensitively.
func (PlainVerifier) Verify(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// BcryptVerifier stores salted bcrypt hashes.
type BcryptVerifier struct {
	Cost int
}

// Hash returns the bcrypt hash of secret.
func (v BcryptVerifier) Hash(secret string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("hashing password: %w", ErrSecretTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether supplied matches the stored hash.
func (BcryptVerifier) Verify(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}

// NewVerifier returns the verifier named by kind ("bcrypt" or "plain").
func NewVerifier(kind string) (Verifier, error) {
	switch kind {
	case "", "bcrypt":
		return BcryptVerifier{}, nil
	case "plain":
		return PlainVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown credential verifier %q", kind)
	}
}
