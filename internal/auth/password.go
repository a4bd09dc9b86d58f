package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 10

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected rather than truncated.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by Hash for inputs bcrypt cannot represent.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher wraps bcrypt with a fixed cost.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher using DefaultCost.
func NewHasher() *Hasher {
	return &Hasher{Cost: DefaultCost}
}

// Hash returns the salted bcrypt hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost := h.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plain matches hash. A malformed hash never matches.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
