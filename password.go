package galleria

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps the one-way hashing primitive used for password
// storage and verification.
type PasswordHasher interface {
	// Hash returns the stored form of a password.
	Hash(password string) (string, error)

	// Compare checks a password against a stored hash.
	// Returns ErrUnauthorized on mismatch.
	Compare(hash, password string) error
}

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. A cost of 0 or less selects the
// library default.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("compare password: %w", ErrUnauthorized)
	}
	return nil
}
