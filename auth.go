package galleria

import (
	"context"
	"errors"
	"fmt"
)

// AuthService orchestrates signup and login against the credential store.
type AuthService struct {
	repo   CredentialRepo
	hasher PasswordHasher
	tokens *TokenIssuer
}

func NewAuthService(repo CredentialRepo, hasher PasswordHasher, tokens *TokenIssuer) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// SignUp validates the credentials, checks uniqueness, and writes a new
// user record with an empty image sequence.
//
// Error kinds returned:
//   - ErrInvalidInput: missing fields or failed format rules
//   - ErrConflict: a record already exists for email
func (s *AuthService) SignUp(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("sign up: email and password are required: %w", ErrInvalidInput)
	}

	if !IsValidEmail(email) {
		return fmt.Errorf("sign up: malformed email %q: %w", email, ErrInvalidInput)
	}
	if !IsValidPassword(password) {
		return fmt.Errorf("sign up: password does not meet format rules: %w", ErrInvalidInput)
	}

	_, err := s.repo.GetUser(ctx, email)
	if err == nil {
		return fmt.Errorf("sign up: user %s: %w", email, ErrConflict)
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("sign up: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("sign up: %w", err)
	}

	rec := UserRecord{
		Email:        email,
		PasswordHash: hash,
		Images:       []ImageEntry{},
	}

	// CreateUser is conditional on absence, so a racing second signup for
	// the same email still surfaces as ErrConflict.
	if err := s.repo.CreateUser(ctx, rec); err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	return nil
}

// LogIn verifies the credentials and returns a freshly issued token bound
// to the email.
//
// Error kinds returned:
//   - ErrInvalidInput: missing fields
//   - ErrNotFound: no record for email
//   - ErrUnauthorized: hash verification failed
func (s *AuthService) LogIn(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", fmt.Errorf("log in: email and password are required: %w", ErrInvalidInput)
	}

	rec, err := s.repo.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("log in: user %s: %w", email, ErrNotFound)
		}
		return "", fmt.Errorf("log in: %w", err)
	}

	if err := s.hasher.Compare(rec.PasswordHash, password); err != nil {
		return "", fmt.Errorf("log in: wrong password for %s: %w", email, ErrUnauthorized)
	}

	token, err := s.tokens.Issue(rec.Email)
	if err != nil {
		return "", fmt.Errorf("log in: %w", err)
	}
	return token, nil
}
