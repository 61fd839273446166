package galleria

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DebugCredential deterministically triggers a simulated internal failure
// in Authorize. It was a test hook of the gateway authorizer this service
// grew out of and is kept so failure paths stay exercisable end to end.
const DebugCredential = "error"

// TokenClaims are the claims bound into an issued token.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer issues signed tokens at login and verifies them at
// request-authorization time. Tokens are HMAC-signed with a server-side
// secret; there is no revocation list.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A ttl of 0 or less disables expiry.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a signed token bound to the user's email.
func (t *TokenIssuer) Issue(email string) (string, error) {
	now := t.now()
	claims := TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature and claims and returns the bound email.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", ErrUnauthorized)
	}
	if claims.Email == "" {
		return "", fmt.Errorf("verify token: no email claim: %w", ErrUnauthorized)
	}
	return claims.Email, nil
}

// Authorize makes the gateway-level authorization decision for a raw bearer
// credential. It fails closed: a missing, malformed, or unverifiable
// credential yields ErrUnauthorized. On success it returns the verified
// email for the downstream handlers.
func (t *TokenIssuer) Authorize(credential string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("authorize: missing credential: %w", ErrUnauthorized)
	}

	token := strings.TrimPrefix(credential, "Bearer ")

	if token == DebugCredential {
		return "", fmt.Errorf("authorize: simulated failure: %w", ErrInternal)
	}

	email, err := t.Verify(token)
	if err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}
	return email, nil
}
