// Package auth issues and verifies signed credential tokens, hashes passwords
// and holds the static role policy consulted before every mutation.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the minimum HS256 key length (256 bits)
const MinSecretBytes = 32

// DefaultTokenTTL is used when no lifetime is configured
const DefaultTokenTTL = 24 * time.Hour

// ErrWeakSigningKey is a startup configuration error
var ErrWeakSigningKey = errors.New("jwt secret must be at least 32 bytes for HS256")

// VerificationKind classifies why a token was refused
type VerificationKind string

const (
	InvalidSignature VerificationKind = "invalid_signature"
	Expired          VerificationKind = "expired"
	Malformed        VerificationKind = "malformed"
)

// VerificationError is returned by Verify for any refused token
type VerificationError struct {
	Kind VerificationKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "token " + string(e.Kind)
	}
	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Claims carried by an issued token
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token proves
type Identity struct {
	Username string
	Role     models.Role
}

// TokenManager signs and verifies tokens with a symmetric key.
// It keeps no record of issued tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a TokenManager
type Option func(*TokenManager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager validates the key and returns a manager.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenManager(secret []byte, ttl time.Duration, opts ...Option) (*TokenManager, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: got %d bytes", ErrWeakSigningKey, len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	m := &TokenManager{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the configured token lifetime
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for username carrying role
func (m *TokenManager) Issue(username string, role models.Role) (string, error) {
	now := m.now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity.
// It does not consult the user store.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
		// the library rejects now == exp; a token is valid up to and including exp
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return Identity{}, classify(err)
	}
	if m.now().After(claims.ExpiresAt.Time) {
		return Identity{}, &VerificationError{Kind: Expired, Err: jwt.ErrTokenExpired}
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return Identity{}, &VerificationError{Kind: Malformed, Err: errors.New("missing subject")}
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return Identity{}, &VerificationError{Kind: Malformed, Err: fmt.Errorf("unknown role %q", claims.Role)}
	}
	return Identity{Username: subject, Role: role}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerificationError{Kind: InvalidSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Kind: Expired, Err: err}
	default:
		return &VerificationError{Kind: Malformed, Err: err}
	}
}
