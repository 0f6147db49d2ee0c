package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TokenService mints, validates, refreshes and revokes bearer tokens.
// Every rejection is a *domain.TokenError.
type TokenService interface {
	Issue(ctx context.Context, userID string) (domain.IssuedToken, error)
	Parse(ctx context.Context, raw string) (*domain.Claims, error)
	// ParseForRefresh behaves like Parse but accepts tokens up to the
	// refresh leeway past their expiry.
	ParseForRefresh(ctx context.Context, raw string) (*domain.Claims, error)
	Refresh(ctx context.Context, raw string) (domain.IssuedToken, error)
	Revoke(ctx context.Context, raw string) error
}

// Denylist records revoked token identifiers until they would have expired
// on their own.
type Denylist interface {
	// Add records jti until notAfter. It reports false when jti was already
	// present, which lets callers make a revocation single-use.
	Add(ctx context.Context, jti string, notAfter time.Time) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
}

// Clock is the time source used for token timestamps.
type Clock interface {
	Now() time.Time
}

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify compares in constant time and reports whether plain matches hash.
	Verify(hash, plain string) bool
}
