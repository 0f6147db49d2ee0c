package middleware

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	User   *domain.User
	Claims *domain.Claims
	// Token is the raw bearer token the request presented.
	Token string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the Principal stored by Auth, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.User != nil
}
