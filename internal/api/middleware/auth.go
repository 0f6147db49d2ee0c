package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// ParseFunc validates a raw bearer token.
type ParseFunc func(ctx context.Context, raw string) (*domain.Claims, error)

// UserFinder resolves the subject of a validated token.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Auth validates the bearer token with parse, resolves its subject and
// stores the resulting Principal on the request context. Every token
// problem yields domain.ErrUnauthorized; the specific reason is only logged.
func Auth(parse ParseFunc, users UserFinder, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrUnauthorized
			}

			ctx := c.Request().Context()
			claims, err := parse(ctx, raw)
			if err != nil {
				var te *domain.TokenError
				if errors.As(err, &te) {
					return Reject(c, log, te.Kind, err)
				}
				return err
			}

			user, err := users.FindByID(ctx, claims.Subject)
			if errors.Is(err, domain.ErrUserNotFound) {
				return Reject(c, log, domain.TokenUnknownSubject, err)
			}
			if err != nil {
				return err
			}

			p := Principal{User: user, Claims: claims, Token: raw}
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

// Reject counts and logs a token failure of the given kind and returns
// domain.ErrUnauthorized.
func Reject(c echo.Context, log zerolog.Logger, kind domain.TokenErrorKind, err error) error {
	metrics.TokensRejectedTotal.WithLabelValues(string(kind)).Inc()
	log.Info().
		Str("reason", string(kind)).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		AnErr("cause", err).
		Msg("token rejected")
	return domain.ErrUnauthorized
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
