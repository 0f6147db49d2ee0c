package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// ctxPrincipal returns the caller resolved by the Auth middleware. Its
// absence means the route was mounted without authentication.
func ctxPrincipal(c echo.Context) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFrom(c.Request().Context())
	if !ok {
		return middleware.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}
