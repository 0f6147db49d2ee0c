package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// validationResponse is the envelope for rejected input.
type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders validation failures and taken emails as {"message": ..., "errors": {field: [...]}} with 422.
//   - Collapses every credential and token problem into 401 {"error": "Unauthorized"}.
//   - Logs unexpected errors with the request id and answers 500 {"error": "Internal"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			_ = c.JSON(http.StatusUnprocessableEntity, validationResponse{Message: ve.Message, Errors: ve.Fields})
			return
		}
		if errors.Is(err, domain.ErrUserExists) {
			conflict := domain.NewValidationError()
			conflict.Add("email", "already taken")
			_ = c.JSON(http.StatusUnprocessableEntity, validationResponse{Message: conflict.Message, Errors: conflict.Fields})
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Known domain errors → deterministic HTTP codes.
	var te *domain.TokenError
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.As(err, &te):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "NotFound"
	}

	// Echo's own errors (404 from router, 405, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			logUnhandled(err, log, c)
			return he.Code, "Internal"
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	logUnhandled(err, log, c)
	return http.StatusInternalServerError, "Internal"
}

// logUnhandled records the real cause; clients only get a generic message.
func logUnhandled(err error, log zerolog.Logger, c echo.Context) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")
}
