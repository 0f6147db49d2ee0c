package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type registerRequest struct {
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Phone                flexString `json:"phone"`
	Email                string     `json:"email"`
	Password             string     `json:"password"`
	PasswordConfirmation string     `json:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register creates a new user account. It does not log the user in.
//
// @Summary      Register a new user
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  messageResponse
// @Failure      422   {object}  validationResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		ve := domain.NewValidationError()
		ve.Message = "The request body is not valid JSON."
		return ve
	}

	_, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Phone:                string(req.Phone),
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		} else {
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Register successful"})
}

// Login exchanges credentials for a bearer token.
//
// @Summary      Login
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return domain.ErrInvalidCredentials
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return domain.ErrInvalidCredentials
	}

	issued, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	return h.respondWithToken(c, issued)
}

// Me returns the authenticated user.
//
// @Summary      Current user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.User)
}

// Refresh swaps the presented token, which may have expired within the
// refresh leeway, for a new one. The presented token is revoked.
//
// @Summary      Refresh a token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  tokenResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/refresh [get]
func (h *AuthHandler) Refresh(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	issued, err := h.authService.Refresh(c.Request().Context(), p.Token)
	if err != nil {
		return h.tokenFailure(c, err)
	}

	metrics.TokensRevokedTotal.WithLabelValues("refresh").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return h.respondWithToken(c, issued)
}

// Logout revokes the presented token.
//
// @Summary      Logout
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), p.Token); err != nil {
		return h.tokenFailure(c, err)
	}

	metrics.TokensRevokedTotal.WithLabelValues("logout").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Successfully logged out"})
}

// tokenFailure reports a token that passed the middleware but was rejected by
// the service, such as one refreshed concurrently by another request.
func (h *AuthHandler) tokenFailure(c echo.Context, err error) error {
	var te *domain.TokenError
	if errors.As(err, &te) {
		return middleware.Reject(c, h.logger, te.Kind, err)
	}
	return err
}

func (h *AuthHandler) respondWithToken(c echo.Context, issued domain.IssuedToken) error {
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: issued.Token,
		TokenType:   domain.TokenType,
		ExpiresIn:   int64(h.authService.TokenTTL() / time.Second),
	})
}
