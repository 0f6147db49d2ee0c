package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (domain.IssuedToken, error)
	refreshFn  func(ctx context.Context, raw string) (domain.IssuedToken, error)
	logoutFn   func(ctx context.Context, raw string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (domain.IssuedToken, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, raw string) (domain.IssuedToken, error) {
	return s.refreshFn(ctx, raw)
}

func (s *stubAuthService) Logout(ctx context.Context, raw string) error {
	return s.logoutFn(ctx, raw)
}

func (s *stubAuthService) TokenTTL() time.Duration { return time.Hour }

func newContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withPrincipal(c echo.Context, token string) {
	p := middleware.Principal{
		User:   &domain.User{ID: "42", Email: "ada@example.com", PasswordHash: "$2a$10$secret"},
		Claims: &domain.Claims{},
		Token:  token,
	}
	c.SetRequest(c.Request().WithContext(middleware.WithPrincipal(c.Request().Context(), p)))
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.FirstName != "Ada" || in.Email != "ada@example.com" || in.PasswordConfirmation != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Phone != "521234567890" {
				t.Fatalf("phone number must keep its digits, got %q", in.Phone)
			}
			return &domain.User{ID: "1"}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	body := `{"first_name":"Ada","last_name":"Lovelace","phone":521234567890,"email":"ada@example.com","password":"secret1","password_confirmation":"secret1"}`
	c, rec := newContext(http.MethodPost, "/auth/register", body)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Register successful" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if strings.Contains(rec.Body.String(), "access_token") {
		t.Fatalf("register must not log the user in: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_InvalidJSON(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())
	c, _ := newContext(http.MethodPost, "/auth/register", `{"first_name":`)

	err := h.Register(c)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthHandler_Register_ValidationPassesThrough(t *testing.T) {
	want := domain.NewValidationError()
	want.Add("phone", "must be exactly 12 digits")
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) { return nil, want },
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newContext(http.MethodPost, "/auth/register", `{"phone":"12345"}`)

	if err := h.Register(c); !errors.Is(err, want) {
		t.Fatalf("expected service validation error, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (domain.IssuedToken, error) {
			if email != "ada@example.com" || password != "secret1" {
				t.Fatalf("unexpected credentials %q/%q", email, password)
			}
			return domain.IssuedToken{Token: "signed.token.value"}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"secret1"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "signed.token.value" || resp.TokenType != "bearer" || resp.ExpiresIn != 3600 {
		t.Fatalf("unexpected token response: %+v", resp)
	}
}

func TestAuthHandler_Login_BadRequestIsInvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (domain.IssuedToken, error) {
			t.Fatal("service must not be called")
			return domain.IssuedToken{}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())

	for _, body := range []string{`{"email":`, `{"email":"ada@example.com"}`, `{"password":"secret1"}`, `{}`} {
		c, _ := newContext(http.MethodPost, "/auth/login", body)
		if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("body %s: expected ErrInvalidCredentials, got %v", body, err)
		}
	}
}

func TestAuthHandler_Login_Failure(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (domain.IssuedToken, error) {
			return domain.IssuedToken{}, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newContext(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"nope"}`)

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())
	c, rec := newContext(http.MethodGet, "/auth/me", "")
	withPrincipal(c, "tok")

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var user map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if user["id"] != "42" || user["email"] != "ada@example.com" {
		t.Fatalf("unexpected user %v", user)
	}
	if strings.Contains(rec.Body.String(), "secret") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Me_WithoutPrincipal(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, zerolog.Nop())
	c, _ := newContext(http.MethodGet, "/auth/me", "")

	if err := h.Me(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, raw string) (domain.IssuedToken, error) {
			if raw != "old" {
				t.Fatalf("expected presented token, got %q", raw)
			}
			return domain.IssuedToken{Token: "new"}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newContext(http.MethodGet, "/auth/refresh", "")
	withPrincipal(c, "old")

	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "new" {
		t.Fatalf("unexpected token %q", resp.AccessToken)
	}
}

func TestAuthHandler_Refresh_Revoked(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(context.Context, string) (domain.IssuedToken, error) {
			return domain.IssuedToken{}, domain.NewTokenError(domain.TokenRevoked, nil)
		},
	}
	var logs bytes.Buffer
	h := NewAuthHandler(stub, zerolog.New(&logs))
	c, _ := newContext(http.MethodGet, "/auth/refresh", "")
	withPrincipal(c, "old")

	rejected := metrics.TokensRejectedTotal.WithLabelValues(string(domain.TokenRevoked))
	before := testutil.ToFloat64(rejected)

	if err := h.Refresh(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if got := testutil.ToFloat64(rejected) - before; got != 1 {
		t.Fatalf("expected one revoked rejection to be counted, got %v", got)
	}
	if !strings.Contains(logs.String(), `"reason":"revoked"`) {
		t.Fatalf("expected rejection to be logged, got %s", logs.String())
	}
}

func TestAuthHandler_Refresh_BackendErrorPassesThrough(t *testing.T) {
	backend := errors.New("denylist unavailable")
	stub := &stubAuthService{
		refreshFn: func(context.Context, string) (domain.IssuedToken, error) {
			return domain.IssuedToken{}, backend
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newContext(http.MethodGet, "/auth/refresh", "")
	withPrincipal(c, "old")

	if err := h.Refresh(c); !errors.Is(err, backend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var revoked string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, raw string) error {
			revoked = raw
			return nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newContext(http.MethodPost, "/auth/logout", "")
	withPrincipal(c, "tok")

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if revoked != "tok" {
		t.Fatalf("expected presented token to be revoked, got %q", revoked)
	}
	if !strings.Contains(rec.Body.String(), "Successfully logged out") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
