package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	FirstName            string
	LastName             string
	Phone                string
	Email                string
	Password             string
	PasswordConfirmation string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (domain.IssuedToken, error)
	Refresh(ctx context.Context, rawToken string) (domain.IssuedToken, error)
	Logout(ctx context.Context, rawToken string) error
	TokenTTL() time.Duration
}
