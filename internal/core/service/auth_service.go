package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/validation"
)

// registration carries the rules enforced on every new account.
type registration struct {
	FirstName            string `json:"first_name" validate:"required,max=255"`
	LastName             string `json:"last_name" validate:"required,max=255"`
	Phone                string `json:"phone" validate:"required,number,len=12"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6,maxbytes=72,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// AuthService implements registration, login, refresh and logout.
type AuthService struct {
	repo   ports.UserRepository
	tokens *TokenService
	hasher ports.PasswordHasher
	clock  ports.Clock
	logger zerolog.Logger

	// dummyHash is verified when a login names an unknown email so that the
	// response time does not reveal whether the account exists.
	dummyHash string
}

func NewAuthService(repo ports.UserRepository, tokens *TokenService, hasher ports.PasswordHasher, clock ports.Clock, logger zerolog.Logger) (*AuthService, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		hasher:    hasher,
		clock:     clock,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

func (s *AuthService) TokenTTL() time.Duration { return s.tokens.TTL() }

// Register validates the input, hashes the password and stores the user.
// It returns a *domain.ValidationError for rejected fields, including an
// email that is already taken.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	reg := registration{
		FirstName:            strings.TrimSpace(in.FirstName),
		LastName:             strings.TrimSpace(in.LastName),
		Phone:                strings.TrimSpace(in.Phone),
		Email:                NormalizeEmail(in.Email),
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
	}
	if err := validation.Struct(reg); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        reg.Phone,
		Email:        reg.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrUserExists) {
		ve := domain.NewValidationError()
		ve.Add("email", "already taken")
		return nil, ve
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

// Login checks the credentials and issues a token. Every credential problem
// yields domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.IssuedToken, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.IssuedToken{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.hasher.Verify(s.dummyHash, password)
		return domain.IssuedToken{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return domain.IssuedToken{}, domain.ErrInvalidCredentials
	}

	return s.tokens.Issue(ctx, user.ID)
}

func (s *AuthService) Refresh(ctx context.Context, rawToken string) (domain.IssuedToken, error) {
	return s.tokens.Refresh(ctx, rawToken)
}

func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	return s.tokens.Revoke(ctx, rawToken)
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
