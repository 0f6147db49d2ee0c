package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const jtiBytes = 16

// TokenService issues and validates HS256 bearer tokens and tracks revoked
// ones in a Denylist.
type TokenService struct {
	secrets  *SecretStore
	clock    ports.Clock
	denylist ports.Denylist
	segments *jwt.Parser
	logger   zerolog.Logger
}

func NewTokenService(secrets *SecretStore, clock ports.Clock, denylist ports.Denylist, logger zerolog.Logger) *TokenService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenService{
		secrets:  secrets,
		clock:    clock,
		denylist: denylist,
		segments: jwt.NewParser(jwt.WithStrictDecoding()),
		logger:   logger,
	}
}

// TTL is the lifetime of a freshly issued token.
func (s *TokenService) TTL() time.Duration { return s.secrets.TTL() }

// Issue mints a token for userID valid from now until now+TTL.
func (s *TokenService) Issue(_ context.Context, userID string) (domain.IssuedToken, error) {
	jti, err := newJTI()
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("issue token: %w", err)
	}

	now := s.clock.Now().Truncate(time.Second)
	exp := now.Add(s.secrets.TTL())
	claims := &domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.secrets.Issuer(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secrets.SigningSecret())
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.IssuedToken{
		Token:     signed,
		JTI:       jti,
		Subject:   userID,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Parse validates raw with no grace period on expiry.
func (s *TokenService) Parse(ctx context.Context, raw string) (*domain.Claims, error) {
	return s.parse(ctx, raw, 0)
}

// ParseForRefresh validates raw, accepting it up to the refresh leeway past exp.
func (s *TokenService) ParseForRefresh(ctx context.Context, raw string) (*domain.Claims, error) {
	return s.parse(ctx, raw, s.secrets.RefreshLeeway())
}

// parse runs the checks in a fixed order: structure, signature, time window,
// issuer, revocation. The first failing check decides the error kind. A token
// is valid while nbf <= now <= exp; leeway extends exp only.
func (s *TokenService) parse(ctx context.Context, raw string, leeway time.Duration) (*domain.Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, domain.NewTokenError(domain.TokenMalformed, errors.New("token must have three segments"))
	}
	decoded := make([][]byte, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, domain.NewTokenError(domain.TokenMalformed, fmt.Errorf("segment %d is empty", i))
		}
		b, err := s.segments.DecodeSegment(part)
		if err != nil {
			return nil, domain.NewTokenError(domain.TokenMalformed, err)
		}
		decoded[i] = b
	}

	// The MAC is checked before any decoded JSON is trusted.
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], decoded[2], s.secrets.SigningSecret()); err != nil {
		return nil, domain.NewTokenError(domain.TokenBadSignature, err)
	}

	claims := &domain.Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(raw, claims, s.keyFunc); err != nil {
		return nil, classify(err)
	}
	if err := s.validateClaims(claims, leeway); err != nil {
		return nil, err
	}

	revoked, err := s.denylist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return nil, domain.NewTokenError(domain.TokenRevoked, nil)
	}

	return claims, nil
}

func (s *TokenService) validateClaims(claims *domain.Claims, leeway time.Duration) error {
	now := s.clock.Now()

	if claims.ExpiresAt == nil {
		return domain.NewTokenError(domain.TokenMalformed, jwt.ErrTokenRequiredClaimMissing)
	}
	if now.After(claims.ExpiresAt.Time.Add(leeway)) {
		return domain.NewTokenError(domain.TokenExpired, jwt.ErrTokenExpired)
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return domain.NewTokenError(domain.TokenNotYetValid, jwt.ErrTokenNotValidYet)
	}
	if claims.IssuedAt != nil && now.Before(claims.IssuedAt.Time) {
		return domain.NewTokenError(domain.TokenNotYetValid, jwt.ErrTokenUsedBeforeIssued)
	}
	if claims.Issuer != s.secrets.Issuer() {
		return domain.NewTokenError(domain.TokenWrongIssuer, jwt.ErrTokenInvalidIssuer)
	}
	if claims.ID == "" || claims.Subject == "" {
		return domain.NewTokenError(domain.TokenMalformed, errors.New("token lacks jti or sub"))
	}
	return nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return s.secrets.SigningSecret(), nil
}

// classify maps jwt parse errors onto token error kinds.
func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
		return domain.NewTokenError(domain.TokenBadSignature, err)
	}
	return domain.NewTokenError(domain.TokenMalformed, err)
}

// Refresh exchanges raw, possibly expired within the refresh leeway, for a
// new token with the same subject. The old token is denylisted first, so a
// token can be refreshed at most once.
func (s *TokenService) Refresh(ctx context.Context, raw string) (domain.IssuedToken, error) {
	claims, err := s.ParseForRefresh(ctx, raw)
	if err != nil {
		return domain.IssuedToken{}, err
	}

	added, err := s.denylist.Add(ctx, claims.ID, s.denyUntil(claims))
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("denylist refreshed token: %w", err)
	}
	if !added {
		return domain.IssuedToken{}, domain.NewTokenError(domain.TokenRevoked, errors.New("token already refreshed"))
	}

	next, err := s.Issue(ctx, claims.Subject)
	if err != nil {
		return domain.IssuedToken{}, err
	}

	s.logger.Debug().Str("sub", claims.Subject).Str("old_jti", claims.ID).Str("jti", next.JTI).Msg("token refreshed")
	return next, nil
}

// Revoke denylists raw. Revoking an already revoked token succeeds.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	claims, err := s.ParseForRefresh(ctx, raw)
	if errors.Is(err, domain.ErrTokenRevoked) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.denylist.Add(ctx, claims.ID, s.denyUntil(claims)); err != nil {
		return fmt.Errorf("denylist revoked token: %w", err)
	}

	s.logger.Debug().Str("sub", claims.Subject).Str("jti", claims.ID).Msg("token revoked")
	return nil
}

// denyUntil keeps an entry for as long as any parse mode could still accept
// the token.
func (s *TokenService) denyUntil(claims *domain.Claims) time.Time {
	return claims.ExpiresAt.Time.Add(s.secrets.RefreshLeeway())
}

func newJTI() (string, error) {
	b := make([]byte, jtiBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
