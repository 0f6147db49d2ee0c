package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType is the value of token_type in every token envelope.
const TokenType = "bearer"

// Claims is the payload carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
}

// IssuedToken is a freshly minted, signed token together with the metadata
// callers need to answer a client or track revocation.
type IssuedToken struct {
	Token     string
	JTI       string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenErrorKind classifies why a token was rejected.
type TokenErrorKind string

const (
	TokenMalformed      TokenErrorKind = "malformed"
	TokenBadSignature   TokenErrorKind = "bad_signature"
	TokenExpired        TokenErrorKind = "expired"
	TokenNotYetValid    TokenErrorKind = "not_yet_valid"
	TokenWrongIssuer    TokenErrorKind = "wrong_issuer"
	TokenRevoked        TokenErrorKind = "revoked"
	TokenUnknownSubject TokenErrorKind = "unknown_subject"
)

// TokenError is returned for every rejected token. Two TokenErrors match
// under errors.Is when their kinds are equal, so the sentinels below can be
// used for comparisons.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

var (
	ErrTokenMalformed      = &TokenError{Kind: TokenMalformed}
	ErrTokenBadSignature   = &TokenError{Kind: TokenBadSignature}
	ErrTokenExpired        = &TokenError{Kind: TokenExpired}
	ErrTokenNotYetValid    = &TokenError{Kind: TokenNotYetValid}
	ErrTokenWrongIssuer    = &TokenError{Kind: TokenWrongIssuer}
	ErrTokenRevoked        = &TokenError{Kind: TokenRevoked}
	ErrTokenUnknownSubject = &TokenError{Kind: TokenUnknownSubject}
)

// NewTokenError wraps cause under the given kind.
func NewTokenError(kind TokenErrorKind, cause error) *TokenError {
	return &TokenError{Kind: kind, Err: cause}
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return "token " + string(e.Kind) + ": " + e.Err.Error()
	}
	return "token " + string(e.Kind)
}

func (e *TokenError) Unwrap() error { return e.Err }

func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
