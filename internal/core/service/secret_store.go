package service

import (
	"errors"
	"fmt"
	"time"
)

// MinSecretLength is the minimum accepted size of the HMAC signing secret.
const MinSecretLength = 32

var ErrSecretTooShort = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

// SecretStore holds the signing secret and token lifetimes. It is immutable
// once built and safe for concurrent use without locking.
type SecretStore struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	issuer string
}

// NewSecretStore validates its inputs and copies the secret. Replacing the
// store with one holding a different secret invalidates every token signed
// with the old one.
func NewSecretStore(secret []byte, ttl, refreshLeeway time.Duration, issuer string) (*SecretStore, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if ttl < time.Second {
		return nil, errors.New("token ttl must be at least one second")
	}
	if refreshLeeway < 0 {
		return nil, errors.New("refresh leeway must not be negative")
	}
	if issuer == "" {
		return nil, errors.New("issuer must not be empty")
	}

	s := &SecretStore{
		secret: make([]byte, len(secret)),
		ttl:    ttl,
		leeway: refreshLeeway,
		issuer: issuer,
	}
	copy(s.secret, secret)
	return s, nil
}

// SigningSecret returns a copy of the HMAC key.
func (s *SecretStore) SigningSecret() []byte {
	out := make([]byte, len(s.secret))
	copy(out, s.secret)
	return out
}

func (s *SecretStore) TTL() time.Duration           { return s.ttl }
func (s *SecretStore) RefreshLeeway() time.Duration { return s.leeway }
func (s *SecretStore) Issuer() string               { return s.issuer }
