// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies the API's HS256 bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSigningKeyMissing means no secret is configured; nothing is issued or accepted.
	ErrSigningKeyMissing = errors.New("token signing key is not configured")
	// ErrInvalidToken covers every reason a presented token is rejected.
	ErrInvalidToken = errors.New("invalid token")
)

// Service signs and checks access tokens with a shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a token service. An empty secret yields a service that fails
// closed on every call.
func New(secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the default token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject that expires ttl from now.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSigningKeyMissing
	}
	if subject == "" {
		return "", errors.New("token subject is empty")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry(now, ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// expiry returns now+ttl on the whole-second grid of the exp claim. A positive
// ttl is rounded up so the token never dies before now+ttl; a non-positive ttl
// is rounded down so the token is already expired.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl <= 0 {
		return exp.Truncate(time.Second)
	}
	if rounded := exp.Truncate(time.Second); !rounded.Equal(exp) {
		return rounded.Add(time.Second)
	}
	return exp
}

// IssueDefault signs a token with the configured lifetime.
func (s *Service) IssueDefault(subject string) (string, error) {
	return s.Issue(subject, s.ttl)
}

// Verify checks signature, algorithm and expiry and returns the subject.
// A token is valid strictly before its expiry instant.
func (s *Service) Verify(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSigningKeyMissing
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
