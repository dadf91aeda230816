// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"strings"
	"testing"
	"time"

	"codeberg.org/collegeblog/backend/internal/services/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-with-enough-entropy"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify(t *testing.T) {
	svc := token.New(secret, 30*time.Minute)

	signed, err := svc.Issue("ada@example.com", 30*time.Minute)
	require.NoError(t, err)

	subject, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", subject)
}

func TestIssueDefault(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := token.New(secret, 30*time.Minute, token.WithClock(fixedClock(now)))

	signed, err := svc.IssueDefault("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, svc.TTL())

	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(signed, &claims)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
}

func TestVerify_ZeroTTLIsRejected(t *testing.T) {
	svc := token.New(secret, time.Minute)

	signed, err := svc.Issue("ada@example.com", 0)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := token.New(secret, time.Minute, token.WithClock(fixedClock(issuedAt)))

	signed, err := issuer.Issue("ada@example.com", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		at    time.Time
		valid bool
	}{
		{"just issued", issuedAt, true},
		{"one second before expiry", issuedAt.Add(59 * time.Second), true},
		{"at expiry", issuedAt.Add(time.Minute), false},
		{"after expiry", issuedAt.Add(2 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := token.New(secret, time.Minute, token.WithClock(fixedClock(tt.at)))
			_, err := verifier.Verify(signed)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, token.ErrInvalidToken)
			}
		})
	}
}

func TestVerify_SubSecondTTL(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 200*int(time.Millisecond), time.UTC)
	issuer := token.New(secret, time.Minute, token.WithClock(fixedClock(issuedAt)))

	signed, err := issuer.Issue("ada@example.com", 500*time.Millisecond)
	require.NoError(t, err)

	tests := []struct {
		name  string
		at    time.Time
		valid bool
	}{
		{"just issued", issuedAt, true},
		{"before intended expiry", issuedAt.Add(100 * time.Millisecond), true},
		{"at intended expiry", issuedAt.Add(500 * time.Millisecond), true},
		{"next whole second", time.Date(2025, 3, 1, 10, 0, 1, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := token.New(secret, time.Minute, token.WithClock(fixedClock(tt.at)))
			subject, err := verifier.Verify(signed)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, "ada@example.com", subject)
			} else {
				assert.ErrorIs(t, err, token.ErrInvalidToken)
			}
		})
	}
}

func TestVerify_ZeroTTLMidSecond(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 700*int(time.Millisecond), time.UTC)
	svc := token.New(secret, time.Minute, token.WithClock(fixedClock(now)))

	signed, err := svc.Issue("ada@example.com", 0)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerify_Tampered(t *testing.T) {
	svc := token.New(secret, time.Minute)

	signed, err := svc.Issue("ada@example.com", time.Minute)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "mallory@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	tests := map[string]string{
		"payload swapped":   parts[0] + "." + forgedParts[1] + "." + parts[2],
		"signature dropped": parts[0] + "." + parts[1] + ".",
		"garbage":           "not-a-token",
		"empty":             "",
		"signature mangled": parts[0] + "." + parts[1] + "." + strings.ToUpper(parts[2]),
		"other secret": func() string {
			s, _ := token.New("another-secret", time.Minute).Issue("ada@example.com", time.Minute)
			return s
		}(),
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(tok)
			assert.ErrorIs(t, err, token.ErrInvalidToken)
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	svc := token.New(secret, time.Minute)

	claims := jwt.RegisteredClaims{
		Subject:   "ada@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	t.Run("none", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(unsigned)
		assert.ErrorIs(t, err, token.ErrInvalidToken)
	})

	t.Run("HS512", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = svc.Verify(signed)
		assert.ErrorIs(t, err, token.ErrInvalidToken)
	})
}

func TestVerify_RequiresExpiryAndSubject(t *testing.T) {
	svc := token.New(secret, time.Minute)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "ada@example.com",
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = svc.Verify(noExp)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = svc.Verify(noSub)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestMissingSecretFailsClosed(t *testing.T) {
	svc := token.New("", time.Minute)

	_, err := svc.Issue("ada@example.com", time.Minute)
	require.ErrorIs(t, err, token.ErrSigningKeyMissing)

	signed, err := token.New(secret, time.Minute).Issue("ada@example.com", time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, token.ErrSigningKeyMissing)
}

func TestIssue_EmptySubject(t *testing.T) {
	_, err := token.New(secret, time.Minute).Issue("", time.Minute)
	assert.Error(t, err)
}
