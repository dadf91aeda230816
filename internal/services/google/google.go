// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package google runs the OAuth authorization-code flow against Google and
// verifies the ID tokens it hands back.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/collegeblog/backend/internal/config"
	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotConfigured       = errors.New("google login is not configured")
	ErrUpstreamUnavailable = errors.New("google is unavailable")
	ErrUntrustedAssertion  = errors.New("untrusted identity assertion")
	ErrNoMatchingKey       = fmt.Errorf("%w: no matching signing key", ErrUntrustedAssertion)
	ErrMissingEmail        = errors.New("identity assertion carries no email")
	ErrInvalidState        = errors.New("invalid oauth state")
)

const (
	jwksTTL = time.Hour
	// jwksMinRefetch bounds how often an unknown kid can trigger a refetch.
	jwksMinRefetch = time.Minute
)

// Identity is the verified subset of an ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type idClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier talks to Google's token endpoint and key set.
type Verifier struct {
	cfg        *config.GoogleConfig
	oauth      *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
	state      *stateCodec

	mu        sync.Mutex
	keys      jwk.Set
	fetchedAt time.Time
	fetches   singleflight.Group
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient replaces the client used for the token and key endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) {
		v.httpClient = c
	}
}

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a verifier. An unconfigured verifier is valid but every
// flow operation returns ErrNotConfigured.
func NewVerifier(cfg *config.GoogleConfig, opts ...Option) (*Verifier, error) {
	state, err := newStateCodec(cfg.StateKey)
	if err != nil {
		return nil, err
	}

	v := &Verifier{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: http.DefaultClient,
		now:        time.Now,
		state:      state,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Configured reports whether the code flow can run.
func (v *Verifier) Configured() bool {
	return v.cfg.IsConfigured()
}

// AuthCodeURL returns the consent screen URL for the given state.
func (v *Verifier) AuthCodeURL(state string) (string, error) {
	if v.cfg.ClientID == "" || v.cfg.RedirectURI == "" {
		return "", ErrNotConfigured
	}
	return v.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for the ID token. Transport errors
// and 5xx responses are retried; everything else fails immediately.
func (v *Verifier) Exchange(ctx context.Context, code string) (string, error) {
	if !v.Configured() {
		return "", ErrNotConfigured
	}

	idToken, err := retry(ctx, v.cfg, "exchange", func(ctx context.Context) (string, error) {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
		tok, err := v.oauth.Exchange(ctx, code)
		if err != nil {
			var re *oauth2.RetrieveError
			if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		raw, _ := tok.Extra("id_token").(string)
		if raw == "" {
			return "", backoff.Permanent(errors.New("token response carries no id_token"))
		}
		return raw, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: code exchange: %w", ErrUpstreamUnavailable, err)
	}
	return idToken, nil
}

// VerifyIDToken checks signature, audience, issuer and expiry of an ID token
// and returns the identity it asserts.
func (v *Verifier) VerifyIDToken(ctx context.Context, raw string) (*Identity, error) {
	if !v.Configured() {
		return nil, ErrNotConfigured
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, &idClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUntrustedAssertion, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: token header missing kid", ErrUntrustedAssertion)
	}

	key, err := v.signingKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &idClaims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUntrustedAssertion, err)
	}

	if !v.issuerAllowed(claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrUntrustedAssertion, claims.Issuer)
	}
	if claims.Email == "" {
		return nil, ErrMissingEmail
	}
	if !emailVerified(claims.EmailVerified) {
		return nil, fmt.Errorf("%w: email not verified by provider", ErrUntrustedAssertion)
	}

	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// Google documents both spellings of its issuer.
func (v *Verifier) issuerAllowed(iss string) bool {
	want := strings.TrimPrefix(v.cfg.Issuer, "https://")
	return iss == v.cfg.Issuer || iss == want || iss == "https://"+want
}

// Absent means verified; Google omits the claim for accounts it owns.
func emailVerified(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	default:
		return false
	}
}

// signingKey resolves kid against the cached key set. A stale cache is
// refreshed; an unknown kid forces a refresh unless the set is younger than
// jwksMinRefetch. Fetches never run under v.mu and concurrent callers share
// a single request.
func (v *Verifier) signingKey(ctx context.Context, kid string) (any, error) {
	keys, err := v.keySet(ctx, false)
	if err != nil {
		return nil, err
	}
	if key, ok := keys.LookupKeyID(kid); ok {
		return exportKey(key)
	}

	keys, err = v.keySet(ctx, true)
	if err != nil {
		return nil, err
	}
	key, ok := keys.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("%w: kid %s", ErrNoMatchingKey, kid)
	}
	return exportKey(key)
}

// cached returns the key set when it may be used without a fetch.
func (v *Verifier) cached(refresh bool) jwk.Set {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keys == nil {
		return nil
	}
	age := v.now().Sub(v.fetchedAt)
	if age < jwksMinRefetch || (!refresh && age <= jwksTTL) {
		return v.keys
	}
	return nil
}

func (v *Verifier) keySet(ctx context.Context, refresh bool) (jwk.Set, error) {
	if keys := v.cached(refresh); keys != nil {
		return keys, nil
	}

	res, err, _ := v.fetches.Do("jwks", func() (any, error) {
		// A flight that finished just before this one started already did the work.
		if keys := v.cached(refresh); keys != nil {
			return keys, nil
		}
		set, err := retry(ctx, v.cfg, "jwks", func(ctx context.Context) (jwk.Set, error) {
			return jwk.Fetch(ctx, v.cfg.JWKSURL, jwk.WithHTTPClient(v.httpClient))
		})
		if err != nil {
			return nil, err
		}

		v.mu.Lock()
		v.keys = set
		v.fetchedAt = v.now()
		v.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching signing keys: %w", ErrUpstreamUnavailable, err)
	}
	return res.(jwk.Set), nil
}

func exportKey(key jwk.Key) (any, error) {
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("%w: exporting key: %w", ErrUntrustedAssertion, err)
	}
	return raw, nil
}

// retry runs op with exponential backoff, each attempt bounded by the
// configured timeout.
func retry[T any](ctx context.Context, cfg *config.GoogleConfig, op string, fn func(context.Context) (T, error)) (T, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond

	attempt := func() (T, error) {
		attemptCtx := ctx
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		return fn(attemptCtx)
	}

	maxRetries := max(cfg.MaxRetries, 0)
	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(maxRetries+1)), // #nosec G115 -- +1 for the initial attempt
		backoff.WithNotify(func(err error, d time.Duration) {
			slog.Warn("google_"+op+"_retry", "error", err, "backoff", d)
		}),
	)
}
