// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package google_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/collegeblog/backend/internal/config"
	"codeberg.org/collegeblog/backend/internal/services/google"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clientID = "client-123.apps.googleusercontent.com"
	kid      = "test-key-1"
)

type provider struct {
	t          *testing.T
	server     *httptest.Server
	key        *rsa.PrivateKey
	idToken    string
	tokenCalls atomic.Int32
	jwksCalls  atomic.Int32
	tokenFail  atomic.Int32 // number of 503s to return before succeeding
	tokenCode  int
	jwksDelay  atomic.Int64
}

func newProvider(t *testing.T) *provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &provider{t: t, key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		if p.tokenFail.Load() > 0 {
			p.tokenFail.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if p.tokenCode != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(p.tokenCode)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     p.idToken,
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		p.jwksCalls.Add(1)
		time.Sleep(time.Duration(p.jwksDelay.Load()))
		pub, err := jwk.Import(&key.PublicKey)
		require.NoError(t, err)
		require.NoError(t, pub.Set(jwk.KeyIDKey, kid))
		set := jwk.NewSet()
		require.NoError(t, set.AddKey(pub))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *provider) config() *config.GoogleConfig {
	return &config.GoogleConfig{
		ClientID:     clientID,
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:5173/auth/callback",
		AuthURL:      p.server.URL + "/auth",
		TokenURL:     p.server.URL + "/token",
		JWKSURL:      p.server.URL + "/jwks",
		Issuer:       "https://accounts.google.com",
		Timeout:      2 * time.Second,
		MaxRetries:   2,
	}
}

func (p *provider) sign(claims jwt.MapClaims, keyID string) string {
	p.t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if keyID != "" {
		tok.Header["kid"] = keyID
	}
	signed, err := tok.SignedString(p.key)
	require.NoError(p.t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            clientID,
		"sub":            "1098765",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func newVerifier(t *testing.T, p *provider) *google.Verifier {
	t.Helper()
	v, err := google.NewVerifier(p.config())
	require.NoError(t, err)
	return v
}

func TestVerifyIDToken_Valid(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	id, err := v.VerifyIDToken(context.Background(), p.sign(validClaims(), kid))
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "1098765", id.Subject)
	assert.Equal(t, "Ada Lovelace", id.Name)
}

func TestVerifyIDToken_CachesKeySet(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	for range 3 {
		_, err := v.VerifyIDToken(context.Background(), p.sign(validClaims(), kid))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), p.jwksCalls.Load())
}

func TestVerifyIDToken_UnknownKidRefetchIsThrottled(t *testing.T) {
	p := newProvider(t)
	var offset atomic.Int64
	v, err := google.NewVerifier(p.config(), google.WithClock(func() time.Time {
		return time.Now().Add(time.Duration(offset.Load()))
	}))
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), p.sign(validClaims(), kid))
	require.NoError(t, err)
	require.Equal(t, int32(1), p.jwksCalls.Load())

	for range 5 {
		_, err = v.VerifyIDToken(context.Background(), p.sign(validClaims(), "rotated-away"))
		require.ErrorIs(t, err, google.ErrNoMatchingKey)
	}
	assert.Equal(t, int32(1), p.jwksCalls.Load(), "unknown kids within a minute reuse the set")

	offset.Store(int64(2 * time.Minute))
	_, err = v.VerifyIDToken(context.Background(), p.sign(validClaims(), "rotated-away"))
	require.ErrorIs(t, err, google.ErrNoMatchingKey)
	assert.Equal(t, int32(2), p.jwksCalls.Load())

	_, err = v.VerifyIDToken(context.Background(), p.sign(validClaims(), kid))
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.jwksCalls.Load(), "known kids never refetch")
}

func TestVerifyIDToken_ConcurrentCallersShareFetch(t *testing.T) {
	p := newProvider(t)
	p.jwksDelay.Store(int64(200 * time.Millisecond))
	v := newVerifier(t, p)
	signed := p.sign(validClaims(), kid)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = v.VerifyIDToken(context.Background(), signed)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), p.jwksCalls.Load())
}

func TestVerifyIDToken_RefetchDoesNotBlockCachedKeys(t *testing.T) {
	p := newProvider(t)
	var offset atomic.Int64
	v, err := google.NewVerifier(p.config(), google.WithClock(func() time.Time {
		return time.Now().Add(time.Duration(offset.Load()))
	}))
	require.NoError(t, err)
	known := p.sign(validClaims(), kid)
	unknown := p.sign(validClaims(), "rotated-away")

	_, err = v.VerifyIDToken(context.Background(), known)
	require.NoError(t, err)

	offset.Store(int64(2 * time.Minute))
	p.jwksDelay.Store(int64(time.Second))

	done := make(chan error, 1)
	go func() {
		_, err := v.VerifyIDToken(context.Background(), unknown)
		done <- err
	}()
	require.Eventually(t, func() bool { return p.jwksCalls.Load() == 2 }, time.Second, 5*time.Millisecond)

	start := time.Now()
	_, err = v.VerifyIDToken(context.Background(), known)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "a slow refetch must not stall cached keys")

	assert.ErrorIs(t, <-done, google.ErrNoMatchingKey)
}

func TestVerifyIDToken_Rejections(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		kid    string
		want   error
	}{
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "someone-else" }, kid, google.ErrUntrustedAssertion},
		{"expired", func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }, kid, google.ErrUntrustedAssertion},
		{"missing exp", func(c jwt.MapClaims) { delete(c, "exp") }, kid, google.ErrUntrustedAssertion},
		{"wrong issuer", func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }, kid, google.ErrUntrustedAssertion},
		{"unverified email", func(c jwt.MapClaims) { c["email_verified"] = false }, kid, google.ErrUntrustedAssertion},
		{"unverified email as string", func(c jwt.MapClaims) { c["email_verified"] = "false" }, kid, google.ErrUntrustedAssertion},
		{"missing email", func(c jwt.MapClaims) { delete(c, "email") }, kid, google.ErrMissingEmail},
		{"missing kid", func(jwt.MapClaims) {}, "", google.ErrUntrustedAssertion},
		{"unknown kid", func(jwt.MapClaims) {}, "rotated-away", google.ErrNoMatchingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validClaims()
			tt.mutate(claims)

			_, err := v.VerifyIDToken(context.Background(), p.sign(claims, tt.kid))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyIDToken_IssuerWithoutScheme(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	claims := validClaims()
	claims["iss"] = "accounts.google.com"

	_, err := v.VerifyIDToken(context.Background(), p.sign(claims, kid))
	assert.NoError(t, err)
}

func TestVerifyIDToken_ForeignSignature(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	tok.Header["kid"] = kid
	forged, err := tok.SignedString(other)
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), forged)
	assert.ErrorIs(t, err, google.ErrUntrustedAssertion)
}

func TestVerifyIDToken_KeySetUnavailable(t *testing.T) {
	p := newProvider(t)
	cfg := p.config()
	cfg.JWKSURL = p.server.URL + "/missing"
	cfg.MaxRetries = 0

	v, err := google.NewVerifier(cfg)
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), p.sign(validClaims(), kid))
	assert.ErrorIs(t, err, google.ErrUpstreamUnavailable)
}

func TestExchange(t *testing.T) {
	p := newProvider(t)
	p.idToken = p.sign(validClaims(), kid)
	v := newVerifier(t, p)

	idToken, err := v.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, p.idToken, idToken)
}

func TestExchange_RetriesTransientFailures(t *testing.T) {
	p := newProvider(t)
	p.idToken = p.sign(validClaims(), kid)
	p.tokenFail.Store(2)
	v := newVerifier(t, p)

	_, err := v.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.tokenCalls.Load())
}

func TestExchange_GivesUpAfterMaxRetries(t *testing.T) {
	p := newProvider(t)
	p.tokenFail.Store(10)
	v := newVerifier(t, p)

	_, err := v.Exchange(context.Background(), "auth-code")
	assert.ErrorIs(t, err, google.ErrUpstreamUnavailable)
	assert.Equal(t, int32(3), p.tokenCalls.Load())
}

func TestExchange_ClientErrorIsNotRetried(t *testing.T) {
	p := newProvider(t)
	p.tokenCode = http.StatusBadRequest
	v := newVerifier(t, p)

	_, err := v.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, google.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), p.tokenCalls.Load())
}

func TestExchange_NotConfigured(t *testing.T) {
	v, err := google.NewVerifier(&config.GoogleConfig{})
	require.NoError(t, err)

	_, err = v.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, google.ErrNotConfigured)

	_, err = v.AuthCodeURL("state")
	assert.ErrorIs(t, err, google.ErrNotConfigured)
}

func TestAuthCodeURL(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	raw, err := v.AuthCodeURL("xyz")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, clientID, q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "http://localhost:5173/auth/callback", q.Get("redirect_uri"))
}

func TestState(t *testing.T) {
	p := newProvider(t)
	v := newVerifier(t, p)

	state, err := v.NewState()
	require.NoError(t, err)
	assert.NoError(t, v.CheckState(state))

	assert.ErrorIs(t, v.CheckState("forged"), google.ErrInvalidState)

	other := newVerifier(t, p)
	assert.ErrorIs(t, other.CheckState(state), google.ErrInvalidState)
}

func TestNewVerifier_ShortStateKey(t *testing.T) {
	_, err := google.NewVerifier(&config.GoogleConfig{StateKey: "short"})
	assert.Error(t, err)
}
