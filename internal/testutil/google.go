// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/collegeblog/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
)

const (
	FakeGoogleClientID = "test-client.apps.googleusercontent.com"
	FakeGoogleKeyID    = "fake-google-key"
)

// FakeGoogle serves a token endpoint and a key set the way Google does.
// Authorization codes are minted with Code and exchange for an ID token
// signed by Key.
type FakeGoogle struct {
	Server *httptest.Server
	Key    *rsa.PrivateKey

	TokenRequests atomic.Int32

	t     *testing.T
	mu    sync.Mutex
	codes map[string]jwt.MapClaims
}

// NewFakeGoogle starts the fake provider; it is closed with the test.
func NewFakeGoogle(t *testing.T) *FakeGoogle {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &FakeGoogle{Key: key, t: t, codes: make(map[string]jwt.MapClaims)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", f.handleToken)
	mux.HandleFunc("GET /certs", f.handleCerts)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns provider settings pointing at the fake.
func (f *FakeGoogle) Config() *config.GoogleConfig {
	return &config.GoogleConfig{
		ClientID:     FakeGoogleClientID,
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://localhost:5173/auth/callback",
		AuthURL:      f.Server.URL + "/auth",
		TokenURL:     f.Server.URL + "/token",
		JWKSURL:      f.Server.URL + "/certs",
		Issuer:       "https://accounts.google.com",
		Timeout:      2 * time.Second,
		MaxRetries:   1,
	}
}

// Claims returns valid ID token claims for email.
func (f *FakeGoogle) Claims(email string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            FakeGoogleClientID,
		"sub":            uuid.NewString(),
		"email":          email,
		"email_verified": true,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

// Sign signs claims with the fake's key.
func (f *FakeGoogle) Sign(claims jwt.MapClaims) string {
	f.t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = FakeGoogleKeyID
	signed, err := tok.SignedString(f.Key)
	require.NoError(f.t, err)
	return signed
}

// Code registers an authorization code that exchanges for an ID token with claims.
func (f *FakeGoogle) Code(claims jwt.MapClaims) string {
	code := uuid.NewString()
	f.mu.Lock()
	f.codes[code] = claims
	f.mu.Unlock()
	return code
}

// CodeFor is Code with valid claims for email.
func (f *FakeGoogle) CodeFor(email string) string {
	return f.Code(f.Claims(email))
}

func (f *FakeGoogle) handleToken(w http.ResponseWriter, r *http.Request) {
	f.TokenRequests.Add(1)
	if err := r.ParseForm(); err != nil {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	claims, ok := f.codes[r.PostForm.Get("code")]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok || r.PostForm.Get("client_id") != FakeGoogleClientID {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "fake-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     f.Sign(claims),
	})
}

func (f *FakeGoogle) handleCerts(w http.ResponseWriter, _ *http.Request) {
	pub, err := jwk.Import(&f.Key.PublicKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := pub.Set(jwk.KeyIDKey, FakeGoogleKeyID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}
