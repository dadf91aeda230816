// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name:     "HTTP default port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 80}},
			expected: "http://localhost",
		},
		{
			name:     "HTTP custom port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 8000}},
			expected: "http://localhost:8000",
		},
		{
			name: "TLS default port",
			cfg: &Config{
				Server: ServerConfig{Host: "api.example.com", Port: 443},
				TLS:    TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"},
			},
			expected: "https://api.example.com",
		},
		{
			name: "TLS custom port",
			cfg: &Config{
				Server: ServerConfig{Host: "api.example.com", Port: 8443},
				TLS:    TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"},
			},
			expected: "https://api.example.com:8443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestApplyStorageDefaults(t *testing.T) {
	t.Run("custom endpoint", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{Endpoint: "http://127.0.0.1:9000/", Bucket: "images"}}
		applyStorageDefaults(cfg)
		assert.Equal(t, "http://127.0.0.1:9000/images", cfg.Storage.PublicURL)
	})

	t.Run("aws", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{Region: "eu-central-1", Bucket: "images"}}
		applyStorageDefaults(cfg)
		assert.Equal(t, "https://images.s3.eu-central-1.amazonaws.com", cfg.Storage.PublicURL)
	})

	t.Run("explicit URL wins", func(t *testing.T) {
		cfg := &Config{Storage: StorageConfig{Bucket: "images", PublicURL: "https://cdn.example.com"}}
		applyStorageDefaults(cfg)
		assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicURL)
	})
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, GoogleConfig{ClientID: "id"}.IsConfigured())
	assert.True(t, GoogleConfig{ClientID: "id", ClientSecret: "s", RedirectURI: "http://x/cb"}.IsConfigured())
	assert.False(t, SMTPConfig{Host: "smtp.example.com"}.IsConfigured())
	assert.True(t, SMTPConfig{Host: "smtp.example.com", From: "a@example.com"}.IsConfigured())
	assert.False(t, StorageConfig{Bucket: "b"}.IsConfigured())
	assert.True(t, StorageConfig{Bucket: "b", AccessKey: "a", SecretKey: "s"}.IsConfigured())
}

func TestFlags(t *testing.T) {
	flags := Flags()

	assert.NotEmpty(t, flags)

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "base-url", "log-level", "database-dsn", "cors-origins",
		"jwt-secret", "token-ttl-minutes", "google-client-id", "google-jwks-url",
		"smtp-host", "storage-bucket",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8000, cfg.Server.Port)
			assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
			assert.Equal(t, "https://accounts.google.com", cfg.Google.Issuer)
			assert.Equal(t, "https://www.googleapis.com/oauth2/v3/certs", cfg.Google.JWKSURL)
			assert.Equal(t, 10*time.Second, cfg.Google.Timeout)
			assert.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
			assert.False(t, cfg.Google.IsConfigured())

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://example.com", cfg.Server.BaseURL)
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.Equal(t, "./data/test.db", cfg.Database.DSN)
			assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
			assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://example.com",
		"--log-level", "debug",
		"--database-dsn", "./data/test.db",
		"--jwt-secret", "s3cret",
		"--token-ttl-minutes", "5",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}

func TestNewFromCLI_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	f, err := os.Create(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	require.NoError(t, toml.NewEncoder(f).Encode(map[string]any{
		"server": map[string]any{"port": 8123},
		"google": map[string]any{"client_id": "from-file"},
	}))
	require.NoError(t, f.Close())

	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, 8123, cfg.Server.Port)
			assert.Equal(t, "from-file", cfg.Google.ClientID)

			return nil
		},
	}

	require.NoError(t, app.Run(context.Background(), []string{"test"}))
}
