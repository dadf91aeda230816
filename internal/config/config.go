// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Config is built once at startup and passed by reference to every component.
type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	TLS      TLSConfig
	Auth     AuthConfig
	Google   GoogleConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	CORSOrigins []string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // file path, ":memory:" or postgres:// URL
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether the server should terminate TLS itself.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	JWTSecret         string
	TokenTTL          time.Duration
	PasswordMinLength int
	BcryptCost        int
}

type GoogleConfig struct { //nolint:govet // fieldalignment not critical for config structs
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	JWKSURL      string
	Issuer       string
	Timeout      time.Duration // per provider call
	MaxRetries   int
	StateKey     string // hex or raw secret for signing the OAuth state parameter
}

// IsConfigured reports whether the credentials needed for the code flow are present.
func (c GoogleConfig) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// IsConfigured reports whether verification mails can be sent.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

type StorageConfig struct {
	Endpoint  string // S3-compatible base endpoint, empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string // base URL objects are served from
}

// IsConfigured reports whether uploads can be stored.
func (c StorageConfig) IsConfigured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        cmd.Int("port"),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: cmd.Int("max-body-size"),
			CORSOrigins: cmd.StringSlice("cors-origins"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		TLS: TLSConfig{
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
		Auth: AuthConfig{
			JWTSecret:         cmd.String("jwt-secret"),
			TokenTTL:          time.Duration(cmd.Int("token-ttl-minutes")) * time.Minute,
			PasswordMinLength: cmd.Int("password-min-length"),
			BcryptCost:        cmd.Int("bcrypt-cost"),
		},
		Google: GoogleConfig{
			ClientID:     cmd.String("google-client-id"),
			ClientSecret: cmd.String("google-client-secret"),
			RedirectURI:  cmd.String("google-redirect-uri"),
			AuthURL:      cmd.String("google-auth-url"),
			TokenURL:     cmd.String("google-token-url"),
			JWKSURL:      cmd.String("google-jwks-url"),
			Issuer:       cmd.String("google-issuer"),
			Timeout:      cmd.Duration("google-timeout"),
			MaxRetries:   cmd.Int("google-max-retries"),
			StateKey:     cmd.String("google-state-key"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     cmd.Int("smtp-port"),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Storage: StorageConfig{
			Endpoint:  cmd.String("storage-endpoint"),
			Region:    cmd.String("storage-region"),
			Bucket:    cmd.String("storage-bucket"),
			AccessKey: cmd.String("storage-access-key"),
			SecretKey: cmd.String("storage-secret-key"),
			PublicURL: cmd.String("storage-public-url"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	applyStorageDefaults(cfg)

	return cfg
}

// applyStorageDefaults derives the public object URL when none is given.
func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.PublicURL != "" || cfg.Storage.Bucket == "" {
		return
	}
	if cfg.Storage.Endpoint != "" {
		cfg.Storage.PublicURL = strings.TrimSuffix(cfg.Storage.Endpoint, "/") + "/" + cfg.Storage.Bucket
		return
	}
	cfg.Storage.PublicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Storage.Bucket, cfg.Storage.Region)
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if cfg.TLS.Enabled() {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8000,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   10,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Value:   []string{"http://localhost:5173"},
			Usage:   "Origins allowed to call the API from a browser",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CORS_ORIGINS"), toml.TOML("server.cors_origins", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_URL"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
	}

	flags = append(flags, authFlags()...)
	flags = append(flags, googleFlags()...)
	flags = append(flags, smtpFlags()...)
	flags = append(flags, storageFlags()...)
	return flags
}

func authFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Secret used to sign access tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.IntFlag{
			Name:    "token-ttl-minutes",
			Value:   30,
			Usage:   "Access token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACCESS_TOKEN_EXPIRE_MINUTES"), toml.TOML("auth.token_ttl_minutes", configFile)),
		},
		&cli.IntFlag{
			Name:    "password-min-length",
			Value:   8,
			Usage:   "Minimum password length for new accounts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_MIN_LENGTH"), toml.TOML("auth.password_min_length", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   10,
			Usage:   "bcrypt work factor",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_COST"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
	}
}

func googleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "google-client-id",
			Usage:   "Google OAuth client ID",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_CLIENT_ID"), toml.TOML("google.client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-client-secret",
			Usage:   "Google OAuth client secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_CLIENT_SECRET"), toml.TOML("google.client_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-redirect-uri",
			Usage:   "Redirect URI registered with Google",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_REDIRECT_URI"), toml.TOML("google.redirect_uri", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-auth-url",
			Value:   "https://accounts.google.com/o/oauth2/v2/auth",
			Usage:   "Google authorization endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_AUTH_URL"), toml.TOML("google.auth_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-token-url",
			Value:   "https://oauth2.googleapis.com/token",
			Usage:   "Google token endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_TOKEN_URL"), toml.TOML("google.token_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-jwks-url",
			Value:   "https://www.googleapis.com/oauth2/v3/certs",
			Usage:   "Google public key set endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_JWKS_URL"), toml.TOML("google.jwks_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-issuer",
			Value:   "https://accounts.google.com",
			Usage:   "Expected issuer of Google ID tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_ISSUER"), toml.TOML("google.issuer", configFile)),
		},
		&cli.DurationFlag{
			Name:    "google-timeout",
			Value:   10 * time.Second,
			Usage:   "Timeout for a single call to Google",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_TIMEOUT"), toml.TOML("google.timeout", configFile)),
		},
		&cli.IntFlag{
			Name:    "google-max-retries",
			Value:   2,
			Usage:   "Retries for transient failures talking to Google",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_MAX_RETRIES"), toml.TOML("google.max_retries", configFile)),
		},
		&cli.StringFlag{
			Name:    "google-state-key",
			Usage:   "Key for signing the OAuth state parameter (32-byte hex, random if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("GOOGLE_STATE_KEY"), toml.TOML("google.state_key", configFile)),
		},
	}
}

func smtpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (verification mails are disabled if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "College Blog",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "storage-endpoint",
			Usage:   "S3-compatible endpoint (empty for AWS)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_ENDPOINT"), toml.TOML("storage.endpoint", configFile)),
		},
		&cli.StringFlag{
			Name:    "storage-region",
			Value:   "us-east-1",
			Usage:   "Object storage region",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_REGION"), toml.TOML("storage.region", configFile)),
		},
		&cli.StringFlag{
			Name:    "storage-bucket",
			Usage:   "Bucket for uploaded images",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_BUCKET"), toml.TOML("storage.bucket", configFile)),
		},
		&cli.StringFlag{
			Name:    "storage-access-key",
			Usage:   "Object storage access key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_ACCESS_KEY"), toml.TOML("storage.access_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "storage-secret-key",
			Usage:   "Object storage secret key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_SECRET_KEY"), toml.TOML("storage.secret_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "storage-public-url",
			Usage:   "Public base URL for stored objects",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STORAGE_PUBLIC_URL"), toml.TOML("storage.public_url", configFile)),
		},
	}
}
