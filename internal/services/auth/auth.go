// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/collegeblog/backend/internal/config"
	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"codeberg.org/collegeblog/backend/internal/services/email"
	"codeberg.org/collegeblog/backend/internal/services/google"
	"codeberg.org/collegeblog/backend/internal/services/token"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrMissingCode        = errors.New("authorization code not provided")
)

const maxUsernameLength = 50

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// IdentityProvider runs the federated authorization-code flow.
type IdentityProvider interface {
	Configured() bool
	NewState() (string, error)
	CheckState(state string) error
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*google.Identity, error)
}

// Mailer delivers verification mails.
type Mailer interface {
	GenerateToken() (string, string, time.Time, error)
	SendVerification(ctx context.Context, toEmail, token string) error
}

type Service struct {
	repo              *repository.Repository
	config            *config.AuthConfig
	tokens            *token.Service
	provider          IdentityProvider
	mailer            Mailer
	passwordValidator *PasswordValidator
}

// Option configures optional collaborators of the Service.
type Option func(*Service)

// WithIdentityProvider enables federated login.
func WithIdentityProvider(p IdentityProvider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithMailer enables email verification for new accounts.
func WithMailer(m Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

// WithPasswordValidator replaces the validator built from config.
func WithPasswordValidator(v *PasswordValidator) Option {
	return func(s *Service) {
		s.passwordValidator = v
	}
}

func NewService(repo *repository.Repository, cfg *config.AuthConfig, tokens *token.Service, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		config:            cfg,
		tokens:            tokens,
		passwordValidator: NewPasswordValidator(cfg.PasswordMinLength),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PasswordValidator returns the password validator for use in handlers
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// Register creates a new local account. With a mailer configured the account
// starts unverified and a verification mail is sent; otherwise it is verified
// right away.
func (s *Service) Register(ctx context.Context, params models.UserCreate) (*models.User, error) {
	address := normalizeEmail(params.Email)
	if _, err := mail.ParseAddress(address); err != nil || strings.ContainsAny(address, "<> ") {
		return nil, ErrInvalidEmail
	}

	username, err := normalizeUsername(params.Username)
	if err != nil {
		return nil, err
	}

	validation := s.passwordValidator.Validate(params.Password, address)
	if !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	exists, err := s.repo.EmailExists(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := HashPassword(params.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        address,
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsVerified:   s.mailer == nil,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			if username != nil && !s.emailTaken(ctx, address) {
				return nil, ErrUsernameTaken
			}
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", address)

	if s.mailer != nil {
		if err := s.sendVerification(ctx, user); err != nil {
			slog.Warn("verification_email_failed", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

func (s *Service) emailTaken(ctx context.Context, address string) bool {
	exists, err := s.repo.EmailExists(ctx, address)
	return err != nil || exists
}

// sendVerification replaces any outstanding verification tokens of the user
// with a fresh one and mails it.
func (s *Service) sendVerification(ctx context.Context, user *models.User) error {
	plaintext, hash, expiresAt, err := s.mailer.GenerateToken()
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUserEmailVerificationTokens(ctx, user.ID); err != nil {
		return fmt.Errorf("revoking verification tokens: %w", err)
	}
	if err := s.repo.CreateEmailVerificationToken(ctx, user.ID, hash, expiresAt); err != nil {
		return fmt.Errorf("storing verification token: %w", err)
	}
	return s.mailer.SendVerification(ctx, user.Email, plaintext)
}

// ResendVerification mails a new verification link to an unverified local
// account. Unknown, verified and federated addresses are silently ignored.
func (s *Service) ResendVerification(ctx context.Context, address string) error {
	if s.mailer == nil {
		return nil
	}
	address = normalizeEmail(address)

	user, err := s.repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Debug("verification_resend_skipped", "email", address, "reason", "user_not_found")
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsVerified || !user.HasPassword() {
		slog.Debug("verification_resend_skipped", "user_id", user.ID, "reason", "not_pending")
		return nil
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return fmt.Errorf("resending verification: %w", err)
	}
	slog.Info("verification_resent", "user_id", user.ID)
	return nil
}

// VerifyEmail redeems a verification token from a mail link.
func (s *Service) VerifyEmail(ctx context.Context, plaintext string) error {
	if plaintext == "" {
		return ErrInvalidVerifyToken
	}

	userID, err := s.repo.ConsumeEmailVerificationToken(ctx, email.HashToken(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrTokenExpired) {
			return ErrInvalidVerifyToken
		}
		return fmt.Errorf("consuming verification token: %w", err)
	}

	slog.Info("email_verified", "user_id", userID)
	return nil
}

// Login authenticates a user and returns the user if successful
func (s *Service) Login(ctx context.Context, address, password string) (*models.User, error) {
	address = normalizeEmail(address)

	user, err := s.repo.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", address, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		slog.Warn("login_failed", "user_id", user.ID, "reason", "federated_account")
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "inactive")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "user_id", user.ID, "email", address)
	return user, nil
}

// IssueToken logs the user in with a password and returns a bearer token.
func (s *Service) IssueToken(ctx context.Context, address, password string) (string, error) {
	user, err := s.Login(ctx, address, password)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueDefault(user.Email)
}

// Authenticate resolves a bearer token to an active user. It never creates
// or modifies a user. Rejected credentials yield token.ErrInvalidToken or
// ErrInvalidCredentials; any other error is a server fault.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*models.User, error) {
	subject, err := s.tokens.Verify(bearer)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading token subject: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GoogleLoginURL returns the provider consent URL with a fresh signed state.
func (s *Service) GoogleLoginURL() (string, error) {
	if s.provider == nil {
		return "", google.ErrNotConfigured
	}
	state, err := s.provider.NewState()
	if err != nil {
		return "", fmt.Errorf("creating oauth state: %w", err)
	}
	return s.provider.AuthCodeURL(state)
}

// LoginWithGoogle completes the authorization-code flow and returns a bearer
// token for the local account behind the verified email. Accounts are
// created on first login. An empty state is accepted for clients that only
// forward the code.
func (s *Service) LoginWithGoogle(ctx context.Context, code, state string) (string, *models.User, error) {
	if s.provider == nil || !s.provider.Configured() {
		return "", nil, google.ErrNotConfigured
	}
	if code == "" {
		return "", nil, ErrMissingCode
	}
	if state != "" {
		if err := s.provider.CheckState(state); err != nil {
			return "", nil, err
		}
	}

	idToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		slog.Error("google_exchange_failed", "error", err)
		return "", nil, err
	}

	identity, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		slog.Warn("google_assertion_rejected", "error", err)
		return "", nil, err
	}

	user, created, err := s.repo.EnsureFederatedUser(ctx, normalizeEmail(identity.Email))
	if err != nil {
		return "", nil, fmt.Errorf("resolving federated user: %w", err)
	}
	if created {
		slog.Info("federated_user_created", "user_id", user.ID, "email", user.Email)
	}
	if !user.IsActive {
		slog.Warn("login_failed", "user_id", user.ID, "reason", "inactive")
		return "", nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.IssueDefault(user.Email)
	if err != nil {
		return "", nil, err
	}

	slog.Info("login_success", "user_id", user.ID, "email", user.Email, "method", "google")
	return signed, user, nil
}

// ChangeUsername sets or clears the caller's username.
func (s *Service) ChangeUsername(ctx context.Context, userID int64, username *string) (*models.User, error) {
	normalized, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.UpdateUsername(ctx, userID, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// normalizeUsername trims the name; blank means no username.
func normalizeUsername(username *string) (*string, error) {
	if username == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*username)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxUsernameLength {
		return nil, ErrInvalidUsername
	}
	return &trimmed, nil
}
