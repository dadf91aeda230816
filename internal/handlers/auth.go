// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/i18n"
	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	authsvc "codeberg.org/collegeblog/backend/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for accounts and authentication.
type AuthHandlers struct {
	auth *authsvc.Service
	repo *repository.Repository
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *authsvc.Service, repo *repository.Repository) *AuthHandlers {
	return &AuthHandlers{auth: svc, repo: repo}
}

// TokenResponse is returned by every successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func bearer(signed string) TokenResponse {
	return TokenResponse{AccessToken: signed, TokenType: "bearer"}
}

// Token exchanges form credentials for a bearer token. The username field
// carries the email address.
func (h *AuthHandlers) Token(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if err := requireField("username", username); err != nil {
		return RespondError(c, err)
	}
	if password == "" {
		return RespondError(c, &missingFieldError{field: "password"})
	}

	signed, err := h.auth.IssueToken(c.Request().Context(), username, password)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, bearer(signed))
}

// GoogleLogin redirects to the provider's consent screen.
func (h *AuthHandlers) GoogleLogin(c echo.Context) error {
	url, err := h.auth.GoogleLoginURL()
	if err != nil {
		return RespondError(c, err)
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback completes the provider flow and returns a bearer token.
func (h *AuthHandlers) GoogleCallback(c echo.Context) error {
	signed, _, err := h.auth.LoginWithGoogle(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, bearer(signed))
}

// Register creates a local account.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req models.UserCreate
	if err := bind(c, &req); err != nil {
		return RespondError(c, err)
	}
	if err := requireField("email", req.Email); err != nil {
		return RespondError(c, err)
	}
	if req.Password == "" {
		return RespondError(c, &missingFieldError{field: "password"})
	}

	user, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// VerifyEmail redeems the token from a verification mail.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.auth.VerifyEmail(ctx, c.QueryParam("token")); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_email_verified")})
}

// ResendVerificationRequest names the account that wants a new mail.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ResendVerification mails a fresh verification link. The answer is the same
// whether or not the address belongs to a pending account.
func (h *AuthHandlers) ResendVerification(c echo.Context) error {
	var req ResendVerificationRequest
	if err := bind(c, &req); err != nil {
		return RespondError(c, err)
	}
	if err := requireField("email", req.Email); err != nil {
		return RespondError(c, err)
	}

	ctx := c.Request().Context()
	if err := h.auth.ResendVerification(ctx, req.Email); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusAccepted, MessageResponse{Message: i18n.T(ctx, "message_verification_sent")})
}
