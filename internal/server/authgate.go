// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"codeberg.org/collegeblog/backend/internal/auth"
	"codeberg.org/collegeblog/backend/internal/handlers"
	"codeberg.org/collegeblog/backend/internal/models"
	authsvc "codeberg.org/collegeblog/backend/internal/services/auth"
	"codeberg.org/collegeblog/backend/internal/services/token"
	"github.com/labstack/echo/v4"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*models.User, error)
}

// RequireAuth rejects requests without a valid bearer token and puts the
// resolved user into the request context. Every rejected credential looks the
// same to the client. A missing signing key or a failing user lookup is a
// server error, never a pass and never a 401.
func RequireAuth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return handlers.RespondError(c, handlers.ErrNotAuthenticated)
			}

			user, err := authn.Authenticate(ctx, raw)
			switch {
			case err == nil:
			case errors.Is(err, token.ErrInvalidToken), errors.Is(err, authsvc.ErrInvalidCredentials):
				slog.DebugContext(ctx, "auth_rejected", "error", err)
				return handlers.RespondError(c, handlers.ErrNotAuthenticated)
			case errors.Is(err, token.ErrSigningKeyMissing):
				slog.ErrorContext(ctx, "auth_gate_misconfigured", "error", err)
				return handlers.RespondError(c, err)
			default:
				return handlers.RespondError(c, err)
			}

			c.SetRequest(c.Request().WithContext(auth.WithUser(ctx, user)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
