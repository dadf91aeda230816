// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/collegeblog/backend/internal/authz"
	"codeberg.org/collegeblog/backend/internal/i18n"
	"codeberg.org/collegeblog/backend/internal/repository"
	authsvc "codeberg.org/collegeblog/backend/internal/services/auth"
	"codeberg.org/collegeblog/backend/internal/services/google"
	"codeberg.org/collegeblog/backend/internal/services/storage"
	"codeberg.org/collegeblog/backend/internal/services/token"
	"github.com/labstack/echo/v4"
)

// ErrNotAuthenticated rejects a request without usable credentials.
var ErrNotAuthenticated = errors.New("not authenticated")

var (
	errInvalidBody  = errors.New("invalid request body")
	errInvalidID    = errors.New("invalid id")
	errFileRequired = errors.New("file is required")
	errUploadFailed = errors.New("upload failed")
)

// queryError reports a malformed query parameter.
type queryError struct {
	param string
}

func (e *queryError) Error() string {
	return "invalid query parameter " + e.param
}

// missingFieldError reports a required field that was empty.
type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return e.field + " is required"
}

// keyedError replaces the message of a classified error without changing
// its status, e.g. "Post not found" instead of "Not found".
type keyedError struct {
	err error
	key string
}

func (e *keyedError) Error() string { return e.err.Error() }
func (e *keyedError) Unwrap() error { return e.err }

// as gives err the message key when it matches target.
func as(err, target error, key string) error {
	if errors.Is(err, target) {
		return &keyedError{err: err, key: key}
	}
	return err
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string   `json:"detail"`
	Errors []string `json:"errors,omitempty"`
}

type outcome struct {
	status int
	key    string
	data   map[string]any
}

// classify maps an error chain to exactly one API outcome.
func classify(err error) outcome {
	var (
		pve   *authsvc.PasswordValidationError
		qe    *queryError
		mfe   *missingFieldError
		httpE *echo.HTTPError
	)

	switch {
	case errors.As(err, &pve):
		return outcome{status: http.StatusBadRequest}

	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return outcome{http.StatusUnauthorized, "error_invalid_credentials", nil}
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, ErrNotAuthenticated):
		return outcome{http.StatusUnauthorized, "error_not_authenticated", nil}
	case errors.Is(err, google.ErrUntrustedAssertion):
		return outcome{http.StatusUnauthorized, "error_untrusted_assertion", nil}
	case errors.Is(err, authz.ErrForbidden):
		return outcome{http.StatusForbidden, "error_forbidden", nil}

	case errors.Is(err, authsvc.ErrUserExists):
		return outcome{http.StatusConflict, "error_email_registered", nil}
	case errors.Is(err, authsvc.ErrUsernameTaken):
		return outcome{http.StatusConflict, "error_username_taken", nil}
	case errors.Is(err, repository.ErrConflict):
		return outcome{http.StatusConflict, "error_conflict", nil}
	case errors.Is(err, repository.ErrNotFound):
		return outcome{http.StatusNotFound, "error_not_found", nil}

	case errors.Is(err, authsvc.ErrInvalidEmail):
		return outcome{http.StatusBadRequest, "error_invalid_email", nil}
	case errors.Is(err, authsvc.ErrInvalidUsername):
		return outcome{http.StatusBadRequest, "error_invalid_username", nil}
	case errors.Is(err, authsvc.ErrPasswordTooLong):
		return outcome{http.StatusBadRequest, "password_too_long", map[string]any{"Max": authsvc.MaxPasswordBytes}}
	case errors.Is(err, authsvc.ErrInvalidVerifyToken):
		return outcome{http.StatusBadRequest, "error_invalid_verify_token", nil}
	case errors.Is(err, authsvc.ErrMissingCode):
		return outcome{http.StatusBadRequest, "error_missing_code", nil}
	case errors.Is(err, google.ErrInvalidState):
		return outcome{http.StatusBadRequest, "error_invalid_state", nil}
	case errors.Is(err, google.ErrMissingEmail):
		return outcome{http.StatusBadRequest, "error_missing_email", nil}
	case errors.Is(err, storage.ErrUnsupportedType):
		return outcome{http.StatusBadRequest, "error_unsupported_file", nil}
	case errors.Is(err, errFileRequired):
		return outcome{http.StatusBadRequest, "error_file_required", nil}
	case errors.Is(err, errInvalidBody):
		return outcome{http.StatusBadRequest, "error_invalid_request", nil}
	case errors.Is(err, errInvalidID):
		return outcome{http.StatusUnprocessableEntity, "error_invalid_id", nil}
	case errors.As(err, &qe):
		return outcome{http.StatusUnprocessableEntity, "error_invalid_query", map[string]any{"Param": qe.param}}
	case errors.As(err, &mfe):
		return outcome{http.StatusUnprocessableEntity, "error_missing_field", map[string]any{"Field": mfe.field}}
	case errors.Is(err, repository.ErrInvalidReference):
		return outcome{http.StatusUnprocessableEntity, "error_invalid_category", nil}

	case errors.Is(err, google.ErrUpstreamUnavailable):
		return outcome{http.StatusBadGateway, "error_upstream", nil}
	case errors.Is(err, google.ErrNotConfigured):
		return outcome{http.StatusInternalServerError, "error_google_not_configured", nil}
	case errors.Is(err, token.ErrSigningKeyMissing):
		return outcome{http.StatusInternalServerError, "error_jwt_not_configured", nil}
	case errors.Is(err, storage.ErrNotConfigured):
		return outcome{http.StatusInternalServerError, "error_storage_not_configured", nil}
	case errors.Is(err, errUploadFailed):
		return outcome{http.StatusInternalServerError, "error_upload_failed", nil}

	case errors.As(err, &httpE):
		return classifyHTTPError(httpE)
	}

	return outcome{http.StatusInternalServerError, "error_internal", nil}
}

func classifyHTTPError(he *echo.HTTPError) outcome {
	switch he.Code {
	case http.StatusNotFound:
		return outcome{he.Code, "error_route_not_found", nil}
	case http.StatusMethodNotAllowed:
		return outcome{he.Code, "error_method_not_allowed", nil}
	case http.StatusRequestEntityTooLarge:
		return outcome{he.Code, "error_body_too_large", nil}
	case http.StatusUnauthorized:
		return outcome{he.Code, "error_not_authenticated", nil}
	case http.StatusForbidden:
		return outcome{he.Code, "error_forbidden", nil}
	}
	if he.Code >= http.StatusBadRequest && he.Code < http.StatusInternalServerError {
		return outcome{he.Code, "error_invalid_request", nil}
	}
	return outcome{http.StatusInternalServerError, "error_internal", nil}
}

// RespondError writes err as {"detail": ...}. Causes are logged, never
// returned to the client.
func RespondError(c echo.Context, err error) error {
	out := classify(err)
	ctx := c.Request().Context()

	var keyed *keyedError
	if errors.As(err, &keyed) {
		out.key = keyed.key
	}

	body := ErrorResponse{}
	var pve *authsvc.PasswordValidationError
	if errors.As(err, &pve) {
		for _, ve := range pve.Errors {
			body.Errors = append(body.Errors, i18n.TData(ctx, "password_"+ve.Code, ve.Data))
		}
		if len(body.Errors) > 0 {
			body.Detail = body.Errors[0]
		}
	} else {
		body.Detail = i18n.TData(ctx, out.key, out.data)
	}

	switch {
	case out.status >= http.StatusInternalServerError:
		slog.ErrorContext(ctx, "request_failed", "status", out.status, "error", err)
	case out.status == http.StatusUnauthorized:
		c.Response().Header().Set("WWW-Authenticate", "Bearer")
		slog.DebugContext(ctx, "request_unauthorized", "error", err)
	}

	return c.JSON(out.status, body)
}

// HTTPErrorHandler renders errors that escape handlers and middleware in
// the same shape as handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		out := classify(err)
		if werr := c.NoContent(out.status); werr != nil {
			slog.Error("failed to write error response", "error", werr)
		}
		return
	}
	if werr := RespondError(c, err); werr != nil {
		slog.Error("failed to write error response", "error", werr)
	}
}
