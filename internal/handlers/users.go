// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

// Me returns the caller with their posts and bookmarks.
func (h *AuthHandlers) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return RespondError(c, err)
	}

	detail, err := h.repo.GetUserDetail(c.Request().Context(), user.ID)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_user_not_found"))
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateUsername sets or clears the caller's username.
func (h *AuthHandlers) UpdateUsername(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return RespondError(c, err)
	}

	var req models.UsernameUpdate
	if err := bind(c, &req); err != nil {
		return RespondError(c, err)
	}

	updated, err := h.auth.ChangeUsername(c.Request().Context(), user.ID, req.Username)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_user_not_found"))
	}
	return c.JSON(http.StatusOK, updated)
}

// Profile returns a user's public profile with their posts.
func (h *AuthHandlers) Profile(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	profile, err := h.repo.GetUserProfile(c.Request().Context(), id)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_user_not_found"))
	}
	return c.JSON(http.StatusOK, profile)
}
