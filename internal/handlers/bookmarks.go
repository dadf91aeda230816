// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/authz"
	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

// CreateBookmark bookmarks a post for the caller.
func (h *Handlers) CreateBookmark(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return RespondError(c, err)
	}

	var in models.BookmarkCreate
	if err := bind(c, &in); err != nil {
		return RespondError(c, err)
	}
	if in.PostID <= 0 {
		return RespondError(c, &missingFieldError{field: "post_id"})
	}

	bookmark, err := h.repo.CreateBookmark(c.Request().Context(), user.ID, in.PostID)
	if err != nil {
		err = as(err, repository.ErrConflict, "error_bookmark_exists")
		return RespondError(c, as(err, repository.ErrNotFound, "error_post_not_found"))
	}
	return c.JSON(http.StatusCreated, bookmark)
}

// ListBookmarks returns the caller's bookmarks with a summary of each post.
func (h *Handlers) ListBookmarks(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return RespondError(c, err)
	}

	bookmarks, err := h.repo.ListBookmarksByUser(c.Request().Context(), user.ID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, bookmarks)
}

// DeleteBookmark removes one of the caller's bookmarks.
func (h *Handlers) DeleteBookmark(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return RespondError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	ctx := c.Request().Context()
	bookmark, err := h.repo.GetBookmark(ctx, id)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_bookmark_not_found"))
	}
	if err := authz.CanDeleteBookmark(user, bookmark); err != nil {
		return RespondError(c, err)
	}

	if err := h.repo.DeleteBookmark(ctx, id); err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_bookmark_not_found"))
	}
	return c.NoContent(http.StatusNoContent)
}
