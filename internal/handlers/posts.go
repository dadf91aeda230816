// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/collegeblog/backend/internal/authz"
	"codeberg.org/collegeblog/backend/internal/i18n"
	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"github.com/labstack/echo/v4"
)

// CreatePost creates a post owned by the caller.
func (h *Handlers) CreatePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return RespondError(c, err)
	}

	var in models.PostInput
	if err := bind(c, &in); err != nil {
		return RespondError(c, err)
	}
	if err := requireField("title", in.Title); err != nil {
		return RespondError(c, err)
	}

	post, err := h.repo.CreatePost(c.Request().Context(), user.ID, in)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, post)
}

// ListPosts returns posts, newest first.
func (h *Handlers) ListPosts(c echo.Context) error {
	f, err := listFilter(c)
	if err != nil {
		return RespondError(c, err)
	}

	posts, err := h.repo.ListPosts(c.Request().Context(), f)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, posts)
}

// GetPost returns a single post.
func (h *Handlers) GetPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return RespondError(c, err)
	}

	post, err := h.repo.GetPost(c.Request().Context(), id)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_post_not_found"))
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost replaces a post's fields. Only the owner may update it.
func (h *Handlers) UpdatePost(c echo.Context) error {
	id, err := h.ownedPost(c)
	if err != nil {
		return RespondError(c, err)
	}

	var in models.PostInput
	if err := bind(c, &in); err != nil {
		return RespondError(c, err)
	}
	if err := requireField("title", in.Title); err != nil {
		return RespondError(c, err)
	}

	post, err := h.repo.UpdatePost(c.Request().Context(), id, in)
	if err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_post_not_found"))
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost removes a post and, through the foreign key, its bookmarks.
func (h *Handlers) DeletePost(c echo.Context) error {
	id, err := h.ownedPost(c)
	if err != nil {
		return RespondError(c, err)
	}

	ctx := c.Request().Context()
	if err := h.repo.DeletePost(ctx, id); err != nil {
		return RespondError(c, as(err, repository.ErrNotFound, "error_post_not_found"))
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_post_deleted")})
}

// ownedPost resolves the post in the path and checks the caller owns it.
// A missing post is reported before ownership.
func (h *Handlers) ownedPost(c echo.Context) (int64, error) {
	user, err := currentUser(c)
	if err != nil {
		return 0, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return 0, err
	}

	ownerID, err := h.repo.GetPostOwnerID(c.Request().Context(), id)
	if err != nil {
		return 0, as(err, repository.ErrNotFound, "error_post_not_found")
	}
	if err := authz.RequireOwner(user, ownerID); err != nil {
		return 0, err
	}
	return id, nil
}
