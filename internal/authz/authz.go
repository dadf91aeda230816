// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package authz holds per-resource ownership checks. They run after the
// resource has been loaded, so a missing resource is reported before a
// foreign one.
package authz

import (
	"errors"

	"codeberg.org/collegeblog/backend/internal/models"
)

// ErrForbidden means the caller is authenticated but does not own the resource.
var ErrForbidden = errors.New("forbidden")

// RequireOwner allows the action only when caller owns the resource.
func RequireOwner(caller *models.User, ownerID int64) error {
	if caller == nil || caller.ID != ownerID {
		return ErrForbidden
	}
	return nil
}

// CanDeleteBookmark reports whether caller may remove bookmark.
func CanDeleteBookmark(caller *models.User, bookmark *models.Bookmark) error {
	return RequireOwner(caller, bookmark.UserID)
}
