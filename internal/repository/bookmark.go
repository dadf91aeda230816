// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"

	"codeberg.org/collegeblog/backend/internal/models"
)

const bookmarkColumns = `id, user_id, post_id, created_at`

// CreateBookmark bookmarks a post for a user. Returns ErrNotFound if the post
// does not exist and ErrConflict if it is already bookmarked.
func (r *Repository) CreateBookmark(ctx context.Context, userID, postID int64) (*models.Bookmark, error) {
	var id int64
	err := get(ctx, r.db, &id,
		`INSERT INTO bookmarks (user_id, post_id, created_at) VALUES (?, ?, ?) RETURNING id`,
		userID, postID, r.now())
	if errors.Is(err, ErrInvalidReference) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetBookmark(ctx, id)
}

// GetBookmark retrieves a bookmark with the post it points at.
func (r *Repository) GetBookmark(ctx context.Context, id int64) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	if err := get(ctx, r.db, &bookmark, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id); err != nil {
		return nil, err
	}

	bookmarks := []models.Bookmark{bookmark}
	if err := r.attachBookmarkPosts(ctx, bookmarks); err != nil {
		return nil, err
	}
	return &bookmarks[0], nil
}

// ListBookmarksByUser returns a user's bookmarks, newest first.
func (r *Repository) ListBookmarksByUser(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	bookmarks := []models.Bookmark{}
	if err := selectAll(ctx, r.db, &bookmarks,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID); err != nil {
		return nil, err
	}
	if err := r.attachBookmarkPosts(ctx, bookmarks); err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// DeleteBookmark removes a bookmark. Ownership is checked by the caller.
func (r *Repository) DeleteBookmark(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, `DELETE FROM bookmarks WHERE id = ?`, id)
}

func (r *Repository) attachBookmarkPosts(ctx context.Context, bookmarks []models.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}

	postIDs := make([]*int64, len(bookmarks))
	for i := range bookmarks {
		postIDs[i] = &bookmarks[i].PostID
	}

	posts, err := r.postSummariesByID(ctx, uniqueIDs(postIDs...))
	if err != nil {
		return err
	}
	for i := range bookmarks {
		bookmarks[i].Post = posts[bookmarks[i].PostID]
	}
	return nil
}
