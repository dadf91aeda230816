// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

type Bookmark struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	PostID    int64        `db:"post_id" json:"post_id"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Post      *PostSummary `db:"-" json:"post,omitempty"`
}

// BookmarkCreate is the payload for bookmarking a post.
type BookmarkCreate struct {
	PostID int64 `json:"post_id"`
}
