// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// PostSummary is the post as embedded in a bookmark.
type PostSummary struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	ImageURL   *string   `db:"image_url" json:"image_url"`
	OwnerID    int64     `db:"owner_id" json:"owner_id"`
	CategoryID *int64    `db:"category_id" json:"category_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Category   *Category `db:"-" json:"category"`
}

// Post is a blog post with its author and the bookmarks pointing at it.
type Post struct {
	PostSummary
	Owner     *User      `db:"-" json:"owner"`
	Bookmarks []Bookmark `db:"-" json:"bookmarks"`
}

// PostInput is the payload for creating or replacing a post.
type PostInput struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ImageURL   *string `json:"image_url"`
	CategoryID *int64  `json:"category_id"`
}
