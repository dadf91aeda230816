// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Resource is a learning resource shared with the community.
type Resource struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64     `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Context    string    `db:"context" json:"context"`
	Teachings  string    `db:"teachings" json:"teachings"`
	Link       string    `db:"link" json:"link"`
	ImageURL   *string   `db:"image_url" json:"image_url"`
	CategoryID *int64    `db:"category_id" json:"category_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Category   *Category `db:"-" json:"category"`
}

type ResourceInput struct {
	Title      string  `json:"title"`
	Context    string  `json:"context"`
	Teachings  string  `json:"teachings"`
	Link       string  `json:"link"`
	ImageURL   *string `json:"image_url"`
	CategoryID *int64  `json:"category_id"`
}
