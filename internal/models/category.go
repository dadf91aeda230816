// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// CategoryKind selects one of the three independent category taxonomies.
type CategoryKind string

const (
	PostCategory     CategoryKind = "post"
	ResourceCategory CategoryKind = "resource"
	ClubCategory     CategoryKind = "club"
)

// Table returns the table backing the taxonomy.
func (k CategoryKind) Table() string {
	switch k {
	case ResourceCategory:
		return "resource_categories"
	case ClubCategory:
		return "club_categories"
	default:
		return "post_categories"
	}
}

// Valid reports whether k names a known taxonomy.
func (k CategoryKind) Valid() bool {
	switch k {
	case PostCategory, ResourceCategory, ClubCategory:
		return true
	}
	return false
}

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CategoryCreate is the payload for adding a category.
type CategoryCreate struct {
	Name string `json:"name"`
}
