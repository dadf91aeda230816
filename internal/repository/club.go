// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/collegeblog/backend/internal/models"
)

const clubColumns = `id, name, description, image_url, category_id, created_at`

// CreateClub stores a club.
func (r *Repository) CreateClub(ctx context.Context, in models.ClubInput) (*models.Club, error) {
	var id int64
	err := get(ctx, r.db, &id,
		`INSERT INTO clubs (name, description, image_url, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		in.Name, in.Description, in.ImageURL, in.CategoryID, r.now())
	if err != nil {
		return nil, err
	}
	return r.GetClub(ctx, id)
}

// GetClub retrieves a club with its category.
func (r *Repository) GetClub(ctx context.Context, id int64) (*models.Club, error) {
	var club models.Club
	if err := get(ctx, r.db, &club, `SELECT `+clubColumns+` FROM clubs WHERE id = ?`, id); err != nil {
		return nil, err
	}

	clubs := []models.Club{club}
	if err := r.attachClubCategories(ctx, clubs); err != nil {
		return nil, err
	}
	return &clubs[0], nil
}

// ListClubs returns clubs newest first. Search matches the name.
func (r *Repository) ListClubs(ctx context.Context, f ListFilter) ([]models.Club, error) {
	query, args := f.build(`SELECT `+clubColumns+` FROM clubs`, "name")

	clubs := []models.Club{}
	if err := selectAll(ctx, r.db, &clubs, query, args...); err != nil {
		return nil, err
	}
	if err := r.attachClubCategories(ctx, clubs); err != nil {
		return nil, err
	}
	return clubs, nil
}

// UpdateClub replaces the editable fields of a club.
func (r *Repository) UpdateClub(ctx context.Context, id int64, in models.ClubInput) (*models.Club, error) {
	if err := execAffecting(ctx, r.db,
		`UPDATE clubs SET name = ?, description = ?, image_url = ?, category_id = ? WHERE id = ?`,
		in.Name, in.Description, in.ImageURL, in.CategoryID, id); err != nil {
		return nil, err
	}
	return r.GetClub(ctx, id)
}

// DeleteClub removes a club.
func (r *Repository) DeleteClub(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, `DELETE FROM clubs WHERE id = ?`, id)
}

func (r *Repository) attachClubCategories(ctx context.Context, clubs []models.Club) error {
	ids := make([]*int64, len(clubs))
	for i := range clubs {
		ids[i] = clubs[i].CategoryID
	}

	categories, err := r.categoriesByID(ctx, models.ClubCategory, uniqueIDs(ids...))
	if err != nil {
		return err
	}
	for i := range clubs {
		if clubs[i].CategoryID != nil {
			clubs[i].Category = categories[*clubs[i].CategoryID]
		}
	}
	return nil
}
