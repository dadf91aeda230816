// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"

	"codeberg.org/collegeblog/backend/internal/models"
)

// CreateCategory adds a category to one taxonomy. Returns ErrConflict if the
// name already exists there.
func (r *Repository) CreateCategory(ctx context.Context, kind models.CategoryKind, name string) (*models.Category, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown category kind %q", kind)
	}

	category := &models.Category{Name: name}
	if err := get(ctx, r.db, &category.ID,
		`INSERT INTO `+kind.Table()+` (name) VALUES (?) RETURNING id`, name); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory retrieves one category of a taxonomy.
func (r *Repository) GetCategory(ctx context.Context, kind models.CategoryKind, id int64) (*models.Category, error) {
	var category models.Category
	if err := get(ctx, r.db, &category, `SELECT id, name FROM `+kind.Table()+` WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns a page of categories ordered by ID.
func (r *Repository) ListCategories(ctx context.Context, kind models.CategoryKind, f ListFilter) ([]models.Category, error) {
	limit, offset := f.page()

	categories := []models.Category{}
	if err := selectAll(ctx, r.db, &categories,
		`SELECT id, name FROM `+kind.Table()+` ORDER BY id LIMIT ? OFFSET ?`, limit, offset); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *Repository) categoriesByID(ctx context.Context, kind models.CategoryKind, ids []int64) (map[int64]*models.Category, error) {
	out := make(map[int64]*models.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var categories []models.Category
	if err := selectIn(ctx, r.db, &categories, `SELECT id, name FROM `+kind.Table()+` WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}
	for i := range categories {
		out[categories[i].ID] = &categories[i]
	}
	return out, nil
}
