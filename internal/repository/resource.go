// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/collegeblog/backend/internal/models"
)

const resourceColumns = `id, title, context, teachings, link, image_url, category_id, created_at`

// CreateResource stores a learning resource.
func (r *Repository) CreateResource(ctx context.Context, in models.ResourceInput) (*models.Resource, error) {
	var id int64
	err := get(ctx, r.db, &id,
		`INSERT INTO resources (title, context, teachings, link, image_url, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		in.Title, in.Context, in.Teachings, in.Link, in.ImageURL, in.CategoryID, r.now())
	if err != nil {
		return nil, err
	}
	return r.GetResource(ctx, id)
}

// GetResource retrieves a resource with its category.
func (r *Repository) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	var resource models.Resource
	if err := get(ctx, r.db, &resource, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id); err != nil {
		return nil, err
	}

	resources := []models.Resource{resource}
	if err := r.attachResourceCategories(ctx, resources); err != nil {
		return nil, err
	}
	return &resources[0], nil
}

// ListResources returns resources newest first. Search matches the title.
func (r *Repository) ListResources(ctx context.Context, f ListFilter) ([]models.Resource, error) {
	query, args := f.build(`SELECT `+resourceColumns+` FROM resources`, "title")

	resources := []models.Resource{}
	if err := selectAll(ctx, r.db, &resources, query, args...); err != nil {
		return nil, err
	}
	if err := r.attachResourceCategories(ctx, resources); err != nil {
		return nil, err
	}
	return resources, nil
}

// UpdateResource replaces the editable fields of a resource.
func (r *Repository) UpdateResource(ctx context.Context, id int64, in models.ResourceInput) (*models.Resource, error) {
	if err := execAffecting(ctx, r.db,
		`UPDATE resources SET title = ?, context = ?, teachings = ?, link = ?, image_url = ?, category_id = ? WHERE id = ?`,
		in.Title, in.Context, in.Teachings, in.Link, in.ImageURL, in.CategoryID, id); err != nil {
		return nil, err
	}
	return r.GetResource(ctx, id)
}

// DeleteResource removes a resource.
func (r *Repository) DeleteResource(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, `DELETE FROM resources WHERE id = ?`, id)
}

func (r *Repository) attachResourceCategories(ctx context.Context, resources []models.Resource) error {
	ids := make([]*int64, len(resources))
	for i := range resources {
		ids[i] = resources[i].CategoryID
	}

	categories, err := r.categoriesByID(ctx, models.ResourceCategory, uniqueIDs(ids...))
	if err != nil {
		return err
	}
	for i := range resources {
		if resources[i].CategoryID != nil {
			resources[i].Category = categories[*resources[i].CategoryID]
		}
	}
	return nil
}
