// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/collegeblog/backend/internal/models"
)

const postColumns = `id, title, content, image_url, owner_id, category_id, created_at`

// CreatePost stores a post owned by ownerID.
func (r *Repository) CreatePost(ctx context.Context, ownerID int64, in models.PostInput) (*models.Post, error) {
	var id int64
	err := get(ctx, r.db, &id,
		`INSERT INTO posts (title, content, image_url, owner_id, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		in.Title, in.Content, in.ImageURL, ownerID, in.CategoryID, r.now())
	if err != nil {
		return nil, err
	}
	return r.GetPost(ctx, id)
}

// GetPost retrieves a post with its owner, category and bookmarks.
func (r *Repository) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := get(ctx, r.db, &post, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id); err != nil {
		return nil, err
	}

	posts := []models.Post{post}
	if err := r.loadPostRelations(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// GetPostOwnerID returns only the owner of a post.
func (r *Repository) GetPostOwnerID(ctx context.Context, id int64) (int64, error) {
	var ownerID int64
	if err := get(ctx, r.db, &ownerID, `SELECT owner_id FROM posts WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return ownerID, nil
}

// ListPosts returns posts newest first, narrowed by f. Search matches the title.
func (r *Repository) ListPosts(ctx context.Context, f ListFilter) ([]models.Post, error) {
	query, args := f.build(`SELECT `+postColumns+` FROM posts`, "title")

	posts := []models.Post{}
	if err := selectAll(ctx, r.db, &posts, query, args...); err != nil {
		return nil, err
	}
	if err := r.loadPostRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostsByOwner returns every post of a user, newest first.
func (r *Repository) ListPostsByOwner(ctx context.Context, ownerID int64) ([]models.Post, error) {
	posts := []models.Post{}
	if err := selectAll(ctx, r.db, &posts,
		`SELECT `+postColumns+` FROM posts WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID); err != nil {
		return nil, err
	}
	if err := r.loadPostRelations(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePost replaces the editable fields of a post. Ownership is checked by the caller.
func (r *Repository) UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error) {
	if err := execAffecting(ctx, r.db,
		`UPDATE posts SET title = ?, content = ?, image_url = ?, category_id = ? WHERE id = ?`,
		in.Title, in.Content, in.ImageURL, in.CategoryID, id); err != nil {
		return nil, err
	}
	return r.GetPost(ctx, id)
}

// DeletePost removes a post. Its bookmarks go with it.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, `DELETE FROM posts WHERE id = ?`, id)
}

// loadPostRelations attaches owners, categories and bookmarks in three queries.
func (r *Repository) loadPostRelations(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]int64, len(posts))
	ownerIDs := make([]*int64, len(posts))
	categoryIDs := make([]*int64, len(posts))
	for i := range posts {
		postIDs[i] = posts[i].ID
		ownerIDs[i] = &posts[i].OwnerID
		categoryIDs[i] = posts[i].CategoryID
	}

	owners, err := r.usersByID(ctx, uniqueIDs(ownerIDs...))
	if err != nil {
		return err
	}

	categories, err := r.categoriesByID(ctx, models.PostCategory, uniqueIDs(categoryIDs...))
	if err != nil {
		return err
	}

	var bookmarks []models.Bookmark
	if err := selectIn(ctx, r.db, &bookmarks,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE post_id IN (?) ORDER BY created_at, id`, postIDs); err != nil {
		return err
	}
	byPost := make(map[int64][]models.Bookmark, len(posts))
	for _, b := range bookmarks {
		byPost[b.PostID] = append(byPost[b.PostID], b)
	}

	for i := range posts {
		posts[i].Owner = owners[posts[i].OwnerID]
		if posts[i].CategoryID != nil {
			posts[i].Category = categories[*posts[i].CategoryID]
		}
		posts[i].Bookmarks = byPost[posts[i].ID]
		if posts[i].Bookmarks == nil {
			posts[i].Bookmarks = []models.Bookmark{}
		}
	}
	return nil
}

// postSummariesByID loads post summaries with their categories.
func (r *Repository) postSummariesByID(ctx context.Context, ids []int64) (map[int64]*models.PostSummary, error) {
	out := make(map[int64]*models.PostSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var summaries []models.PostSummary
	if err := selectIn(ctx, r.db, &summaries, `SELECT `+postColumns+` FROM posts WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}

	categoryIDs := make([]*int64, len(summaries))
	for i := range summaries {
		categoryIDs[i] = summaries[i].CategoryID
	}
	categories, err := r.categoriesByID(ctx, models.PostCategory, uniqueIDs(categoryIDs...))
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		if summaries[i].CategoryID != nil {
			summaries[i].Category = categories[*summaries[i].CategoryID]
		}
		out[summaries[i].ID] = &summaries[i]
	}
	return out, nil
}
