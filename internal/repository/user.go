// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"

	"codeberg.org/collegeblog/backend/internal/models"
)

const userColumns = `id, email, username, password_hash, is_active, is_verified, created_at, updated_at`

// CreateUser inserts a new user and fills in its ID and timestamps.
// Returns ErrConflict if the email or username is taken.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	return get(ctx, r.db, &user.ID,
		`INSERT INTO users (email, username, password_hash, is_active, is_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		user.Email, user.Username, user.PasswordHash, user.IsActive, user.IsVerified, user.CreatedAt, user.UpdatedAt)
}

// EnsureFederatedUser returns the user with the given email, creating a
// verified account without a usable password if none exists. Concurrent
// calls for the same email all resolve to the same row.
func (r *Repository) EnsureFederatedUser(ctx context.Context, email string) (*models.User, bool, error) {
	now := r.now()
	res, err := exec(ctx, r.db,
		`INSERT INTO users (email, password_hash, is_active, is_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (email) DO NOTHING`,
		email, models.FederatedPasswordHash, true, true, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("inserting federated user: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	user, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return user, inserted == 1, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := get(ctx, r.db, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := get(ctx, r.db, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists checks if an account with the given email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := get(ctx, r.db, &count, `SELECT COUNT(*) FROM users WHERE email = ?`, email); err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateUsername sets or clears the username. Returns ErrConflict if taken.
func (r *Repository) UpdateUsername(ctx context.Context, id int64, username *string) (*models.User, error) {
	if err := execAffecting(ctx, r.db,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`, username, r.now(), id); err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, id)
}

// SetUserActive enables or disables an account.
func (r *Repository) SetUserActive(ctx context.Context, id int64, active bool) error {
	return execAffecting(ctx, r.db,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, r.now(), id)
}

// GetUserDetail loads the user together with their posts and bookmarks.
func (r *Repository) GetUserDetail(ctx context.Context, id int64) (*models.UserDetail, error) {
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	posts, err := r.ListPostsByOwner(ctx, id)
	if err != nil {
		return nil, err
	}

	bookmarks, err := r.ListBookmarksByUser(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.UserDetail{User: user, Posts: posts, Bookmarks: bookmarks}, nil
}

// GetUserProfile loads the public profile of a user.
func (r *Repository) GetUserProfile(ctx context.Context, id int64) (*models.UserProfile, error) {
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	posts, err := r.ListPostsByOwner(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Posts:    posts,
	}, nil
}

func (r *Repository) usersByID(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	out := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := selectIn(ctx, r.db, &users, `SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids); err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}
